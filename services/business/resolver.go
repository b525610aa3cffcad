// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrBusinessNotFound is returned when no business maps to a dialed number.
//
// Description:
//
//	Resolver failures of every kind (404, transport error, malformed
//	response, timeout) collapse into this single sentinel. The call
//	state machine treats them all identically: one graceful termination
//	message. The underlying cause is logged here, never propagated.
var ErrBusinessNotFound = errors.New("business: not found")

// Resolver maps a dialed number to a business identifier via the external
// resolution service.
//
// Thread Safety: Resolver is safe for concurrent use.
type Resolver struct {
	httpClient *http.Client
	baseURL    string
}

// NewResolver creates a Resolver against the given base URL.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
	}
}

type resolveResponse struct {
	BusinessID string `json:"businessId"`
}

// Resolve returns the business identifier for a dialed number.
//
// Description:
//
//	Issues GET <base>/resolve?to=<dialed>. This is a pure query with no
//	side effects; caching the result on the session is the call state
//	machine's job, not the resolver's. Any failure downgrades to
//	ErrBusinessNotFound so the caller-facing effect of "resolver down"
//	and "number unassigned" is identical.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - dialed: The called number, carrier-formatted (E.164).
//
// Outputs:
//   - string: The business identifier.
//   - error: ErrBusinessNotFound on any failure.
//
// Thread Safety: This method is safe for concurrent use.
func (r *Resolver) Resolve(ctx context.Context, dialed string) (string, error) {
	endpoint := fmt.Sprintf("%s/resolve?to=%s", r.baseURL, url.QueryEscape(dialed))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		slog.Error("Resolver request construction failed",
			slog.String("dialed", dialed),
			slog.String("error", err.Error()),
		)
		return "", ErrBusinessNotFound
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Warn("Resolver unreachable, treating as not found",
			slog.String("dialed", dialed),
			slog.String("error", err.Error()),
		)
		return "", ErrBusinessNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Resolver returned non-OK status",
			slog.String("dialed", dialed),
			slog.Int("status", resp.StatusCode),
		)
		return "", ErrBusinessNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("Resolver response unreadable",
			slog.String("dialed", dialed),
			slog.String("error", err.Error()),
		)
		return "", ErrBusinessNotFound
	}

	var parsed resolveResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.BusinessID == "" {
		slog.Warn("Resolver response malformed or empty",
			slog.String("dialed", dialed),
		)
		return "", ErrBusinessNotFound
	}

	slog.Debug("Resolved dialed number",
		slog.String("dialed", dialed),
		slog.String("business_id", parsed.BusinessID),
	)
	return parsed.BusinessID, nil
}
