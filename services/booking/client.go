// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package booking talks to the downstream scheduling API and exposes it to
// the model as a fixed two-tool schema.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/booklineai/bookline/services/llm"
)

// =============================================================================
// Wire Types
// =============================================================================

// AvailabilityRequest asks for open slots on a given date.
type AvailabilityRequest struct {
	// Date is the calendar date, YYYY-MM-DD.
	Date string `json:"date"`

	// Timezone is the IANA timezone the slots should be quoted in.
	Timezone string `json:"timezone"`

	// DurationMinutes is the appointment length to fit.
	DurationMinutes int `json:"durationMinutes"`
}

// AvailabilityResponse lists the open start times for the requested date.
type AvailabilityResponse struct {
	Slots []string `json:"slots"`
}

// BookRequest creates an appointment.
type BookRequest struct {
	// Start is the appointment start time, RFC 3339 or the slot string
	// returned by a prior availability query.
	Start string `json:"start"`

	// GuestName is the caller's name.
	GuestName string `json:"guestName"`

	// GuestEmail is optional.
	GuestEmail string `json:"guestEmail,omitempty"`

	// GuestPhone is the caller's number.
	GuestPhone string `json:"guestPhone"`
}

// BookResponse carries either a confirmation or a conflict.
type BookResponse struct {
	// Confirmation is the booking reference when the slot was secured.
	Confirmation string `json:"confirmation,omitempty"`

	// Conflict is set when the slot was taken between the availability
	// query and the booking attempt.
	Conflict bool `json:"conflict,omitempty"`
}

// =============================================================================
// Client
// =============================================================================

// Client is the HTTP client for the scheduling API.
//
// Description:
//
//	Credentials are per-business, carried in the X-Agent-Key header on
//	every request (header only; never duplicated into the body). The
//	timeout bounds a single downstream call so a hung scheduling API
//	cannot stall a conversational turn.
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client with the given base URL and per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Availability queries open slots.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - req: The availability query.
//   - agentKey: The per-business credential.
//
// Outputs:
//   - *AvailabilityResponse: The open slots.
//   - error: Non-nil on transport failure, timeout, or non-200 status.
//
// Thread Safety: This method is safe for concurrent use.
func (c *Client) Availability(ctx context.Context, req AvailabilityRequest, agentKey string) (*AvailabilityResponse, error) {
	var resp AvailabilityResponse
	if err := c.post(ctx, "/availability", req, agentKey, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Book attempts to create an appointment.
//
// Description:
//
//	Booking has a real-world side effect, so this method never retries.
//	An ambiguous failure (timeout, connection reset after send) is
//	reported as an error; only a fresh model-issued tool call may try
//	again, implying the caller re-confirmed.
//
// Thread Safety: This method is safe for concurrent use.
func (c *Client) Book(ctx context.Context, req BookRequest, agentKey string) (*BookResponse, error) {
	var resp BookResponse
	if err := c.post(ctx, "/book", req, agentKey, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, agentKey string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("booking: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("booking: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Agent-Key", agentKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("booking: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("booking: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("booking: %s returned status %d: %s",
			path, resp.StatusCode, llm.SafeLogString(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("booking: parsing %s response: %w", path, err)
	}
	return nil
}
