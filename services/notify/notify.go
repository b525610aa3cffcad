// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package notify delivers best-effort call lifecycle events to an external
// webhook. Delivery failure is logged and swallowed; it never affects the
// caller-facing flow.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event is one call lifecycle notification.
type Event struct {
	// Kind is "call_started" or "call_ended".
	Kind string `json:"kind"`

	// CallID is the transport's call identifier.
	CallID string `json:"call_id"`

	// BusinessID is the resolved business, empty if resolution failed.
	BusinessID string `json:"business_id,omitempty"`

	// From and To are the call parties.
	From string `json:"from"`
	To   string `json:"to"`

	// Outcome is the terminal call status, only set on call_ended.
	Outcome string `json:"outcome,omitempty"`

	// DurationSeconds is the call length, only set on call_ended.
	DurationSeconds int `json:"duration_seconds,omitempty"`
}

// Notifier receives lifecycle events. Implementations must be non-blocking
// from the caller's perspective and must never let a delivery failure
// propagate.
type Notifier interface {
	CallStarted(ctx context.Context, ev Event)
	CallEnded(ctx context.Context, ev Event)
}

// =============================================================================
// Webhook Notifier
// =============================================================================

// WebhookNotifier POSTs events to a configured URL, fire-and-forget.
//
// Thread Safety: WebhookNotifier is safe for concurrent use.
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
}

// NewWebhookNotifier creates a WebhookNotifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		url:        url,
	}
}

// CallStarted delivers a call_started event in the background.
func (n *WebhookNotifier) CallStarted(ctx context.Context, ev Event) {
	ev.Kind = "call_started"
	go n.deliver(ev)
}

// CallEnded delivers a call_ended event in the background.
func (n *WebhookNotifier) CallEnded(ctx context.Context, ev Event) {
	ev.Kind = "call_ended"
	go n.deliver(ev)
}

// deliver runs detached from the webhook request: the transport's response
// must never wait on, or fail because of, the notification channel.
func (n *WebhookNotifier) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := n.post(ctx, ev); err != nil {
		slog.Warn("Lifecycle notification failed",
			slog.String("kind", ev.Kind),
			slog.String("call_id", ev.CallID),
			slog.String("error", err.Error()),
		)
	}
}

func (n *WebhookNotifier) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshaling event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("notify: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: delivery failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// Nop Notifier
// =============================================================================

// NopNotifier discards all events. Used when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) CallStarted(context.Context, Event) {}
func (NopNotifier) CallEnded(context.Context, Event)   {}
