// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/booklineai/bookline/services/business"
	"github.com/booklineai/bookline/services/llm"
)

// Executor dispatches model-issued tool calls to the scheduling API.
//
// Description:
//
//	Every outcome, success or failure, becomes a tool-result message fed
//	back into the model's context. The executor never returns an error
//	to its caller: a malformed argument, an unknown tool, or a downstream
//	timeout all produce an {ok:false, error:...} result the model can
//	react to conversationally.
//
// Thread Safety: Executor is safe for concurrent use.
type Executor struct {
	client  *Client
	timeout time.Duration
}

// NewExecutor creates an Executor over the given client. The timeout bounds
// each individual tool invocation.
func NewExecutor(client *Client, timeout time.Duration) *Executor {
	return &Executor{client: client, timeout: timeout}
}

// toolResult is the JSON envelope serialized into tool-result content.
type toolResult struct {
	OK           bool     `json:"ok"`
	Error        string   `json:"error,omitempty"`
	Slots        []string `json:"slots,omitempty"`
	Confirmation string   `json:"confirmation,omitempty"`
	Conflict     bool     `json:"conflict,omitempty"`
}

// Execute runs one tool call and returns the paired tool-result message.
//
// Description:
//
//	Arguments are validated before anything touches the network; missing
//	required fields produce a structured error so the model can ask the
//	caller to clarify. book_appointment is invoked at most once per
//	model-issued request: an ambiguous failure is reported as failed,
//	never retried here, because a retry whose first response was lost
//	could double-book.
//
// Inputs:
//   - ctx: Context for cancellation; a per-call timeout is layered on top.
//   - call: The model-issued tool call.
//   - profile: The resolved business profile supplying the credential.
//
// Outputs:
//   - llm.ChatMessage: A role "tool" message with the call's ID and a
//     JSON result body. Always well-formed.
//
// Thread Safety: This method is safe for concurrent use.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCallResponse, profile business.Profile) llm.ChatMessage {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	logger := slog.With(
		slog.String("tool", call.Name),
		slog.String("tool_call_id", call.ID),
		slog.String("business_id", profile.ID),
	)

	var result toolResult
	switch call.Name {
	case ToolCheckAvailability:
		result = e.checkAvailability(ctx, call, profile, logger)
	case ToolBookAppointment:
		result = e.bookAppointment(ctx, call, profile, logger)
	default:
		logger.Warn("Model requested unknown tool")
		result = toolResult{OK: false, Error: "unknown tool"}
	}

	return toolResultMessage(call.ID, result)
}

func (e *Executor) checkAvailability(ctx context.Context, call llm.ToolCallResponse,
	profile business.Profile, logger *slog.Logger) toolResult {

	var req AvailabilityRequest
	if err := json.Unmarshal([]byte(call.ArgumentsString()), &req); err != nil {
		logger.Warn("Malformed check_availability arguments", slog.String("error", err.Error()))
		return toolResult{OK: false, Error: "malformed arguments: " + err.Error()}
	}

	var missing []string
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.Timezone == "" {
		// The model usually supplies this; fall back to the profile
		// rather than bouncing the call back for a knowable value.
		req.Timezone = profile.Timezone
	}
	if req.DurationMinutes <= 0 {
		missing = append(missing, "durationMinutes")
	}
	if len(missing) > 0 {
		logger.Warn("check_availability missing arguments", slog.String("missing", strings.Join(missing, ",")))
		return toolResult{OK: false, Error: "missing required arguments: " + strings.Join(missing, ", ")}
	}

	resp, err := e.client.Availability(ctx, req, profile.AgentAPIKey)
	if err != nil {
		logger.Warn("Availability query failed", slog.String("error", llm.SafeLogString(err.Error())))
		return toolResult{OK: false, Error: "availability lookup failed: " + llm.SafeLogString(err.Error())}
	}

	logger.Debug("Availability query succeeded", slog.Int("slots", len(resp.Slots)))
	return toolResult{OK: true, Slots: resp.Slots}
}

func (e *Executor) bookAppointment(ctx context.Context, call llm.ToolCallResponse,
	profile business.Profile, logger *slog.Logger) toolResult {

	var req BookRequest
	if err := json.Unmarshal([]byte(call.ArgumentsString()), &req); err != nil {
		logger.Warn("Malformed book_appointment arguments", slog.String("error", err.Error()))
		return toolResult{OK: false, Error: "malformed arguments: " + err.Error()}
	}

	var missing []string
	if req.Start == "" {
		missing = append(missing, "start")
	}
	if req.GuestName == "" {
		missing = append(missing, "guestName")
	}
	if req.GuestPhone == "" {
		missing = append(missing, "guestPhone")
	}
	if len(missing) > 0 {
		logger.Warn("book_appointment missing arguments", slog.String("missing", strings.Join(missing, ",")))
		return toolResult{OK: false, Error: "missing required arguments: " + strings.Join(missing, ", ")}
	}

	// At most one attempt per model-issued call. A timeout here is
	// reported as failed; whether to try again is the model's decision
	// on a later turn, after the caller re-confirms.
	resp, err := e.client.Book(ctx, req, profile.AgentAPIKey)
	if err != nil {
		logger.Warn("Booking attempt failed", slog.String("error", llm.SafeLogString(err.Error())))
		return toolResult{OK: false, Error: "booking failed: " + llm.SafeLogString(err.Error())}
	}

	if resp.Conflict {
		logger.Info("Booking conflict", slog.String("start", req.Start))
		return toolResult{OK: false, Conflict: true, Error: "slot no longer available"}
	}

	logger.Info("Booking confirmed",
		slog.String("start", req.Start),
		slog.String("confirmation", resp.Confirmation),
	)
	return toolResult{OK: true, Confirmation: resp.Confirmation}
}

// toolResultMessage serializes a result into a role "tool" message.
func toolResultMessage(callID string, result toolResult) llm.ChatMessage {
	content, err := json.Marshal(result)
	if err != nil {
		// toolResult contains only marshalable fields; this is unreachable
		// in practice but the fallback keeps the contract of always
		// producing well-formed content.
		content = []byte(`{"ok":false,"error":"internal result encoding failure"}`)
	}
	return llm.ChatMessage{
		Role:       "tool",
		Content:    string(content),
		ToolCallID: callID,
	}
}
