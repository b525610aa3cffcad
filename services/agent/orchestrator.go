// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent runs the bounded model/tool loop that turns one caller
// utterance into one spoken reply.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/booklineai/bookline/services/booking"
	"github.com/booklineai/bookline/services/business"
	"github.com/booklineai/bookline/services/llm"
	"github.com/booklineai/bookline/services/session"
)

// Canned replies for turn-level failure modes. The caller must always hear
// something; these are the floors under every error path.
const (
	// ApologyReply is spoken when the model call fails or returns nothing.
	ApologyReply = "I'm sorry, I'm having a little trouble on my end. Could you say that once more?"

	// RoundLimitReply is spoken when the model keeps requesting tools past
	// the round bound.
	RoundLimitReply = "Let me look into that and get right back to you. What else can I help you with?"
)

// ToolExecutor dispatches one model-issued tool call. Implemented by
// booking.Executor; tests substitute a stub.
type ToolExecutor interface {
	Execute(ctx context.Context, call llm.ToolCallResponse, profile business.Profile) llm.ChatMessage
}

// Orchestrator drives the ask-model / run-tools loop for one turn.
//
// Description:
//
//	Borrows the session for the duration of RunTurn and appends every
//	assistant and tool message to it in arrival order; it retains no
//	reference afterwards. The loop is bounded: with MaxRounds R the
//	model is consulted at most R+1 times per turn.
//
// Thread Safety: Safe for concurrent use across different sessions. A
// single session must not be passed to concurrent RunTurn calls; the
// transport's per-call serialization guarantees that upstream.
type Orchestrator struct {
	client    llm.Client
	executor  ToolExecutor
	maxRounds int
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator.
//
// Inputs:
//   - client: The completion collaborator.
//   - executor: The tool dispatcher.
//   - maxRounds: Tool rounds allowed per turn before the fallback reply.
func NewOrchestrator(client llm.Client, executor ToolExecutor, maxRounds int) *Orchestrator {
	return &Orchestrator{
		client:    client,
		executor:  executor,
		maxRounds: maxRounds,
		now:       time.Now,
	}
}

// RunTurn produces the assistant reply for the session's latest utterance.
//
// Description:
//
//	Refreshes the session's system instruction from the profile, then
//	loops: ask the model, execute any requested tools, feed the results
//	back, ask again. Terminates when the model answers in plain text or
//	the round bound trips. Every failure mode collapses to a canned
//	reply; this method cannot fail from the caller's perspective.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - sess: The call session. Its history is extended in place.
//   - profile: The resolved business profile.
//
// Outputs:
//   - string: The reply to speak. Guaranteed non-empty.
//
// Thread Safety: See type comment.
func (o *Orchestrator) RunTurn(ctx context.Context, sess *session.Session, profile business.Profile) string {
	start := time.Now()
	defer func() { turnDurationSeconds.Observe(time.Since(start).Seconds()) }()

	ctx, span := otel.Tracer("bookline.agent").Start(ctx, "agent.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("call_id", sess.CallID),
		attribute.String("business_id", profile.ID),
	)

	logger := slog.With(
		slog.String("call_id", sess.CallID),
		slog.String("business_id", profile.ID),
	)

	// The system slot is seeded at session creation; only its content is
	// rewritten here, so the single-system-entry invariant holds.
	sess.Messages[0].Content = SystemInstruction(profile, o.now())

	tools := booking.ToolDefs()

	for round := 0; ; round++ {
		modelCallsTotal.Inc()
		result, err := o.client.ChatWithTools(ctx, sess.Messages, llm.GenerationParams{}, tools)
		if err != nil {
			modelFailuresTotal.Inc()
			fallbackRepliesTotal.WithLabelValues("model_error").Inc()
			logger.Error("Model call failed, using apology reply",
				slog.Int("round", round),
				slog.String("error", llm.SafeLogString(err.Error())),
			)
			sess.Append(llm.ChatMessage{Role: "assistant", Content: ApologyReply})
			return ApologyReply
		}

		if len(result.ToolCalls) == 0 {
			reply := result.Content
			if reply == "" {
				fallbackRepliesTotal.WithLabelValues("empty_content").Inc()
				logger.Warn("Model returned empty content, using apology reply",
					slog.Int("round", round))
				reply = ApologyReply
			}
			sess.Append(llm.ChatMessage{Role: "assistant", Content: reply})
			logger.Debug("Turn complete",
				slog.Int("rounds", round),
				slog.Int("reply_len", len(reply)),
			)
			return reply
		}

		if round >= o.maxRounds {
			fallbackRepliesTotal.WithLabelValues("round_limit").Inc()
			logger.Warn("Tool round bound reached, using fallback reply",
				slog.Int("max_rounds", o.maxRounds),
				slog.Int("pending_tool_calls", len(result.ToolCalls)),
			)
			sess.Append(llm.ChatMessage{Role: "assistant", Content: RoundLimitReply})
			return RoundLimitReply
		}

		// Record the assistant's tool request, then each result, in order.
		assistantMsg := llm.ChatMessage{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		}
		for i := range assistantMsg.ToolCalls {
			if assistantMsg.ToolCalls[i].ID == "" {
				assistantMsg.ToolCalls[i].ID = "call_" + uuid.NewString()
			}
		}
		sess.Append(assistantMsg)

		for _, tc := range assistantMsg.ToolCalls {
			toolCallsTotal.WithLabelValues(tc.Name).Inc()
			logger.Info("Executing tool call",
				slog.Int("round", round),
				slog.String("tool", tc.Name),
				slog.String("tool_call_id", tc.ID),
			)
			sess.Append(o.executor.Execute(ctx, tc, profile))
		}
	}
}
