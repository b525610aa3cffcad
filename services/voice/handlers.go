// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package voice is the call state machine: the top-level controller invoked
// once per webhook event. It decides between greeting, processing a turn,
// and cleaning up, and guarantees every code path returns well-formed TwiML.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/booklineai/bookline/services/business"
	"github.com/booklineai/bookline/services/llm"
	"github.com/booklineai/bookline/services/notify"
	"github.com/booklineai/bookline/services/session"
	"github.com/booklineai/bookline/services/transcript"
)

// Caller-facing canned lines for the failure paths the state machine owns.
const (
	// unresolvedMessage ends a call whose dialed number maps to no business.
	unresolvedMessage = "Sorry, this number is not set up for phone bookings yet. Please try again later. Goodbye."

	// internalApologyMessage ends a call after an unexpected internal fault.
	internalApologyMessage = "I'm sorry, something went wrong on our end. Please call back in a few minutes."
)

// Resolver maps a dialed number to a business identifier.
// Implemented by business.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, dialed string) (string, error)
}

// ProfileSource returns business profiles by identifier.
// Implemented by business.Catalog.
type ProfileSource interface {
	Get(id string) (business.Profile, bool)
}

// TurnRunner produces one assistant reply for the session's latest
// utterance. Implemented by agent.Orchestrator.
type TurnRunner interface {
	RunTurn(ctx context.Context, sess *session.Session, profile business.Profile) string
}

// Handlers owns the webhook endpoints and wires the collaborators together.
//
// Thread Safety: Handlers is safe for concurrent use; per-call state lives
// in the session store.
type Handlers struct {
	store        *session.Store
	resolver     Resolver
	profiles     ProfileSource
	orchestrator TurnRunner
	notifier     notify.Notifier
	archive      *transcript.Archive
	voice        string
}

// NewHandlers creates the webhook handlers.
//
// Inputs:
//   - store: The session store (owns call session lifetime).
//   - resolver: The number-to-business resolver.
//   - profiles: The profile catalog.
//   - orchestrator: The agent turn runner.
//   - notifier: Best-effort lifecycle notifications.
//   - archive: Transcript archive; nil disables archiving.
//   - voice: The TTS voice selector for all spoken responses.
func NewHandlers(store *session.Store, resolver Resolver, profiles ProfileSource,
	orchestrator TurnRunner, notifier notify.Notifier, archive *transcript.Archive,
	voice string) *Handlers {
	return &Handlers{
		store:        store,
		resolver:     resolver,
		profiles:     profiles,
		orchestrator: orchestrator,
		notifier:     notifier,
		archive:      archive,
		voice:        voice,
	}
}

// getOrCreateRequestID returns the inbound request ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// gatherAction builds the continuation URL for the next round-trip. The
// resolved business identifier rides in the query string because the
// transport is stateless between events.
func gatherAction(businessID string) string {
	return "/voice?bid=" + url.QueryEscape(businessID)
}

// HandleVoice handles POST /voice, the main conversation webhook.
//
// Description:
//
//	One invocation per call event. No utterance and no terminal status
//	means first contact: resolve the business and greet. An utterance
//	means a turn: run the agent loop and speak the reply. A terminal
//	status means cleanup. Every path, including panic recovery, writes
//	well-formed TwiML; the transport never sees a raw error.
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleVoice(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleVoice")

	// Nothing may escape the webhook boundary unhandled. A panic
	// anywhere below becomes a spoken apology, not a 500.
	defer func() {
		if r := recover(); r != nil {
			webhookPanicsTotal.Inc()
			logger.Error("Recovered panic in voice webhook",
				slog.Any("panic", r),
			)
			if !c.Writer.Written() {
				c.XML(http.StatusOK, SpeakAndHangup(internalApologyMessage, h.voice))
			}
		}
	}()

	ev := ParseCallEvent(c)
	if ev.CallID == "" {
		logger.Warn("Webhook event missing call identifier")
		c.XML(http.StatusOK, SpeakAndHangup(internalApologyMessage, h.voice))
		return
	}
	logger = logger.With(slog.String("call_id", ev.CallID))

	if ev.IsTerminal() {
		h.endCall(c.Request.Context(), ev, logger)
		c.XML(http.StatusOK, EmptyAck())
		return
	}

	sess := h.store.GetOrCreate(ev.CallID)
	if sess.From == "" {
		sess.From = ev.From
		sess.To = ev.To
	}

	// Resolve the business exactly once per call. An identifier carried
	// over from a prior round-trip is trusted as-is; only a truly fresh
	// call queries the resolver.
	firstContact := sess.BusinessID == ""
	if firstContact {
		id := ev.BusinessID
		if id == "" {
			var err error
			id, err = h.resolver.Resolve(c.Request.Context(), ev.To)
			if err != nil {
				callsUnresolvedTotal.Inc()
				logger.Warn("No business for dialed number, ending call",
					slog.String("to", ev.To),
				)
				h.store.Delete(ev.CallID)
				c.XML(http.StatusOK, SpeakAndHangup(unresolvedMessage, h.voice))
				return
			}
		}
		sess.BusinessID = id
	}
	logger = logger.With(slog.String("business_id", sess.BusinessID))

	profile, ok := h.profiles.Get(sess.BusinessID)
	if !ok {
		callsUnresolvedTotal.Inc()
		logger.Error("Resolved business has no profile in catalog")
		h.store.Delete(ev.CallID)
		c.XML(http.StatusOK, SpeakAndHangup(unresolvedMessage, h.voice))
		return
	}

	if ev.Utterance == "" {
		// First turn (or a gather that timed out): greet and listen.
		if firstContact {
			callsStartedTotal.Inc()
			h.notifier.CallStarted(c.Request.Context(), notify.Event{
				CallID:     ev.CallID,
				BusinessID: sess.BusinessID,
				From:       sess.From,
				To:         sess.To,
			})
		}
		greeting := fmt.Sprintf("Thank you for calling %s. How can I help you today?", profile.Name)
		logger.Info("Greeting caller")
		c.XML(http.StatusOK, SpeakAndGather(greeting, h.voice, gatherAction(sess.BusinessID)))
		return
	}

	// A turn: append the utterance, run the agent loop, speak the reply.
	turnsTotal.Inc()
	logger.Info("Processing caller turn", slog.Int("utterance_len", len(ev.Utterance)))
	sess.Append(userMessage(ev.Utterance))

	reply := h.orchestrator.RunTurn(c.Request.Context(), sess, profile)
	spoken := CleanForSpeech(reply)
	if spoken == "" {
		// RunTurn guarantees non-empty, but cleaning could in theory
		// strip everything; keep the floor.
		spoken = internalApologyMessage
	}
	c.XML(http.StatusOK, SpeakAndGather(spoken, h.voice, gatherAction(sess.BusinessID)))
}

// HandleStatus handles POST /voice/status, the lifecycle callback endpoint.
//
// Description:
//
//	Terminal statuses tear down the session; everything else is
//	acknowledged and ignored. This always succeeds: notification and
//	archiving are best-effort and cannot block or fail the response.
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleStatus(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStatus")

	defer func() {
		if r := recover(); r != nil {
			webhookPanicsTotal.Inc()
			logger.Error("Recovered panic in status webhook", slog.Any("panic", r))
			if !c.Writer.Written() {
				c.XML(http.StatusOK, EmptyAck())
			}
		}
	}()

	ev := ParseCallEvent(c)
	if ev.CallID != "" && ev.IsTerminal() {
		h.endCall(c.Request.Context(), ev, logger.With(slog.String("call_id", ev.CallID)))
	}
	c.XML(http.StatusOK, EmptyAck())
}

// endCall tears down a session on a terminal status.
//
// The session is deleted first; notification and archiving work from a
// snapshot so a slow or failing side channel can never resurrect state or
// delay the acknowledgment.
func (h *Handlers) endCall(ctx context.Context, ev CallEvent, logger *slog.Logger) {
	callsEndedTotal.WithLabelValues(ev.Status).Inc()

	sess, ok := h.store.Get(ev.CallID)
	if !ok {
		logger.Debug("Terminal status for unknown call", slog.String("status", ev.Status))
		return
	}

	snapshot := *sess
	h.store.Delete(ev.CallID)
	logger.Info("Call ended",
		slog.String("status", ev.Status),
		slog.Int("messages", len(snapshot.Messages)),
	)

	endedAt := time.Now()
	h.notifier.CallEnded(ctx, notify.Event{
		CallID:          snapshot.CallID,
		BusinessID:      snapshot.BusinessID,
		From:            snapshot.From,
		To:              snapshot.To,
		Outcome:         ev.Status,
		DurationSeconds: int(endedAt.Sub(snapshot.StartedAt).Seconds()),
	})

	h.archive.Save(transcript.Record{
		CallID:     snapshot.CallID,
		BusinessID: snapshot.BusinessID,
		From:       snapshot.From,
		To:         snapshot.To,
		Messages:   snapshot.Messages,
		StartedAt:  snapshot.StartedAt,
		EndedAt:    endedAt,
		Outcome:    ev.Status,
	})
}

// userMessage wraps a caller utterance as a history entry.
func userMessage(utterance string) llm.ChatMessage {
	return llm.ChatMessage{Role: "user", Content: utterance}
}
