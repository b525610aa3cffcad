// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session owns per-call conversation state. The telephony transport
// is stateless between webhook events; this store is what stitches a call's
// turns back into one conversation.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/booklineai/bookline/services/llm"
)

// Session is the conversation state for one phone call.
//
// Description:
//
//	Created lazily on the first webhook event for a call identifier and
//	destroyed on the terminal status event or by the idle sweeper.
//	Messages always begin with exactly one system entry, seeded at
//	creation; the orchestrator rewrites its content each turn from the
//	resolved business profile.
//
// Thread Safety: The transport serializes events per call, so a Session is
// only ever touched by one in-flight webhook at a time. The Store defends
// the map itself, not individual sessions. The one exception is the
// activity stamp: the sweeper goroutine reads it while a turn may be
// appending, so it lives behind an atomic rather than the store lock.
type Session struct {
	// CallID is the opaque call identifier from the transport.
	CallID string

	// BusinessID is the resolved business identity. Set exactly once per
	// call, never changed afterwards.
	BusinessID string

	// From is the caller's number, kept for lifecycle notifications.
	From string

	// To is the dialed number.
	To string

	// Messages is the ordered conversation history. Index 0 is always
	// the single system entry.
	Messages []llm.ChatMessage

	// StartedAt is when the session was created.
	StartedAt time.Time

	// lastActive is the time of the last mutation in Unix nanoseconds,
	// used for expiry. Atomic because the sweeper reads it from its own
	// goroutine; a pointer so session snapshots stay plain value copies.
	lastActive *atomic.Int64
}

// Append adds a message to the history and refreshes the activity stamp.
func (s *Session) Append(msg llm.ChatMessage) {
	s.Messages = append(s.Messages, msg)
	s.touch()
}

// LastActiveAt returns the time of the last mutation.
func (s *Session) LastActiveAt() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// Store maps call identifiers to sessions with idle expiry.
//
// Description:
//
//	The map is the only shared mutable structure in the service. All
//	operations take the lock for the whole read-modify-write so an
//	insertion racing a sweep can never resurrect or duplicate a session.
//
// Thread Safety: All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewStore creates a Store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// GetOrCreate returns the session for a call, creating it if absent.
//
// Description:
//
//	A fresh session is seeded with its single system message. Fetching
//	an existing session refreshes the activity stamp and never re-seeds,
//	so repeated calls can never duplicate the system entry.
//
// Outputs:
//   - *Session: The session; identical object across repeated calls for
//     the same identifier until it is deleted or swept.
func (st *Store) GetOrCreate(callID string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[callID]; ok {
		s.touch()
		return s
	}

	now := time.Now()
	s := &Session{
		CallID:     callID,
		Messages:   []llm.ChatMessage{{Role: "system"}},
		StartedAt:  now,
		lastActive: &atomic.Int64{},
	}
	s.lastActive.Store(now.UnixNano())
	st.sessions[callID] = s
	slog.Debug("Session created", slog.String("call_id", callID))
	return s
}

// Get returns the session for a call without creating one.
func (st *Store) Get(callID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[callID]
	return s, ok
}

// Delete removes a session. Deleting an absent identifier is a no-op.
func (st *Store) Delete(callID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[callID]; ok {
		delete(st.sessions, callID)
		slog.Debug("Session deleted", slog.String("call_id", callID))
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes every session idle longer than the TTL.
//
// Outputs:
//   - int: The number of sessions removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := time.Now().Add(-st.ttl).UnixNano()
	removed := 0
	for id, s := range st.sessions {
		if s.lastActive.Load() < cutoff {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("Swept idle sessions",
			slog.Int("removed", removed),
			slog.Int("remaining", len(st.sessions)),
		)
	}
	return removed
}

// StartSweeper runs Sweep on a fixed interval until the context is done.
//
// Description:
//
//	A hung-up call whose terminal status webhook never arrived is the
//	normal case this catches; the TTL is generous (20 minutes by
//	default) because live calls refresh the activity stamp every turn.
//
// Thread Safety: Safe to run concurrently with all other Store methods.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
