// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package transcript archives completed call transcripts to a local badger
// store. The archive is strictly best-effort: the in-memory session store
// remains the source of truth during a call, and an archive failure never
// touches caller-facing behavior.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/booklineai/bookline/services/llm"
)

// Record is one archived call.
type Record struct {
	CallID     string            `json:"call_id"`
	BusinessID string            `json:"business_id"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Messages   []llm.ChatMessage `json:"messages"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    time.Time         `json:"ended_at"`
	Outcome    string            `json:"outcome"`
}

// Archive persists call records. A nil *Archive is valid and silently
// discards writes, which keeps call-end handling free of nil checks when
// the archive is disabled.
//
// Thread Safety: Archive is safe for concurrent use; badger handles its
// own locking.
type Archive struct {
	db *badger.DB
}

// Open creates or opens the archive at dir.
//
// Outputs:
//   - *Archive: The opened archive.
//   - error: Non-nil if badger cannot open the directory.
func Open(dir string) (*Archive, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("transcript: opening archive at %s: %w", dir, err)
	}
	slog.Info("Transcript archive opened", slog.String("dir", dir))
	return &Archive{db: db}, nil
}

// Save writes one call record, keyed by call ID.
//
// Description:
//
//	Failures are logged and swallowed; the caller has already hung up
//	and there is nobody to surface the error to.
func (a *Archive) Save(rec Record) {
	if a == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("Transcript record not marshalable",
			slog.String("call_id", rec.CallID),
			slog.String("error", err.Error()),
		)
		return
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("call/"+rec.CallID), payload)
	})
	if err != nil {
		slog.Warn("Transcript archive write failed",
			slog.String("call_id", rec.CallID),
			slog.String("error", err.Error()),
		)
		return
	}
	slog.Debug("Transcript archived",
		slog.String("call_id", rec.CallID),
		slog.Int("messages", len(rec.Messages)),
	)
}

// Load reads one archived record by call ID.
//
// Outputs:
//   - *Record: The record, or nil when absent.
//   - error: Non-nil on storage failure or corrupt payload.
func (a *Archive) Load(callID string) (*Record, error) {
	if a == nil {
		return nil, nil
	}
	var rec Record
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("call/" + callID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: loading %s: %w", callID, err)
	}
	return &rec, nil
}

// Close flushes and closes the underlying store.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}
