// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package voice

import (
	"github.com/gin-gonic/gin"
)

// CallEvent is one inbound webhook event from the telephony transport.
//
// Description:
//
//	The transport posts form-encoded fields on every call event. Only the
//	call identifier is strictly required; the rest drive the state
//	transition: an utterance means "process a turn", a terminal status
//	means "clean up", neither means "greet".
type CallEvent struct {
	// CallID is the transport's opaque call identifier (CallSid).
	CallID string

	// To is the dialed number, carrier-formatted (E.164).
	To string

	// From is the caller's number.
	From string

	// Utterance is the transcribed caller speech, empty on first contact.
	Utterance string

	// Status is the call status, set on lifecycle callbacks.
	Status string

	// BusinessID is the continuation token from a prior round-trip,
	// carried in the action URL's query string.
	BusinessID string
}

// terminalStatuses are the call statuses that end a session.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

// ParseCallEvent extracts a CallEvent from a webhook request.
func ParseCallEvent(c *gin.Context) CallEvent {
	return CallEvent{
		CallID:     c.PostForm("CallSid"),
		To:         c.PostForm("To"),
		From:       c.PostForm("From"),
		Utterance:  c.PostForm("SpeechResult"),
		Status:     c.PostForm("CallStatus"),
		BusinessID: c.Query("bid"),
	}
}

// IsTerminal reports whether the event carries a terminal call status.
func (e CallEvent) IsTerminal() bool {
	return terminalStatuses[e.Status]
}
