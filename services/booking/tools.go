// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package booking

import (
	"github.com/booklineai/bookline/services/llm"
)

// Tool names the model may invoke.
const (
	ToolCheckAvailability = "check_availability"
	ToolBookAppointment   = "book_appointment"
)

// ToolDefs returns the fixed tool schema offered to the model on every
// completion request.
//
// Description:
//
//	Exactly two tools: check_availability for open slots and
//	book_appointment to secure one. The schema never varies per business;
//	per-business context (services, policies, timezone) lives in the
//	system instruction instead.
//
// Thread Safety: Returns a fresh slice each call; safe for concurrent use.
func ToolDefs() []llm.ToolDef {
	return []llm.ToolDef{
		{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        ToolCheckAvailability,
				Description: "Check open appointment slots for a given date. Returns a list of start times in the business timezone.",
				Parameters: llm.ToolParameters{
					Type: "object",
					Properties: map[string]llm.ToolParamDef{
						"date": {
							Type:        "string",
							Description: "Calendar date to check, formatted YYYY-MM-DD.",
						},
						"timezone": {
							Type:        "string",
							Description: "IANA timezone the caller expects times in, e.g. America/Toronto.",
						},
						"durationMinutes": {
							Type:        "integer",
							Description: "Appointment length in minutes, taken from the selected service.",
						},
					},
					Required: []string{"date", "timezone", "durationMinutes"},
				},
			},
		},
		{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        ToolBookAppointment,
				Description: "Book an appointment at a specific start time. Only call this after the caller has confirmed the time, their name, and their phone number.",
				Parameters: llm.ToolParameters{
					Type: "object",
					Properties: map[string]llm.ToolParamDef{
						"start": {
							Type:        "string",
							Description: "Appointment start time, exactly as returned by check_availability.",
						},
						"guestName": {
							Type:        "string",
							Description: "Caller's full name.",
						},
						"guestEmail": {
							Type:        "string",
							Description: "Caller's email address, if offered.",
						},
						"guestPhone": {
							Type:        "string",
							Description: "Caller's phone number.",
						},
					},
					Required: []string{"start", "guestName", "guestPhone"},
				},
			},
		},
	}
}
