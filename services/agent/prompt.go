// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/booklineai/bookline/services/business"
)

// SystemInstruction builds the grounding prompt for one business.
//
// Description:
//
//	Deterministic given the profile and the clock: the same profile on
//	the same day always produces the same instruction. Real service and
//	date data go in here so the model reasons over facts instead of
//	hallucinating offerings or "tomorrow".
//
// Inputs:
//   - profile: The resolved business profile.
//   - now: The current time; rendered in the business timezone when the
//     timezone parses, UTC otherwise.
//
// Outputs:
//   - string: The system instruction content.
func SystemInstruction(profile business.Profile, now time.Time) string {
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localNow := now.In(loc)

	var b strings.Builder
	fmt.Fprintf(&b, "You are the phone receptionist for %s. ", profile.Name)
	b.WriteString("You are speaking with a caller over a voice line; everything you write will be read aloud. ")
	b.WriteString("Keep replies to one or two short sentences with no lists, no markdown, and no emoji.\n\n")

	fmt.Fprintf(&b, "Today is %s. The business timezone is %s; quote all times in it.\n\n",
		localNow.Format("Monday, January 2, 2006"), profile.Timezone)

	b.WriteString("Services offered:\n")
	for _, svc := range profile.Services {
		fmt.Fprintf(&b, "- %s (id: %s, %d minutes", svc.Label, svc.ID, svc.DurationMinutes)
		if svc.Price != "" {
			fmt.Fprintf(&b, ", %s", svc.Price)
		}
		b.WriteString(")")
		if svc.Description != "" {
			fmt.Fprintf(&b, ": %s", svc.Description)
		}
		b.WriteString("\n")
	}

	if profile.Policies != "" {
		fmt.Fprintf(&b, "\nScheduling policies: %s\n", strings.TrimSpace(profile.Policies))
	}

	b.WriteString("\nUse check_availability before offering any times. ")
	b.WriteString("Only call book_appointment after the caller has confirmed the time, their name, and their phone number. ")
	b.WriteString("If a tool reports an error, tell the caller and ask how they would like to proceed; never invent availability or confirmations.")

	return b.String()
}
