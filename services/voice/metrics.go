// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package voice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call-level metrics. Registered once on the default registry and served
// from the /metrics endpoint.
var (
	callsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookline_calls_started_total",
		Help: "Calls that resolved a business and received a greeting.",
	})

	callsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookline_calls_ended_total",
		Help: "Calls ended, by terminal status.",
	}, []string{"status"})

	callsUnresolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookline_calls_unresolved_total",
		Help: "Calls terminated because no business matched the dialed number.",
	})

	turnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookline_turns_total",
		Help: "Caller utterances processed through the agent loop.",
	})

	webhookPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookline_webhook_panics_total",
		Help: "Panics recovered at the webhook boundary.",
	})
)
