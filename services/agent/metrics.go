// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Turn-level metrics. Registered once on the default registry and served
// from the /metrics endpoint.
var (
	modelCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookline_model_calls_total",
		Help: "Completion API calls issued by the agent loop.",
	})

	modelFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookline_model_failures_total",
		Help: "Completion API calls that returned an error.",
	})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookline_tool_calls_total",
		Help: "Model-issued tool invocations, by tool name.",
	}, []string{"tool"})

	fallbackRepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookline_fallback_replies_total",
		Help: "Turns that ended in a canned fallback reply, by reason.",
	}, []string{"reason"})

	turnDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookline_turn_duration_seconds",
		Help:    "Wall time of one conversational turn, including tool rounds.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	})
)
