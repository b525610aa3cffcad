// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package voice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers the voice webhook endpoints with the router.
//
// Endpoints:
//
//	POST /voice        - Conversation webhook (greet, turn, terminal)
//	POST /voice/status - Call lifecycle status callbacks
//	GET  /healthz      - Liveness check
//	GET  /metrics      - Prometheus metrics
//
// Inputs:
//
//	router - The gin engine; middleware should already be applied.
//	handlers - The handlers instance.
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	router.POST("/voice", handlers.HandleVoice)
	router.POST("/voice/status", handlers.HandleStatus)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
