// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/booklineai/bookline/services/agent"
	"github.com/booklineai/bookline/services/booking"
	"github.com/booklineai/bookline/services/business"
	"github.com/booklineai/bookline/services/config"
	"github.com/booklineai/bookline/services/llm"
	"github.com/booklineai/bookline/services/notify"
	"github.com/booklineai/bookline/services/session"
	"github.com/booklineai/bookline/services/transcript"
	"github.com/booklineai/bookline/services/voice"
)

func runServe(_ *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if serveDebug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	// W3C TraceContext propagation so webhook handling correlates with
	// upstream traces. A debug exporter is opt-in; without it the global
	// tracer is a no-op and spans cost nothing.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if os.Getenv("OTEL_DEBUG") != "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("creating trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	catalog, err := business.LoadCatalog(cfg.ProfileCatalogPath)
	if err != nil {
		return err
	}
	slog.Info("Business profiles loaded", slog.Int("profiles", catalog.Len()))

	modelClient, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, os.Getenv("OPENAI_BASE_URL"))
	if err != nil {
		return err
	}

	bookingClient := booking.NewClient(cfg.BookingAPIBaseURL, cfg.ToolTimeout)
	executor := booking.NewExecutor(bookingClient, cfg.ToolTimeout)
	orchestrator := agent.NewOrchestrator(modelClient, executor, cfg.MaxToolRounds)
	resolver := business.NewResolver(cfg.ResolverBaseURL)
	store := session.NewStore(cfg.SessionTTL)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL)
		slog.Info("Lifecycle notifications enabled")
	}

	var archive *transcript.Archive
	if cfg.TranscriptDir != "" {
		archive, err = transcript.Open(cfg.TranscriptDir)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	handlers := voice.NewHandlers(store, resolver, catalog, orchestrator, notifier, archive, cfg.TTSVoice)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("bookline"))
	voice.RegisterRoutes(router, handlers)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Voice webhook server listening", slog.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		store.StartSweeper(gctx, cfg.SweepInterval)
		return nil
	})

	g.Go(func() error {
		return catalog.Watch(gctx.Done())
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}
