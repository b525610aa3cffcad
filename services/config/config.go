// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the service configuration from the
// environment. The configuration surface is a fixed struct, not dynamically
// discovered: every knob the service honors is enumerated here.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds every runtime setting for the bookline service.
//
// Description:
//
//	Populated from environment variables by Load. Durations accept Go
//	duration syntax ("20m", "10s"). Optional fields may be empty; required
//	fields are enforced with validator tags.
//
// Thread Safety: Immutable after Load; safe for concurrent read access.
type Config struct {
	// Port is the HTTP listen port for the voice webhook server.
	Port int `validate:"required,min=1,max=65535"`

	// OpenAIAPIKey authenticates calls to the chat completions API.
	OpenAIAPIKey string `validate:"required"`

	// OpenAIModel selects the completion model. Defaults to gpt-4o-mini.
	OpenAIModel string `validate:"required"`

	// BookingAPIBaseURL is the base URL of the downstream scheduling API.
	BookingAPIBaseURL string `validate:"required,url"`

	// ResolverBaseURL is the base URL of the number-to-business resolver.
	ResolverBaseURL string `validate:"required,url"`

	// NotifyWebhookURL receives best-effort call lifecycle notifications.
	// Empty disables notifications.
	NotifyWebhookURL string `validate:"omitempty,url"`

	// TTSVoice is the voice selector passed through in spoken responses.
	TTSVoice string `validate:"required"`

	// ProfileCatalogPath overrides the embedded business profile catalog.
	// Empty uses the embedded defaults.
	ProfileCatalogPath string

	// TranscriptDir enables the on-disk transcript archive when set.
	TranscriptDir string

	// SessionTTL is how long an idle call session survives before the
	// sweeper removes it.
	SessionTTL time.Duration `validate:"required,min=1m"`

	// SweepInterval is how often the session sweeper runs.
	SweepInterval time.Duration `validate:"required,min=1s"`

	// ToolTimeout bounds a single downstream tool invocation.
	ToolTimeout time.Duration `validate:"required,min=1s"`

	// MaxToolRounds bounds the model/tool loop per conversational turn.
	MaxToolRounds int `validate:"required,min=1,max=10"`
}

// Load reads configuration from the environment and validates it.
//
// Description:
//
//	Every variable has a sensible default except OPENAI_API_KEY,
//	BOOKING_API_BASE_URL, and RESOLVER_BASE_URL, which are required.
//	Malformed durations or integers fail loudly rather than silently
//	falling back, so a typo in deployment config is caught at startup.
//
// Outputs:
//   - *Config: The validated configuration.
//   - error: Non-nil if a required variable is missing or a value is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               8080,
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        envOr("OPENAI_MODEL", "gpt-4o-mini"),
		BookingAPIBaseURL:  os.Getenv("BOOKING_API_BASE_URL"),
		ResolverBaseURL:    os.Getenv("RESOLVER_BASE_URL"),
		NotifyWebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
		TTSVoice:           envOr("TTS_VOICE", "Polly.Joanna"),
		ProfileCatalogPath: os.Getenv("PROFILE_CATALOG_PATH"),
		TranscriptDir:      os.Getenv("TRANSCRIPT_DIR"),
		SessionTTL:         20 * time.Minute,
		SweepInterval:      60 * time.Second,
		ToolTimeout:        10 * time.Second,
		MaxToolRounds:      3,
	}

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = envDuration("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.ToolTimeout, err = envDuration("TOOL_TIMEOUT", cfg.ToolTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxToolRounds, err = envInt("MAX_TOOL_ROUNDS", cfg.MaxToolRounds); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	slog.Info("Configuration loaded",
		slog.Int("port", cfg.Port),
		slog.String("model", cfg.OpenAIModel),
		slog.Duration("session_ttl", cfg.SessionTTL),
		slog.Duration("tool_timeout", cfg.ToolTimeout),
		slog.Int("max_tool_rounds", cfg.MaxToolRounds),
	)
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration, got %q: %w", key, v, err)
	}
	return d, nil
}
