// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command bookline runs the voice booking agent service.
//
// The service bridges telephony webhooks to a tool-calling language model
// agent so callers can book appointments by voice:
//   - Per-call conversation state across stateless webhook events
//   - Dialed-number to business resolution with profile catalog
//   - Bounded model/tool rounds per conversational turn
//   - Graceful degradation: the caller always hears a valid response
//
// Usage:
//
//	bookline serve
//	bookline serve --port 9090 --debug
//	bookline profiles validate --path ./profiles.yaml
//
// Required environment:
//
//	OPENAI_API_KEY        Completion API credential
//	BOOKING_API_BASE_URL  Scheduling API base URL
//	RESOLVER_BASE_URL     Number-to-business resolver base URL
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/booklineai/bookline/services/business"
)

var (
	servePort  int
	serveDebug bool

	validatePath string
)

func main() {
	root := &cobra.Command{
		Use:   "bookline",
		Short: "Voice booking agent service",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the voice webhook server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging and gin debug mode")

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Business profile catalog tools",
	}
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a profile catalog",
		RunE:  runProfilesValidate,
	}
	validateCmd.Flags().StringVar(&validatePath, "path", "", "Catalog file (empty validates the embedded defaults)")
	profilesCmd.AddCommand(validateCmd)

	root.AddCommand(serveCmd, profilesCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runProfilesValidate(_ *cobra.Command, _ []string) error {
	catalog, err := business.LoadCatalog(validatePath)
	if err != nil {
		return err
	}
	slog.Info("Catalog is valid", slog.Int("profiles", catalog.Len()))
	fmt.Printf("ok: %d profiles\n", catalog.Len())
	return nil
}
