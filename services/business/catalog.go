// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package business

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Catalog
// =============================================================================

//go:embed profiles.yaml
var defaultCatalogYAML []byte

// catalogFile is the YAML document shape of a profile catalog.
type catalogFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog holds the loaded business profiles, keyed by business ID.
//
// Description:
//
//	Loaded once at startup from the embedded defaults or an override
//	file, and optionally hot-reloaded on file change via fsnotify. A
//	reload swaps the whole map atomically under the mutex; Get hands out
//	a copy of the profile so callers never observe a mid-call swap.
//
// Thread Safety: All methods are safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	path     string
}

// LoadCatalog builds a Catalog from the given path, or from the embedded
// defaults when path is empty.
//
// Outputs:
//   - *Catalog: The loaded catalog.
//   - error: Non-nil if the file is unreadable, malformed, or fails
//     validation.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the profile for a business ID.
//
// Outputs:
//   - Profile: A copy of the profile.
//   - bool: False if the ID is not in the catalog.
func (c *Catalog) Get(id string) (Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	return p, ok
}

// Len returns the number of loaded profiles.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}

// Watch hot-reloads the catalog whenever the override file changes.
//
// Description:
//
//	No-op when the catalog was loaded from the embedded defaults. A
//	failed reload keeps the previous profiles and logs a warning; a
//	broken edit never takes down live calls. Blocks until the watcher
//	errors out or the stop channel closes, so run it in a goroutine.
//
// Inputs:
//   - stop: Closing this channel stops the watch.
//
// Outputs:
//   - error: Non-nil if the watcher cannot be created.
func (c *Catalog) Watch(stop <-chan struct{}) error {
	if c.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("business: creating catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.path); err != nil {
		return fmt.Errorf("business: watching %s: %w", c.path, err)
	}
	slog.Info("Watching profile catalog for changes", slog.String("path", c.path))

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := c.reload(); err != nil {
				slog.Warn("Profile catalog reload failed, keeping previous profiles",
					slog.String("path", c.path),
					slog.String("error", err.Error()),
				)
				continue
			}
			slog.Info("Profile catalog reloaded",
				slog.String("path", c.path),
				slog.Int("profiles", c.Len()),
			)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Profile catalog watcher error", slog.String("error", err.Error()))
		}
	}
}

// reload parses and validates the catalog source, then swaps the map.
func (c *Catalog) reload() error {
	raw := defaultCatalogYAML
	if c.path != "" {
		b, err := os.ReadFile(c.path)
		if err != nil {
			return fmt.Errorf("business: reading catalog %s: %w", c.path, err)
		}
		raw = b
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("business: parsing catalog YAML: %w", err)
	}
	if len(file.Profiles) == 0 {
		return fmt.Errorf("business: catalog contains no profiles")
	}

	validate := validator.New()
	profiles := make(map[string]Profile, len(file.Profiles))
	for i, p := range file.Profiles {
		if err := validate.Struct(p); err != nil {
			return fmt.Errorf("business: profile %d (%s) invalid: %w", i, p.ID, err)
		}
		if _, dup := profiles[p.ID]; dup {
			return fmt.Errorf("business: duplicate profile id %q", p.ID)
		}
		profiles[p.ID] = p
	}

	c.mu.Lock()
	c.profiles = profiles
	c.mu.Unlock()
	return nil
}
