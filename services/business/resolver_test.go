// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package business

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/resolve" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("to"); got != "+16477882883" {
			t.Errorf("to = %q", got)
		}
		w.Write([]byte(`{"businessId":"waismofit"}`))
	}))
	defer srv.Close()

	id, err := NewResolver(srv.URL).Resolve(context.Background(), "+16477882883")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "waismofit" {
		t.Errorf("id = %q", id)
	}
}

func TestResolve_NotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such number", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewResolver(srv.URL).Resolve(context.Background(), "+15550000000")
	if !errors.Is(err, ErrBusinessNotFound) {
		t.Errorf("err = %v, want ErrBusinessNotFound", err)
	}
}

func TestResolve_ServerErrorDowngrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewResolver(srv.URL).Resolve(context.Background(), "+15550000000")
	if !errors.Is(err, ErrBusinessNotFound) {
		t.Errorf("err = %v, want ErrBusinessNotFound", err)
	}
}

func TestResolve_TransportErrorDowngrades(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewResolver(srv.URL).Resolve(context.Background(), "+15550000000")
	if !errors.Is(err, ErrBusinessNotFound) {
		t.Errorf("err = %v, want ErrBusinessNotFound", err)
	}
}

func TestResolve_MalformedBodyDowngrades(t *testing.T) {
	cases := map[string]string{
		"not json":    `<html>oops</html>`,
		"empty id":    `{"businessId":""}`,
		"wrong shape": `{"id":"waismofit"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewResolver(srv.URL).Resolve(context.Background(), "+15550000000")
			if !errors.Is(err, ErrBusinessNotFound) {
				t.Errorf("err = %v, want ErrBusinessNotFound", err)
			}
		})
	}
}
