// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewOpenAIClient("sk-test-key-aaaaaaaaaaaaaaaaaaaa", "gpt-4o-mini", server.URL)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	return client
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIClient("", "gpt-4o-mini", ""); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestChatWithTools_PlainContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"We open at nine."},"finish_reason":"stop"}]}`)
	})

	result, err := client.ChatWithTools(context.Background(), []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "when do you open"},
	}, GenerationParams{}, nil)
	if err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}
	if result.Content != "We open at nine." {
		t.Errorf("Content = %q", result.Content)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %d, want 0", len(result.ToolCalls))
	}
	if result.StopReason != "end" {
		t.Errorf("StopReason = %q, want %q", result.StopReason, "end")
	}
}

func TestChatWithTools_ParsesToolCalls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","tool_calls":[{"id":"call_1","type":"function","function":{"name":"check_availability","arguments":"{\"date\":\"2025-06-02\"}"}}]},"finish_reason":"tool_calls"}]}`)
	})

	result, err := client.ChatWithTools(context.Background(), []ChatMessage{
		{Role: "user", Content: "what's open tomorrow"},
	}, GenerationParams{}, nil)
	if err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "check_availability" {
		t.Errorf("tool call = %+v", tc)
	}
	if result.StopReason != "tool_use" {
		t.Errorf("StopReason = %q, want %q", result.StopReason, "tool_use")
	}
}

func TestChatWithTools_SendsToolSchemaAndHistory(t *testing.T) {
	var captured openaiRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body not JSON: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-key-aaaaaaaaaaaaaaaaaaaa" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	})

	tools := []ToolDef{{
		Type: "function",
		Function: ToolFunction{
			Name:        "check_availability",
			Description: "d",
			Parameters:  ToolParameters{Type: "object"},
		},
	}}
	messages := []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCalls: []ToolCallResponse{{ID: "call_1", Name: "check_availability", Arguments: json.RawMessage(`{"date":"2025-06-02"}`)}}},
		{Role: "tool", Content: `{"ok":true}`, ToolCallID: "call_1"},
	}

	if _, err := client.ChatWithTools(context.Background(), messages, GenerationParams{}, tools); err != nil {
		t.Fatalf("ChatWithTools: %v", err)
	}

	if len(captured.Messages) != 4 {
		t.Fatalf("sent %d messages, want 4", len(captured.Messages))
	}
	if captured.ToolChoice != "auto" {
		t.Errorf("tool_choice = %q, want %q", captured.ToolChoice, "auto")
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "check_availability" {
		t.Errorf("tools = %+v", captured.Tools)
	}
	if captured.Messages[3].ToolCallID != "call_1" {
		t.Errorf("tool result message lost its tool_call_id: %+v", captured.Messages[3])
	}
	if len(captured.Messages[2].ToolCalls) != 1 {
		t.Errorf("assistant tool calls not forwarded: %+v", captured.Messages[2])
	}
}

func TestChatWithTools_APIErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"type":"rate_limit","message":"slow down"}}`)
	})

	if _, err := client.ChatWithTools(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, GenerationParams{}, nil); err == nil {
		t.Error("expected error for 429 response")
	}
}

func TestChatWithTools_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","choices":[]}`)
	})

	if _, err := client.ChatWithTools(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, GenerationParams{}, nil); err == nil {
		t.Error("expected error for empty choices")
	}
}
