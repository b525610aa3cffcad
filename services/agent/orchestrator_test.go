// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/booklineai/bookline/services/business"
	"github.com/booklineai/bookline/services/llm"
	"github.com/booklineai/bookline/services/session"
)

var testProfile = business.Profile{
	ID:       "waismofit",
	Name:     "Waismo Fit",
	Timezone: "America/Toronto",
	Services: []business.Service{
		{ID: "pt", Label: "Personal training", DurationMinutes: 60, Price: "$85"},
	},
	Policies:    "24 hour cancellation notice.",
	AgentAPIKey: "test-key",
}

// MockClient implements llm.Client for testing.
type MockClient struct {
	calls        int
	chatFunc     func(calls int, messages []llm.ChatMessage) (*llm.ChatWithToolsResult, error)
	lastMessages []llm.ChatMessage
}

func (m *MockClient) ChatWithTools(ctx context.Context, messages []llm.ChatMessage,
	params llm.GenerationParams, tools []llm.ToolDef) (*llm.ChatWithToolsResult, error) {
	m.calls++
	m.lastMessages = messages
	return m.chatFunc(m.calls, messages)
}

// MockExecutor implements ToolExecutor for testing.
type MockExecutor struct {
	calls       int
	executeFunc func(call llm.ToolCallResponse) llm.ChatMessage
}

func (m *MockExecutor) Execute(ctx context.Context, call llm.ToolCallResponse,
	profile business.Profile) llm.ChatMessage {
	m.calls++
	if m.executeFunc != nil {
		return m.executeFunc(call)
	}
	return llm.ChatMessage{Role: "tool", Content: `{"ok":true}`, ToolCallID: call.ID}
}

func newTestSession(utterance string) *session.Session {
	st := session.NewStore(20 * time.Minute)
	s := st.GetOrCreate("CA123")
	s.Append(llm.ChatMessage{Role: "user", Content: utterance})
	return s
}

func TestRunTurn_PlainReply(t *testing.T) {
	client := &MockClient{chatFunc: func(calls int, _ []llm.ChatMessage) (*llm.ChatWithToolsResult, error) {
		return &llm.ChatWithToolsResult{Content: "We open at nine tomorrow.", StopReason: "end"}, nil
	}}
	executor := &MockExecutor{}
	o := NewOrchestrator(client, executor, 3)

	sess := newTestSession("when do you open")
	reply := o.RunTurn(context.Background(), sess, testProfile)

	if reply != "We open at nine tomorrow." {
		t.Errorf("reply = %q", reply)
	}
	if client.calls != 1 {
		t.Errorf("model called %d times, want 1", client.calls)
	}
	if executor.calls != 0 {
		t.Errorf("executor called %d times, want 0", executor.calls)
	}
	// History: system, user, assistant.
	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != "assistant" || last.Content != reply {
		t.Errorf("last message = %+v", last)
	}
}

func TestRunTurn_SystemInstructionRefreshed(t *testing.T) {
	client := &MockClient{chatFunc: func(calls int, messages []llm.ChatMessage) (*llm.ChatWithToolsResult, error) {
		if messages[0].Role != "system" || messages[0].Content == "" {
			t.Errorf("model did not receive a populated system message: %+v", messages[0])
		}
		return &llm.ChatWithToolsResult{Content: "ok"}, nil
	}}
	o := NewOrchestrator(client, &MockExecutor{}, 3)

	sess := newTestSession("hi")
	o.RunTurn(context.Background(), sess, testProfile)

	// Still exactly one system entry after the turn.
	systemCount := 0
	for _, m := range sess.Messages {
		if m.Role == "system" {
			systemCount++
		}
	}
	if systemCount != 1 {
		t.Errorf("history has %d system entries, want 1", systemCount)
	}
}

func TestRunTurn_ToolRoundThenReply(t *testing.T) {
	client := &MockClient{chatFunc: func(calls int, messages []llm.ChatMessage) (*llm.ChatWithToolsResult, error) {
		if calls == 1 {
			return &llm.ChatWithToolsResult{
				ToolCalls: []llm.ToolCallResponse{{
					ID:        "call_1",
					Name:      "check_availability",
					Arguments: json.RawMessage(`{"date":"2025-06-02","timezone":"America/Toronto","durationMinutes":30}`),
				}},
				StopReason: "tool_use",
			}, nil
		}
		// Second round: the tool result must be in the history.
		last := messages[len(messages)-1]
		if last.Role != "tool" || last.ToolCallID != "call_1" {
			t.Errorf("tool result missing from history: %+v", last)
		}
		return &llm.ChatWithToolsResult{Content: "I have ten and two o'clock open."}, nil
	}}
	executor := &MockExecutor{executeFunc: func(call llm.ToolCallResponse) llm.ChatMessage {
		return llm.ChatMessage{Role: "tool", Content: `{"ok":true,"slots":["10:00","14:00"]}`, ToolCallID: call.ID}
	}}
	o := NewOrchestrator(client, executor, 3)

	sess := newTestSession("what times are open tomorrow")
	reply := o.RunTurn(context.Background(), sess, testProfile)

	if reply != "I have ten and two o'clock open." {
		t.Errorf("reply = %q", reply)
	}
	if client.calls != 2 {
		t.Errorf("model called %d times, want 2", client.calls)
	}
	if executor.calls != 1 {
		t.Errorf("executor called %d times, want 1", executor.calls)
	}

	// Order: system, user, assistant(tool_calls), tool, assistant.
	wantRoles := []string{"system", "user", "assistant", "tool", "assistant"}
	if len(sess.Messages) != len(wantRoles) {
		t.Fatalf("history length = %d, want %d", len(sess.Messages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if sess.Messages[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, sess.Messages[i].Role, want)
		}
	}
}

func TestRunTurn_RoundBoundCapsModelCalls(t *testing.T) {
	// The model requests tools on every round; the loop must stop at the
	// bound with the fallback reply and at most bound+1 model calls.
	client := &MockClient{chatFunc: func(calls int, _ []llm.ChatMessage) (*llm.ChatWithToolsResult, error) {
		return &llm.ChatWithToolsResult{
			ToolCalls: []llm.ToolCallResponse{{
				ID:        "call_loop",
				Name:      "check_availability",
				Arguments: json.RawMessage(`{"date":"2025-06-02","timezone":"America/Toronto","durationMinutes":30}`),
			}},
			StopReason: "tool_use",
		}, nil
	}}
	executor := &MockExecutor{}
	o := NewOrchestrator(client, executor, 3)

	sess := newTestSession("keep looking")
	reply := o.RunTurn(context.Background(), sess, testProfile)

	if reply != RoundLimitReply {
		t.Errorf("reply = %q, want round-limit fallback", reply)
	}
	if client.calls != 4 {
		t.Errorf("model called %d times, want bound+1 = 4", client.calls)
	}
	if executor.calls != 3 {
		t.Errorf("executor called %d times, want 3", executor.calls)
	}
}

func TestRunTurn_ModelErrorYieldsApology(t *testing.T) {
	client := &MockClient{chatFunc: func(calls int, _ []llm.ChatMessage) (*llm.ChatWithToolsResult, error) {
		return nil, errors.New("connection reset by peer")
	}}
	o := NewOrchestrator(client, &MockExecutor{}, 3)

	sess := newTestSession("hello")
	reply := o.RunTurn(context.Background(), sess, testProfile)

	if reply != ApologyReply {
		t.Errorf("reply = %q, want apology", reply)
	}
	last := sess.Messages[len(sess.Messages)-1]
	if last.Role != "assistant" || last.Content != ApologyReply {
		t.Errorf("apology not recorded in history: %+v", last)
	}
}

func TestRunTurn_EmptyContentYieldsApology(t *testing.T) {
	client := &MockClient{chatFunc: func(calls int, _ []llm.ChatMessage) (*llm.ChatWithToolsResult, error) {
		return &llm.ChatWithToolsResult{Content: "", StopReason: "end"}, nil
	}}
	o := NewOrchestrator(client, &MockExecutor{}, 3)

	sess := newTestSession("hello")
	if reply := o.RunTurn(context.Background(), sess, testProfile); reply != ApologyReply {
		t.Errorf("reply = %q, want apology for empty content", reply)
	}
}

func TestRunTurn_AssignsSyntheticToolCallIDs(t *testing.T) {
	var seenID string
	client := &MockClient{chatFunc: func(calls int, _ []llm.ChatMessage) (*llm.ChatWithToolsResult, error) {
		if calls == 1 {
			return &llm.ChatWithToolsResult{
				ToolCalls: []llm.ToolCallResponse{{Name: "check_availability", Arguments: json.RawMessage(`{}`)}},
			}, nil
		}
		return &llm.ChatWithToolsResult{Content: "done"}, nil
	}}
	executor := &MockExecutor{executeFunc: func(call llm.ToolCallResponse) llm.ChatMessage {
		seenID = call.ID
		return llm.ChatMessage{Role: "tool", Content: `{"ok":true}`, ToolCallID: call.ID}
	}}
	o := NewOrchestrator(client, executor, 3)

	o.RunTurn(context.Background(), newTestSession("hi"), testProfile)
	if seenID == "" {
		t.Error("executor received a tool call with no ID")
	}
}
