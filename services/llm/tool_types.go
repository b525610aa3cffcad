// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the chat completion client used by the voice agent,
// including function-calling support. The wire types follow the OpenAI
// function calling schema.
package llm

import (
	"context"
	"encoding/json"
)

// ToolDef is the tool definition passed to ChatWithTools.
//
// Description:
//
//	Describes one callable tool in the OpenAI function calling schema.
//	The booking service builds two of these (check_availability and
//	book_appointment) and hands them to every completion request.
//
// Thread Safety: ToolDef is immutable and safe for concurrent read access.
type ToolDef struct {
	// Type is the tool type. Always "function" for function calling.
	Type string `json:"type"`

	// Function contains the function definition.
	Function ToolFunction `json:"function"`
}

// ToolFunction contains the function name, description, and parameter schema.
type ToolFunction struct {
	// Name is the function name the model will call.
	Name string `json:"name"`

	// Description explains what the function does.
	Description string `json:"description"`

	// Parameters defines the JSON Schema for function parameters.
	Parameters ToolParameters `json:"parameters"`
}

// ToolParameters defines the JSON Schema for tool parameters.
type ToolParameters struct {
	// Type is the JSON Schema type. Always "object" for tool parameters.
	Type string `json:"type"`

	// Properties maps parameter names to their definitions.
	Properties map[string]ToolParamDef `json:"properties,omitempty"`

	// Required lists parameter names that must be provided.
	Required []string `json:"required,omitempty"`
}

// ToolParamDef defines a single parameter in JSON Schema format.
type ToolParamDef struct {
	// Type is the JSON Schema type (string, integer, boolean, number).
	Type string `json:"type"`

	// Description explains what the parameter is for.
	Description string `json:"description,omitempty"`

	// Enum restricts values to a set of options.
	Enum []any `json:"enum,omitempty"`
}

// ChatMessage is one entry in a call's conversation history.
//
// Description:
//
//	Regular messages use Role + Content. Assistant messages that request
//	tools carry ToolCalls; tool result messages carry the ToolCallID that
//	links them back to the request. The session store holds the full
//	ordered history of these per call.
//
// Thread Safety: ChatMessage is safe for concurrent read access.
type ChatMessage struct {
	// Role is the message role: "system", "user", "assistant", or "tool".
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations (for assistant messages).
	ToolCalls []ToolCallResponse `json:"tool_calls,omitempty"`

	// ToolCallID links this message back to a specific tool call
	// (for tool result messages).
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCallResponse represents one model-issued tool call.
type ToolCallResponse struct {
	// ID is the unique identifier for this tool call, used to pair the
	// eventual tool result with the request.
	ID string `json:"id"`

	// Name is the function name to call.
	Name string `json:"name"`

	// Arguments is the raw JSON arguments payload from the model. It is
	// not guaranteed to be well-formed; executors must validate it.
	Arguments json.RawMessage `json:"arguments"`
}

// ArgumentsString returns the arguments as a JSON object string.
//
// Description:
//
//	Normalizes the shapes models actually produce: a JSON object, a
//	JSON-encoded string containing an object, or nothing at all.
//	Always returns a non-empty string ("{}" when arguments are absent).
func (t ToolCallResponse) ArgumentsString() string {
	if len(t.Arguments) == 0 {
		return "{}"
	}
	// Some models double-encode arguments as a JSON string.
	var s string
	if err := json.Unmarshal(t.Arguments, &s); err == nil {
		return s
	}
	return string(t.Arguments)
}

// ChatWithToolsResult is the outcome of one completion request.
type ChatWithToolsResult struct {
	// Content is the assistant's text reply. May be empty when the model
	// only requests tools.
	Content string `json:"content"`

	// ToolCalls lists the tool invocations the model requested, in order.
	ToolCalls []ToolCallResponse `json:"tool_calls,omitempty"`

	// StopReason is "tool_use" when tool calls are present, "end" otherwise.
	StopReason string `json:"stop_reason"`
}

// GenerationParams tunes a single completion request.
//
// Thread Safety: GenerationParams is a value type; copies are independent.
type GenerationParams struct {
	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float32

	// MaxTokens caps the completion length when non-nil.
	MaxTokens *int

	// ModelOverride selects a different model for this request only.
	ModelOverride string
}

// Client is the completion collaborator the agent orchestrator depends on.
//
// Description:
//
//	Implementations send the full ordered history plus the fixed tool
//	schema and return one assistant message, possibly carrying tool call
//	requests. The orchestrator treats this as a black box; tests swap in
//	a mock.
type Client interface {
	ChatWithTools(ctx context.Context, messages []ChatMessage,
		params GenerationParams, tools []ToolDef) (*ChatWithToolsResult, error)
}
