// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"encoding/json"
	"testing"
)

func TestToolCallResponse_ArgumentsString_Object(t *testing.T) {
	tc := ToolCallResponse{
		ID:        "call-1",
		Name:      "check_availability",
		Arguments: json.RawMessage(`{"date":"2025-06-02","durationMinutes":30}`),
	}

	result := tc.ArgumentsString()
	if result != `{"date":"2025-06-02","durationMinutes":30}` {
		t.Errorf("ArgumentsString() = %q, want JSON object string", result)
	}
}

func TestToolCallResponse_ArgumentsString_DoubleEncoded(t *testing.T) {
	// Some models return arguments as a JSON string
	tc := ToolCallResponse{
		ID:        "call-2",
		Name:      "book_appointment",
		Arguments: json.RawMessage(`"{\"guestName\":\"Ada\"}"`),
	}

	result := tc.ArgumentsString()
	if result != `{"guestName":"Ada"}` {
		t.Errorf("ArgumentsString() = %q, want unquoted JSON string", result)
	}
}

func TestToolCallResponse_ArgumentsString_Empty(t *testing.T) {
	tc := ToolCallResponse{ID: "call-3", Name: "check_availability"}

	result := tc.ArgumentsString()
	if result != "{}" {
		t.Errorf("ArgumentsString() = %q, want %q", result, "{}")
	}
}

func TestToolCallResponse_ArgumentsString_NilArguments(t *testing.T) {
	tc := ToolCallResponse{ID: "call-4", Name: "book_appointment", Arguments: nil}

	result := tc.ArgumentsString()
	if result != "{}" {
		t.Errorf("ArgumentsString() = %q, want %q", result, "{}")
	}
}
