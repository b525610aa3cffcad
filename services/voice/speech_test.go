// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package voice

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanForSpeech_StripsMarkdown(t *testing.T) {
	in := "We have **10:00** and `14:00` open. See [our site](https://example.com) for details."
	out := CleanForSpeech(in)

	for _, bad := range []string{"*", "`", "](", "https://example.com"} {
		if strings.Contains(out, bad) {
			t.Errorf("markup %q survived: %q", bad, out)
		}
	}
	if !strings.Contains(out, "10:00") {
		t.Errorf("content lost: %q", out)
	}
	if !strings.Contains(out, "our site") {
		t.Errorf("link text lost: %q", out)
	}
}

func TestCleanForSpeech_CapsAtTwoSentences(t *testing.T) {
	in := "First sentence. Second sentence! Third sentence? Fourth sentence."
	out := CleanForSpeech(in)
	if out != "First sentence. Second sentence!" {
		t.Errorf("got %q", out)
	}
}

func TestCleanForSpeech_CapsCharacterCount(t *testing.T) {
	in := strings.Repeat("yes and ", 60) + "done"
	out := CleanForSpeech(in)
	if len(out) > maxSpokenChars {
		t.Errorf("length = %d, want <= %d", len(out), maxSpokenChars)
	}
	if !strings.HasSuffix(out, ".") {
		t.Errorf("truncated reply does not end with a period: %q", out)
	}
	if strings.Contains(out, "  ") {
		t.Errorf("double space in output: %q", out)
	}
}

func TestCleanForSpeech_TruncatesOnRuneBoundary(t *testing.T) {
	// No spaces anywhere, multibyte runes straddling the byte ceiling.
	// The cut must not leave a partial UTF-8 sequence behind.
	in := "a" + strings.Repeat("日", 120)
	out := CleanForSpeech(in)

	if !utf8.ValidString(out) {
		t.Errorf("truncation produced invalid UTF-8: %q", out)
	}
	if len(out) > maxSpokenChars {
		t.Errorf("length = %d, want <= %d", len(out), maxSpokenChars)
	}
	if !strings.HasSuffix(out, ".") {
		t.Errorf("truncated reply does not end with a period: %q", out)
	}
}

func TestCleanForSpeech_CollapsesWhitespace(t *testing.T) {
	out := CleanForSpeech("Hello\n\n  there.\tHow are you?")
	if out != "Hello there. How are you?" {
		t.Errorf("got %q", out)
	}
}

func TestCleanForSpeech_PreservesDecimalTimes(t *testing.T) {
	out := CleanForSpeech("Your session is at 10.30 tomorrow. See you then.")
	if !strings.Contains(out, "10.30") {
		t.Errorf("decimal time mangled: %q", out)
	}
}

func TestCleanForSpeech_EmptyInput(t *testing.T) {
	if out := CleanForSpeech("   \n\t "); out != "" {
		t.Errorf("got %q, want empty", out)
	}
}
