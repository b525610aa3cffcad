// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package voice

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits for spoken delivery. Long model replies read badly over a phone
// line; the system prompt asks for brevity and these caps enforce it.
const (
	maxSpokenSentences = 2
	maxSpokenChars     = 220
)

var (
	markdownLinkRe  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markdownMarksRe = regexp.MustCompile("[*_`#>]+")
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// CleanForSpeech prepares model output for text-to-speech delivery.
//
// Description:
//
//	Strips markdown the TTS engine would read literally, collapses
//	whitespace, and caps the reply at two sentences and a fixed
//	character ceiling. Truncation lands on a word boundary with a
//	trailing period so the cut reply still sounds finished.
//
// Inputs:
//   - s: Raw model output.
//
// Outputs:
//   - string: Clean spoken text. Empty only when the input had no
//     speakable content at all.
func CleanForSpeech(s string) string {
	s = markdownLinkRe.ReplaceAllString(s, "$1")
	s = markdownMarksRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = capSentences(s, maxSpokenSentences)

	if len(s) > maxSpokenChars {
		// Reserve a byte for the trailing period, land the cut on a rune
		// boundary, then back off to a word boundary where one exists.
		limit := maxSpokenChars - 1
		for limit > 0 && !utf8.RuneStart(s[limit]) {
			limit--
		}
		cut := s[:limit]
		if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
			cut = cut[:idx]
		}
		s = strings.TrimRight(cut, " ,;:-") + "."
	}
	return s
}

// capSentences returns the first n sentences of s.
//
// A boundary is '.', '!', or '?' followed by a space or end of string.
// Decimals like "2.30" survive; dotted abbreviations do not, which is an
// acceptable trade for spoken replies this short.
func capSentences(s string, n int) string {
	count := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			if i == len(s)-1 || s[i+1] == ' ' {
				count++
				if count == n {
					return s[:i+1]
				}
			}
		}
	}
	return s
}
