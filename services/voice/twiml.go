// Copyright (C) 2025 Bookline AI (eng@bookline.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package voice

import (
	"encoding/xml"
)

// TwiML response rendering. The transport understands three semantic shapes:
// speak-and-gather (continue the conversation), speak-and-hangup (terminate
// with a message), and an empty acknowledgment (status callbacks).

// Response is the TwiML document root.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Say     *Say     `xml:"Say,omitempty"`
	Gather  *Gather  `xml:"Gather,omitempty"`
	Hangup  *Hangup  `xml:"Hangup,omitempty"`
}

// Say speaks text to the caller.
type Say struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

// Gather collects the caller's next utterance as speech. The nested Say is
// spoken first and may be interrupted (barge-in), which matters on a voice
// line where callers talk over the prompt.
type Gather struct {
	Input         string `xml:"input,attr"`
	Action        string `xml:"action,attr"`
	Method        string `xml:"method,attr"`
	SpeechTimeout string `xml:"speechTimeout,attr"`
	Say           *Say   `xml:"Say,omitempty"`
}

// Hangup terminates the call.
type Hangup struct{}

// SpeakAndGather renders a prompt followed by speech collection.
//
// Inputs:
//   - text: The text to speak.
//   - voice: The TTS voice selector.
//   - action: The webhook URL the transport posts the utterance to. This
//     is the continuation token carrier: the resolved business identifier
//     rides along as a query parameter so it survives the stateless
//     round-trip.
func SpeakAndGather(text, voice, action string) Response {
	return Response{
		Gather: &Gather{
			Input:         "speech",
			Action:        action,
			Method:        "POST",
			SpeechTimeout: "auto",
			Say:           &Say{Voice: voice, Text: text},
		},
	}
}

// SpeakAndHangup renders a final message followed by termination.
func SpeakAndHangup(text, voice string) Response {
	return Response{
		Say:    &Say{Voice: voice, Text: text},
		Hangup: &Hangup{},
	}
}

// EmptyAck renders an empty TwiML document, used to acknowledge status
// callbacks that need no caller-facing action.
func EmptyAck() Response {
	return Response{}
}
