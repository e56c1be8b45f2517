// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> server message types.
const (
	TypeHello       = "hello"
	TypeTranscript  = "transcript"
	TypePlaybackEnd = "playback_end"
	TypeListenEnd   = "listen_end"
)

// Server -> client message types.
const (
	TypeSpeak      = "speak"
	TypeCancel     = "cancel"
	TypeListen     = "listen"
	TypeStopListen = "stop_listen"
)

var ErrBadFrame = errors.New("bad bridge frame")

// Hello is the first frame the browser sends. It announces which speech
// capabilities the page has.
type Hello struct {
	Recognition bool   `json:"recognition"`
	Synthesis   bool   `json:"synthesis"`
	Lang        string `json:"lang,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`
}

// ClientMessage is any frame received from the browser.
type ClientMessage struct {
	Type string `json:"type"`

	// hello
	Recognition bool   `json:"recognition,omitempty"`
	Synthesis   bool   `json:"synthesis,omitempty"`
	Lang        string `json:"lang,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`

	// transcript
	Text  string `json:"text,omitempty"`
	Final bool   `json:"final,omitempty"`

	// playback_end
	ID string `json:"id,omitempty"`

	// listen_end
	Error string `json:"error,omitempty"`
}

// ServerMessage is any frame sent to the browser.
type ServerMessage struct {
	Type string  `json:"type"`
	ID   string  `json:"id,omitempty"`
	Text string  `json:"text,omitempty"`
	Lang string  `json:"lang,omitempty"`
	Rate float64 `json:"rate,omitempty"`
}

// DecodeClientMessage parses and checks one browser frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	switch m.Type {
	case TypeHello, TypeTranscript, TypeListenEnd:
	case TypePlaybackEnd:
		if m.ID == "" {
			return ClientMessage{}, fmt.Errorf("%w: playback_end without id", ErrBadFrame)
		}
	case "":
		return ClientMessage{}, fmt.Errorf("%w: missing type", ErrBadFrame)
	default:
		return ClientMessage{}, fmt.Errorf("%w: unknown type %q", ErrBadFrame, m.Type)
	}
	return m, nil
}

func (m ClientMessage) hello() Hello {
	return Hello{Recognition: m.Recognition, Synthesis: m.Synthesis, Lang: m.Lang, UserAgent: m.UserAgent}
}
