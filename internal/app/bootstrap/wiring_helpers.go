// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bootstrap

import (
	"net/http"

	"github.com/ManuGH/interviewd/internal/config"
	"github.com/ManuGH/interviewd/internal/domain/session/controller"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

// SessionOptions maps session config onto controller defaults.
func SessionOptions(s config.SessionConfig) controller.Options {
	toggle := s.ToggleDebounce
	if toggle == 0 {
		toggle = -1 // 0 in config means no debounce
	}
	return controller.Options{
		PollInterval:   s.PollInterval,
		EndGrace:       s.EndGrace,
		ToggleDebounce: toggle,
		Language:       s.Language,
		SpeechRate:     s.SpeechRate,
		Mode:           model.InputMode(s.DefaultMode),
	}
}

// originChecker allows websocket upgrades from the configured origins.
// Without a list the bridge falls back to same-origin only.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
