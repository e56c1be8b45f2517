// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/interviewd/internal/bridge"
	"github.com/ManuGH/interviewd/internal/log"
)

// handleSpeech upgrades to a websocket and attaches the browser's speech
// platform to the session until the socket closes.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.session(w, r)
	if !ok {
		return
	}
	logger := log.WithContext(r.Context(), s.logger)

	cfg := s.bridgeCfg
	cfg.Logger = &logger
	b, err := bridge.Accept(w, r, cfg)
	if err != nil {
		// Accept has already answered the client.
		logger.Warn().Err(err).Str(log.FieldEvent, "speech.handshake_failed").Msg("speech bridge handshake failed")
		return
	}

	s.trackBridge(b, c.ID())
	defer s.untrackBridge(b)

	caps := b.Capabilities()
	logger.Info().
		Str(log.FieldEvent, "speech.bridge_attached").
		Bool("recognition", caps.Recognition).
		Bool("synthesis", caps.Synthesis).
		Msg("speech bridge attached")

	detach := c.AttachSpeech(b.Recognizer(), b.Synthesizer())
	defer detach()

	// The request context ends when the handler returns; the socket is
	// hijacked so its lifetime is tied to Run only.
	if err := b.Run(context.WithoutCancel(r.Context())); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "speech.bridge_failed").Msg("speech bridge ended with error")
		return
	}
	logger.Info().Str(log.FieldEvent, "speech.bridge_detached").Msg("speech bridge closed")
}
