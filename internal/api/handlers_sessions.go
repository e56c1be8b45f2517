// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/interviewd/internal/domain/session/controller"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/log"
)

type turnRequest struct {
	Content string `json:"content"`
}

type modeRequest struct {
	Mode model.InputMode `json:"mode"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// session resolves the {id} controller, writing the error response itself.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*controller.Controller, *http.Request, bool) {
	id := chi.URLParam(r, "id")
	r = r.WithContext(log.ContextWithSessionID(r.Context(), id))
	c, err := s.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, nil)
		return nil, r, false
	}
	return c, r, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var cfg ports.SessionConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	switch cfg.Kind {
	case "", model.KindInterview, model.KindAptitude:
	default:
		writeBadRequest(w, r, "unknown session kind "+string(cfg.Kind))
		return
	}

	c, err := s.registry.Create(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	snap := c.Snapshot()
	s.audit.SessionCreated(r, c.ID(), string(snap.Kind), snap.DurationBudget)
	w.Header().Set("Location", "/api/v1/sessions/"+c.ID())
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.closeBridgesFor(id)
	if err := s.registry.Remove(r.Context(), id); err != nil {
		writeError(w, r, err, nil)
		return
	}
	s.audit.SessionDeleted(r, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.simpleOp(w, r, (*controller.Controller).Start)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.simpleOp(w, r, (*controller.Controller).Pause)
}

func (s *Server) handleToggleListening(w http.ResponseWriter, r *http.Request) {
	s.simpleOp(w, r, (*controller.Controller).ToggleListening)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.simpleOp(w, r, func(c *controller.Controller, ctx context.Context) error {
		card, err := c.Complete(ctx)
		s.audit.SessionCompleted(r, c.ID(), card.Overall, err)
		return err
	})
}

func (s *Server) simpleOp(w http.ResponseWriter, r *http.Request, op func(*controller.Controller, context.Context) error) {
	c, r, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := op(c, r.Context()); err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.session(w, r)
	if !ok {
		return
	}
	var req turnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if err := c.SubmitTurn(r.Context(), req.Content); err != nil {
		var extra map[string]any
		if retry := c.Snapshot().RetryContent; retry != "" {
			extra = map[string]any{"retryContent": retry}
		}
		writeError(w, r, err, extra)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	c, r, ok := s.session(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if err := c.SetInputMode(req.Mode); err != nil {
		var extra map[string]any
		if notice := c.Snapshot().Notice; notice != "" {
			extra = map[string]any{"notice": notice}
		}
		writeError(w, r, err, extra)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}
