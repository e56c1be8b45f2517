// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type historyResponse struct {
	Items []store.Summary `json:"items"`
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	items, err := s.archive.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	if items == nil {
		items = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Items: items})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.archive.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = lifecycle.NewReasonError(model.RNotFound, "archived session "+id, err)
		}
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
