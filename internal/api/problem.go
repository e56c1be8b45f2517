// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ManuGH/interviewd/internal/api/middleware"
	"github.com/ManuGH/interviewd/internal/domain/session/lifecycle"
	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/log"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Error().Err(err).Int("status", code).Msg("failed to encode response")
	}
}

// writeProblem writes an RFC 7807 problem details response.
//   - type: canonical machine identifier (e.g. "session/turn_in_flight")
//   - code: stable short code (e.g. "TURN_IN_FLIGHT")
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	reqID := log.RequestIDFromContext(r.Context())
	if reqID == "" {
		reqID = w.Header().Get(middleware.HeaderRequestID)
	}

	res := map[string]any{
		"type":   problemType,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID != "" {
		res["requestId"] = reqID
	}
	if detail != "" {
		res["detail"] = detail
	}
	if inst := r.URL.EscapedPath(); inst != "" {
		res["instance"] = inst
	}
	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code":
			continue
		}
		res[k] = v
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}

// statusForReason maps a session reason code onto an HTTP status.
func statusForReason(reason model.ReasonCode) int {
	switch reason {
	case model.RBadRequest:
		return http.StatusBadRequest
	case model.RNotFound:
		return http.StatusNotFound
	case model.RInvalidTransition, model.RTurnInFlight:
		return http.StatusConflict
	case model.RSessionClosed:
		return http.StatusGone
	case model.RUnsupportedCapability:
		return http.StatusUnprocessableEntity
	case model.RNetworkFailure:
		return http.StatusBadGateway
	case model.RCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a controller or registry error. extra carries
// session context such as retryContent.
func writeError(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	reason, detail := lifecycle.ClassifyReason(err)
	status := statusForReason(reason)

	code := strings.TrimPrefix(string(reason), "R_")
	if extra == nil {
		extra = map[string]any{}
	}
	extra["reason"] = reason
	extra["retryable"] = model.Retryable(reason)

	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).Error().Err(err).
			Str(log.FieldEvent, "api.error").
			Str(log.FieldReason, string(reason)).
			Msg("request failed")
		if reason == model.RUnknown {
			detail = ""
		}
	}
	writeProblem(w, r, status, "session/"+strings.ToLower(code), http.StatusText(status), code, detail, extra)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeError(w, r, lifecycle.NewReasonError(model.RBadRequest, detail, nil), nil)
}
