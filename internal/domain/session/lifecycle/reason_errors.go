// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

type reasonError struct {
	reason      model.ReasonCode
	detailDebug string
	err         error
}

func (e *reasonError) Error() string {
	switch {
	case e.err != nil && e.detailDebug != "":
		return e.detailDebug + ": " + e.err.Error()
	case e.err != nil:
		return e.err.Error()
	case e.detailDebug != "":
		return string(e.reason) + ": " + e.detailDebug
	}
	return string(e.reason)
}

func (e *reasonError) Is(target error) bool {
	if target == nil {
		return false
	}
	class := ReasonErrorClass(e.reason)
	return class != nil && target == class
}

func (e *reasonError) Unwrap() error {
	return e.err
}

// NewReasonError builds an error carrying a stable reason code.
func NewReasonError(reason model.ReasonCode, detail string, err error) error {
	return &reasonError{
		reason:      reason,
		detailDebug: sanitizeDetail(detail),
		err:         err,
	}
}

// WrapWithReasonClass classifies err unless it already carries a reason.
func WrapWithReasonClass(err error) error {
	if err == nil {
		return nil
	}
	var rerr *reasonError
	if errors.As(err, &rerr) {
		return err
	}
	reason, detail := ClassifyReason(err)
	return &reasonError{reason: reason, detailDebug: detail, err: err}
}

// ClassifyReason derives a reason code from an adapter or transport error.
func ClassifyReason(err error) (model.ReasonCode, string) {
	if err == nil {
		return model.RNone, ""
	}
	if reason, detail, ok := ReasonFromError(err); ok {
		return reason, sanitizeDetail(detail)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return model.RCancelled, ""
	case errors.Is(err, context.DeadlineExceeded):
		return model.RNetworkFailure, "deadline exceeded"
	case errors.Is(err, ports.ErrUnsupported):
		return model.RUnsupportedCapability, ""
	case errors.Is(err, ports.ErrNotFound):
		return model.RNotFound, ""
	case errors.Is(err, ports.ErrUnavailable), errors.Is(err, ports.ErrRejected):
		return model.RNetworkFailure, sanitizeDetail(err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return model.RNetworkFailure, sanitizeDetail(err.Error())
	}

	return model.RUnknown, sanitizeDetail(err.Error())
}

// ReasonFromError extracts the reason code from err if it carries one.
func ReasonFromError(err error) (model.ReasonCode, string, bool) {
	var rerr *reasonError
	if errors.As(err, &rerr) {
		detail := rerr.detailDebug
		if detail == "" && rerr.err != nil {
			detail = rerr.err.Error()
		}
		return rerr.reason, detail, true
	}
	return "", "", false
}

// ReasonOf returns the reason code of err, classifying it if needed.
func ReasonOf(err error) model.ReasonCode {
	r, _ := ClassifyReason(err)
	return r
}

func sanitizeDetail(detail string) string {
	if detail == "" {
		return ""
	}
	const maxLen = 160
	clean := strings.ReplaceAll(detail, "\n", " ")
	if len(clean) > maxLen {
		return clean[:maxLen] + "..."
	}
	return clean
}
