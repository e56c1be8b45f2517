// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !debug

package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
)

func TestIllegalTransitionReturnsReasonError(t *testing.T) {
	tr, err := illegalTransition(model.StatusCompleted, EvPause)
	require.Error(t, err)
	assert.Equal(t, Transition{}, tr)
	assert.Equal(t, model.RInvalidTransition, ReasonOf(err))
	assert.Contains(t, err.Error(), "COMPLETED")
	assert.Contains(t, err.Error(), "pause")
}
