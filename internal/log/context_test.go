// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIDs(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) string
		ctx  context.Context
		id   string
	}{
		{"request id nil ctx", ContextWithRequestID, RequestIDFromContext, nil, "req-1"},
		{"request id background", ContextWithRequestID, RequestIDFromContext, context.Background(), "req-2"},
		{"session id", ContextWithSessionID, SessionIDFromContext, context.Background(), "sess-9"},
		{"empty id", ContextWithSessionID, SessionIDFromContext, context.Background(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.set(tt.ctx, tt.id)
			assert.Equal(t, tt.id, tt.get(ctx))
		})
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	l := FromContext(context.Background())
	require.NotNil(t, l)
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithSessionID(ctx, "sess-7")

	l := WithContext(ctx, base)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry[FieldRequestID])
	assert.Equal(t, "sess-7", entry[FieldSessionID])
}

func TestWithContextNoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := WithContext(context.Background(), base)
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, FieldRequestID)
	assert.NotContains(t, entry, FieldSessionID)
}
