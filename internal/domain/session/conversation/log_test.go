// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package conversation

import (
	"testing"
	"time"

	"github.com/ManuGH/interviewd/internal/domain/session/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func frozenClock() func() time.Time {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestAppendExchangeOrdersCandidateFirst(t *testing.T) {
	l := New(frozenClock())
	turns, err := l.AppendExchange("hello", "hi, tell me about yourself")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleCandidate, turns[0].Role)
	assert.Equal(t, model.RoleEvaluator, turns[1].Role)
	assert.True(t, turns[1].OccurredAt.After(turns[0].OccurredAt))
	assert.Equal(t, 2, l.Len())
}

func TestAppendRejectsEmpty(t *testing.T) {
	l := New(nil)
	_, err := l.Append(model.RoleCandidate, "   ")
	require.ErrorIs(t, err, ErrEmptyContent)
	_, err = l.AppendExchange("", "reply")
	require.ErrorIs(t, err, ErrEmptyContent)
	assert.Zero(t, l.Len())
}

func TestTurnsReturnsCopy(t *testing.T) {
	l := New(nil)
	_, err := l.Append(model.RoleEvaluator, "q1")
	require.NoError(t, err)

	turns := l.Turns()
	turns[0].Content = "mutated"
	last, ok := l.Last(model.RoleEvaluator)
	require.True(t, ok)
	assert.Equal(t, "q1", last.Content)
}

func TestRestoreRepairsOrdering(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := Restore([]model.Turn{
		{Role: model.RoleEvaluator, Content: "a", OccurredAt: t0},
		{Role: model.RoleCandidate, Content: "b", OccurredAt: t0},
		{Role: model.RoleEvaluator, Content: "c", OccurredAt: t0.Add(-time.Second)},
	}, nil)
	turns := l.Turns()
	require.Len(t, turns, 3)
	for i := 1; i < len(turns); i++ {
		assert.True(t, turns[i].OccurredAt.After(turns[i-1].OccurredAt))
	}
}

func TestOccurredAtStrictlyIncreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		offsets := rapid.SliceOf(rapid.IntRange(-5, 5)).Draw(t, "offsets")
		i := 0
		clock := func() time.Time {
			if len(offsets) == 0 {
				return base
			}
			d := offsets[i%len(offsets)]
			i++
			return base.Add(time.Duration(d) * time.Millisecond)
		}
		l := New(clock)
		n := rapid.IntRange(1, 20).Draw(t, "n")
		for j := 0; j < n; j++ {
			if _, err := l.AppendExchange("answer", "question"); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
		turns := l.Turns()
		if len(turns) != 2*n {
			t.Fatalf("want %d turns, got %d", 2*n, len(turns))
		}
		for j := 1; j < len(turns); j++ {
			if !turns[j].OccurredAt.After(turns[j-1].OccurredAt) {
				t.Fatalf("turn %d not after turn %d", j, j-1)
			}
		}
	})
}
