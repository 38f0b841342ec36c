package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseCutoff(t *testing.T, s string) time.Time {
	t.Helper()
	cutoff, err := time.Parse("15:04", s)
	require.NoError(t, err)
	return cutoff
}

func TestFinalizeTargetAfterCutoff(t *testing.T) {
	cutoff := mustParseCutoff(t, "21:30")
	now := time.Date(2026, 3, 2, 22, 15, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-02", finalizeTarget(now, cutoff))
}

func TestFinalizeTargetBeforeCutoff(t *testing.T) {
	cutoff := mustParseCutoff(t, "21:30")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Today is not due yet; the sweep still targets yesterday.
	assert.Equal(t, "2026-03-01", finalizeTarget(now, cutoff))
}

func TestFinalizeTargetPostMidnightRestart(t *testing.T) {
	cutoff := mustParseCutoff(t, "21:30")

	// Worker was down over the 2026-03-02 cutoff and comes back shortly
	// after midnight. The first pass must still close out 2026-03-02.
	now := time.Date(2026, 3, 3, 0, 10, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", finalizeTarget(now, cutoff))
}

func TestFinalizeTargetExactlyAtCutoff(t *testing.T) {
	cutoff := mustParseCutoff(t, "21:30")
	now := time.Date(2026, 3, 2, 21, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-02", finalizeTarget(now, cutoff))
}

func TestFinalizeTargetMonthBoundary(t *testing.T) {
	cutoff := mustParseCutoff(t, "21:30")
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-02-28", finalizeTarget(now, cutoff))
}
