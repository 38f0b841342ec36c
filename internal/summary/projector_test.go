package summary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusbus/internal/entitlement"
)

func TestFoldComputesAbsenceAndRate(t *testing.T) {
	rows := Fold(
		[]ExpectedCount{{RouteID: "route-7", Shift: entitlement.ShiftMorning, Passes: 8, Tickets: 2}},
		[]LedgerCount{{RouteID: "route-7", Shift: entitlement.ShiftMorning, Boarded: 7, Returned: 3}},
	)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, 8, r.ExpectedPasses)
	assert.Equal(t, 2, r.ExpectedTickets)
	assert.Equal(t, 7, r.Boarded)
	assert.Equal(t, 3, r.Returned)
	assert.Equal(t, 3, r.Absent)
	assert.Equal(t, 70, r.AttendanceRate)
}

func TestFoldZeroExpected(t *testing.T) {
	rows := Fold(nil, []LedgerCount{{RouteID: "route-7", Shift: entitlement.ShiftMorning, Boarded: 2}})
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].AttendanceRate)
	assert.Equal(t, 0, rows[0].Absent)
}

func TestFoldMergesAndSorts(t *testing.T) {
	rows := Fold(
		[]ExpectedCount{
			{RouteID: "route-9", Shift: entitlement.ShiftMorning, Passes: 5},
			{RouteID: "route-1", Shift: entitlement.ShiftAfternoon, Passes: 4},
			{RouteID: "route-1", Shift: entitlement.ShiftMorning, Passes: 3},
		},
		[]LedgerCount{
			{RouteID: "route-1", Shift: entitlement.ShiftMorning, Boarded: 3, Returned: 1},
		},
	)
	require.Len(t, rows, 3)
	assert.Equal(t, "route-1", rows[0].RouteID)
	assert.Equal(t, entitlement.ShiftAfternoon, rows[0].Shift)
	assert.Equal(t, "route-1", rows[1].RouteID)
	assert.Equal(t, 100, rows[1].AttendanceRate)
	assert.Equal(t, "route-9", rows[2].RouteID)
	assert.Equal(t, 5, rows[2].Absent)
}

type stubStore struct {
	expected []ExpectedCount
	counts   []LedgerCount
}

func (s *stubStore) ExpectedCounts(context.Context, string) ([]ExpectedCount, error) {
	return s.expected, nil
}
func (s *stubStore) LedgerCounts(context.Context, string) ([]LedgerCount, error) {
	return s.counts, nil
}

func TestSummarize(t *testing.T) {
	p := NewProjector(&stubStore{
		expected: []ExpectedCount{{RouteID: "route-7", Shift: entitlement.ShiftMorning, Passes: 10}},
		counts:   []LedgerCount{{RouteID: "route-7", Shift: entitlement.ShiftMorning, Boarded: 7, Returned: 3}},
	})
	rows, err := p.Summarize(context.Background(), "2026-03-02")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Absent)
	assert.Equal(t, 70, rows[0].AttendanceRate)
}
