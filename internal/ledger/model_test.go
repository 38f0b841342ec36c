package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(h int) *time.Time {
	t := time.Date(2026, 3, 2, h, 0, 0, 0, time.UTC)
	return &t
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, StatusAbsent, DeriveStatus(nil))
	assert.Equal(t, StatusAbsent, DeriveStatus(&Record{}))

	r := &Record{OnboardedAt: ts(7)}
	assert.Equal(t, StatusInProgress, DeriveStatus(r))

	r.ReachedUniversityAt = ts(8)
	assert.Equal(t, StatusInProgress, DeriveStatus(r))

	r.LeftForHomeAt = ts(16)
	assert.Equal(t, StatusInProgress, DeriveStatus(r))

	r.ReachedHomeAt = ts(17)
	assert.Equal(t, StatusCompleted, DeriveStatus(r))
}

// FinalizeThrough freezes DeriveStatus into final_status, so this table is
// the end-of-day decision table.
func TestFinalizationDecisionTable(t *testing.T) {
	cases := []struct {
		name string
		rec  *Record
		want JourneyStatus
	}{
		{"never scanned", &Record{}, StatusAbsent},
		{"boarded only", &Record{OnboardedAt: ts(7)}, StatusInProgress},
		{"stranded at university", &Record{OnboardedAt: ts(7), ReachedUniversityAt: ts(8)}, StatusInProgress},
		{
			// Boarded the return bus but never checked in at home:
			// frozen IN_PROGRESS, never promoted to COMPLETED.
			"return boarded, never home",
			&Record{OnboardedAt: ts(7), ReachedUniversityAt: ts(8), LeftForHomeAt: ts(16)},
			StatusInProgress,
		},
		{
			// Morning check-in is the attendance-bearing one; a record with
			// only return-leg stamps still closes as ABSENT.
			"return leg only",
			&Record{LeftForHomeAt: ts(16), ReachedHomeAt: ts(17)},
			StatusAbsent,
		},
		{
			"full journey",
			&Record{OnboardedAt: ts(7), ReachedUniversityAt: ts(8), LeftForHomeAt: ts(16), ReachedHomeAt: ts(17)},
			StatusCompleted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.rec))
		})
	}
}

func TestSlotValueAndPrerequisites(t *testing.T) {
	r := &Record{OnboardedAt: ts(7), LeftForHomeAt: ts(16)}

	assert.Equal(t, ts(7), r.SlotValue(SlotOnboarded))
	assert.Nil(t, r.SlotValue(SlotReachedUniversity))
	assert.Equal(t, ts(16), r.SlotValue(SlotLeftForHome))

	assert.Equal(t, SlotOnboarded, prerequisite[SlotReachedUniversity])
	assert.Equal(t, SlotLeftForHome, prerequisite[SlotReachedHome])
	_, hasPre := prerequisite[SlotOnboarded]
	assert.False(t, hasPre)
}
