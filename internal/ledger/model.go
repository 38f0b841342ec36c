package ledger

import (
	"time"

	"campusbus/internal/entitlement"
)

// Slot names the four write-once timestamps on an attendance record, in leg
// order.
type Slot string

const (
	SlotOnboarded         Slot = "onboarded"
	SlotReachedUniversity Slot = "reached_university"
	SlotLeftForHome       Slot = "left_for_home"
	SlotReachedHome       Slot = "reached_home"
)

// JourneyStatus is derived from which slots are populated.
type JourneyStatus string

const (
	StatusAbsent     JourneyStatus = "ABSENT"
	StatusInProgress JourneyStatus = "IN_PROGRESS"
	StatusCompleted  JourneyStatus = "COMPLETED"
)

// Record is the boarding ledger row: exactly one per entitlement per service
// date. Each timestamp is set at most once and never overwritten.
type Record struct {
	ID            string            `json:"id"`
	EntitlementID string            `json:"entitlement_id"`
	OwnerID       string            `json:"owner_id"`
	RouteID       string            `json:"route_id"`
	ServiceDate   string            `json:"service_date"`
	Shift         entitlement.Shift `json:"shift"`

	OnboardedAt         *time.Time `json:"onboarded_at,omitempty"`
	ReachedUniversityAt *time.Time `json:"reached_university_at,omitempty"`
	LeftForHomeAt       *time.Time `json:"left_for_home_at,omitempty"`
	ReachedHomeAt       *time.Time `json:"reached_home_at,omitempty"`

	// FinalStatus is frozen by the end-of-day pass; nil while the day is live.
	FinalStatus *JourneyStatus `json:"final_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// SlotValue returns the stored timestamp for a slot.
func (r *Record) SlotValue(s Slot) *time.Time {
	switch s {
	case SlotOnboarded:
		return r.OnboardedAt
	case SlotReachedUniversity:
		return r.ReachedUniversityAt
	case SlotLeftForHome:
		return r.LeftForHomeAt
	case SlotReachedHome:
		return r.ReachedHomeAt
	}
	return nil
}

// setSlot writes a slot on the in-memory copy. Persistence-side immutability
// is enforced separately by the conditional update in the repository.
func (r *Record) setSlot(s Slot, t time.Time) {
	switch s {
	case SlotOnboarded:
		r.OnboardedAt = &t
	case SlotReachedUniversity:
		r.ReachedUniversityAt = &t
	case SlotLeftForHome:
		r.LeftForHomeAt = &t
	case SlotReachedHome:
		r.ReachedHomeAt = &t
	}
}

// prerequisite maps each slot to the one that must already be set before it:
// a student cannot reach the university without having boarded, and cannot
// reach home without having left for home.
var prerequisite = map[Slot]Slot{
	SlotReachedUniversity: SlotOnboarded,
	SlotReachedHome:       SlotLeftForHome,
}

// DeriveStatus folds the populated slots into the journey status: ABSENT with
// no onboarding, COMPLETED with all four set, IN_PROGRESS otherwise.
func DeriveStatus(r *Record) JourneyStatus {
	if r == nil || r.OnboardedAt == nil {
		return StatusAbsent
	}
	if r.ReachedUniversityAt != nil && r.LeftForHomeAt != nil && r.ReachedHomeAt != nil {
		return StatusCompleted
	}
	return StatusInProgress
}
