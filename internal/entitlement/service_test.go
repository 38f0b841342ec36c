package entitlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string]*Entitlement

func (m mapLookup) GetByCode(_ context.Context, code string) (*Entitlement, error) {
	return m[code], nil
}

func strptr(s string) *string { return &s }

func validPass() *Entitlement {
	return &Entitlement{
		ID:         "e1",
		Kind:       KindPass,
		OwnerID:    "student-1",
		RouteID:    "route-7",
		Shift:      ShiftMorning,
		Status:     StatusApproved,
		ValidFrom:  strptr("2026-01-01"),
		ValidUntil: strptr("2026-06-30"),
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(mapLookup{"qr-1": validPass()})

	e, err := r.Resolve(context.Background(), "qr-1")
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)

	_, err = r.Resolve(context.Background(), "qr-nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidatePass(t *testing.T) {
	e := validPass()
	assert.NoError(t, e.Validate("route-7", ShiftMorning, "2026-03-02"))

	// Window edges are inclusive.
	assert.NoError(t, e.Validate("route-7", ShiftMorning, "2026-01-01"))
	assert.NoError(t, e.Validate("route-7", ShiftMorning, "2026-06-30"))
	assert.ErrorIs(t, e.Validate("route-7", ShiftMorning, "2026-07-01"), ErrInvalid)

	assert.ErrorIs(t, e.Validate("route-9", ShiftMorning, "2026-03-02"), ErrInvalid)
	assert.ErrorIs(t, e.Validate("route-7", ShiftAfternoon, "2026-03-02"), ErrInvalid)

	e.Status = StatusPending
	assert.ErrorIs(t, e.Validate("route-7", ShiftMorning, "2026-03-02"), ErrInvalid)
	e.Status = StatusActive
	assert.NoError(t, e.Validate("route-7", ShiftMorning, "2026-03-02"))
}

func TestValidateTicket(t *testing.T) {
	e := &Entitlement{
		ID:         "t1",
		Kind:       KindTicket,
		RouteID:    "route-7",
		Shift:      ShiftMorning,
		Status:     StatusActive,
		TravelDate: strptr("2026-03-02"),
		ScanCount:  1,
		MaxScans:   2,
	}
	assert.NoError(t, e.Validate("route-7", ShiftMorning, "2026-03-02"))
	assert.ErrorIs(t, e.Validate("route-7", ShiftMorning, "2026-03-03"), ErrInvalid)

	e.ScanCount = 2
	assert.ErrorIs(t, e.Validate("route-7", ShiftMorning, "2026-03-02"), ErrInvalid)

	// Approved is a pass-only status; tickets must be active.
	e.ScanCount = 0
	e.Status = StatusApproved
	assert.ErrorIs(t, e.Validate("route-7", ShiftMorning, "2026-03-02"), ErrInvalid)
}
