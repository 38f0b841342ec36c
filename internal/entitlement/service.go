package entitlement

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the scanned code does not resolve to any entitlement.
	ErrNotFound = errors.New("entitlement not found")
	// ErrInvalid means the entitlement exists but cannot board: wrong status,
	// route or shift, outside its validity window, or scan budget exhausted.
	ErrInvalid = errors.New("entitlement invalid")
)

// Lookup resolves opaque QR payloads to entitlement snapshots.
type Lookup interface {
	GetByCode(ctx context.Context, code string) (*Entitlement, error)
}

// Resolver decodes scanned codes into read-only entitlement snapshots.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a resolver over the given lookup source.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve maps a scanned code to its entitlement. The code is the opaque
// reference embedded in the QR, not the entitlement id.
func (r *Resolver) Resolve(ctx context.Context, code string) (*Entitlement, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	e, err := r.lookup.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// Validate checks the snapshot against the boarding bus's route and shift and
// the service date. All failures wrap ErrInvalid with the rejected reason so
// the operator sees why the scan bounced.
func (e *Entitlement) Validate(routeID string, shift Shift, date string) error {
	if !e.usable() {
		return fmt.Errorf("%w: status %s", ErrInvalid, e.Status)
	}
	if e.RouteID != routeID {
		return fmt.Errorf("%w: wrong route", ErrInvalid)
	}
	if e.Shift != shift {
		return fmt.Errorf("%w: wrong shift", ErrInvalid)
	}
	if !e.coversDate(date) {
		return fmt.Errorf("%w: not valid on %s", ErrInvalid, date)
	}
	if e.Kind == KindTicket && e.ScanCount >= e.MaxScans {
		return fmt.Errorf("%w: scan budget exhausted", ErrInvalid)
	}
	return nil
}
