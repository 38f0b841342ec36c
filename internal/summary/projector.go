// Package summary is the read-side fold of the boarding ledger: per-route,
// per-shift attendance for a date. No side effects; safe to recompute on
// every call.
package summary

import (
	"context"
	"math"
	"sort"

	"campusbus/internal/entitlement"
)

// ExpectedCount is how many valid entitlements a route/shift has for a date.
type ExpectedCount struct {
	RouteID string
	Shift   entitlement.Shift
	Passes  int
	Tickets int
}

// LedgerCount is how many records boarded and returned for a route/shift.
type LedgerCount struct {
	RouteID  string
	Shift    entitlement.Shift
	Boarded  int
	Returned int
}

// Row is one line of the attendance table.
type Row struct {
	RouteID         string            `json:"route_id"`
	Shift           entitlement.Shift `json:"shift"`
	ExpectedPasses  int               `json:"expected_passes"`
	ExpectedTickets int               `json:"expected_tickets"`
	Boarded         int               `json:"boarded"`
	Returned        int               `json:"returned"`
	Absent          int               `json:"absent"`
	AttendanceRate  int               `json:"attendance_rate"`
}

// Store supplies the two aggregate reads the fold needs.
type Store interface {
	ExpectedCounts(ctx context.Context, date string) ([]ExpectedCount, error)
	LedgerCounts(ctx context.Context, date string) ([]LedgerCount, error)
}

// Projector folds entitlement counts and the ledger into the summary table.
type Projector struct {
	store Store
}

// NewProjector creates the projector.
func NewProjector(store Store) *Projector {
	return &Projector{store: store}
}

// Summarize builds the per-route/shift table for a date.
func (p *Projector) Summarize(ctx context.Context, date string) ([]Row, error) {
	expected, err := p.store.ExpectedCounts(ctx, date)
	if err != nil {
		return nil, err
	}
	counts, err := p.store.LedgerCounts(ctx, date)
	if err != nil {
		return nil, err
	}
	return Fold(expected, counts), nil
}

type key struct {
	route string
	shift entitlement.Shift
}

// Fold merges the two aggregates. absent = expected − boarded; the rate is
// boarded/expected rounded to whole percent, zero when nothing was expected.
func Fold(expected []ExpectedCount, counts []LedgerCount) []Row {
	rows := make(map[key]*Row)
	at := func(k key) *Row {
		r, ok := rows[k]
		if !ok {
			r = &Row{RouteID: k.route, Shift: k.shift}
			rows[k] = r
		}
		return r
	}

	for _, e := range expected {
		r := at(key{e.RouteID, e.Shift})
		r.ExpectedPasses = e.Passes
		r.ExpectedTickets = e.Tickets
	}
	for _, c := range counts {
		r := at(key{c.RouteID, c.Shift})
		r.Boarded = c.Boarded
		r.Returned = c.Returned
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		total := r.ExpectedPasses + r.ExpectedTickets
		r.Absent = total - r.Boarded
		if r.Absent < 0 {
			r.Absent = 0
		}
		if total > 0 {
			r.AttendanceRate = int(math.Round(float64(r.Boarded) / float64(total) * 100))
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RouteID != out[j].RouteID {
			return out[i].RouteID < out[j].RouteID
		}
		return out[i].Shift < out[j].Shift
	})
	return out
}
