package summary

import (
	"context"

	"campusbus/internal/store"
)

// Repository runs the aggregate reads against Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// ExpectedCounts counts entitlements valid for travel on the date: approved
// or active passes whose window covers it, and tickets issued for it (a used
// ticket still counts toward the day it traveled).
func (r *Repository) ExpectedCounts(ctx context.Context, date string) ([]ExpectedCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT route_id, shift,
		       COUNT(*) FILTER (WHERE kind = 'pass')   AS passes,
		       COUNT(*) FILTER (WHERE kind = 'ticket') AS tickets
		FROM entitlements
		WHERE (kind = 'pass' AND status IN ('active', 'approved')
		       AND valid_from <= $1::date AND valid_until >= $1::date)
		   OR (kind = 'ticket' AND status IN ('active', 'used') AND travel_date = $1::date)
		GROUP BY route_id, shift
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpectedCount
	for rows.Next() {
		var e ExpectedCount
		if err := rows.Scan(&e.RouteID, &e.Shift, &e.Passes, &e.Tickets); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LedgerCounts counts boarded and returned records per route/shift.
func (r *Repository) LedgerCounts(ctx context.Context, date string) ([]LedgerCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT route_id, shift,
		       COUNT(onboarded_at)    AS boarded,
		       COUNT(reached_home_at) AS returned
		FROM attendance_records
		WHERE service_date = $1::date
		GROUP BY route_id, shift
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerCount
	for rows.Next() {
		var c LedgerCount
		if err := rows.Scan(&c.RouteID, &c.Shift, &c.Boarded, &c.Returned); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
