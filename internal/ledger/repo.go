package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"campusbus/internal/store"
)

// timestamp columns by slot; keep in sync with the migrate schema.
var slotColumns = map[Slot]string{
	SlotOnboarded:         "onboarded_at",
	SlotReachedUniversity: "reached_university_at",
	SlotLeftForHome:       "left_for_home_at",
	SlotReachedHome:       "reached_home_at",
}

// Repository is the data-access layer for attendance records. It owns them
// exclusively; only the scan coordinator writes slots, only the end-of-day
// pass writes final_status.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const recordCols = `
	SELECT id, entitlement_id, owner_id, route_id, TO_CHAR(service_date, 'YYYY-MM-DD'), shift,
	       onboarded_at, reached_university_at, left_for_home_at, reached_home_at,
	       final_status, created_at
	FROM attendance_records`

// Get loads the record for an entitlement and date, nil when absent.
func (r *Repository) Get(ctx context.Context, tx store.DBTX, entitlementID, date string) (*Record, error) {
	if tx == nil {
		tx = r.db
	}
	row := tx.QueryRowContext(ctx, recordCols+` WHERE entitlement_id = $1 AND service_date = $2`, entitlementID, date)
	return scanRecord(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.EntitlementID, &rec.OwnerID, &rec.RouteID, &rec.ServiceDate, &rec.Shift,
		&rec.OnboardedAt, &rec.ReachedUniversityAt, &rec.LeftForHomeAt, &rec.ReachedHomeAt,
		&rec.FinalStatus, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// UpsertEmpty lazily creates the day's record for an entitlement with all
// slots empty. The unique constraint collapses concurrent first scans onto
// one row; the existing row is returned either way.
func (r *Repository) UpsertEmpty(ctx context.Context, tx store.DBTX, rec Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO attendance_records (id, entitlement_id, owner_id, route_id, service_date, shift)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entitlement_id, service_date) DO NOTHING
	`, rec.ID, rec.EntitlementID, rec.OwnerID, rec.RouteID, rec.ServiceDate, rec.Shift)
	if err != nil {
		return nil, err
	}
	cur, err := r.Get(ctx, tx, rec.EntitlementID, rec.ServiceDate)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("inserted attendance record not found")
	}
	return cur, nil
}

// SetSlot writes one timestamp slot. The conditional update is the
// at-most-once guard: a populated slot makes RowsAffected zero and the write
// is rejected with ErrAlreadyScanned. Prerequisite ordering is checked first
// so a check-out can never precede its check-in.
func (r *Repository) SetSlot(ctx context.Context, tx store.DBTX, rec *Record, slot Slot, ts time.Time) error {
	col, ok := slotColumns[slot]
	if !ok {
		return fmt.Errorf("unknown slot %q", slot)
	}
	if pre, ok := prerequisite[slot]; ok && rec.SlotValue(pre) == nil {
		return fmt.Errorf("%w: %s requires %s", ErrOutOfOrder, slot, pre)
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE attendance_records SET %s = $1 WHERE id = $2 AND %s IS NULL
	`, col, col), ts, rec.ID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyScanned, slot)
	}
	rec.setSlot(slot, ts)
	return nil
}

// FinalizeThrough freezes every still-open record dated on or before the
// given service date. Sweeping a range rather than a single day closes
// records a stopped worker left open past its cutoff. The frozen status is
// DeriveStatus at close of day, so a rider who boarded the return leg but
// never checked in at home stays IN_PROGRESS and is never promoted. The
// final_status guard on both the select and the write keeps reruns no-ops.
func (r *Repository) FinalizeThrough(ctx context.Context, date string) (int64, error) {
	rows, err := r.db.QueryContext(ctx, recordCols+` WHERE service_date <= $1 AND final_status IS NULL`, date)
	if err != nil {
		return 0, err
	}
	var open []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		open = append(open, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	var frozen int64
	for _, rec := range open {
		res, err := r.db.ExecContext(ctx, `
			UPDATE attendance_records SET final_status = $1 WHERE id = $2 AND final_status IS NULL
		`, DeriveStatus(rec), rec.ID)
		if err != nil {
			return frozen, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return frozen, err
		}
		frozen += aff
	}
	return frozen, nil
}
