package entitlement

import (
	"context"
	"database/sql"
	"errors"

	"campusbus/internal/store"
)

// Repository reads and mutates entitlements in Postgres. Reads serve the
// resolver; MarkScanned runs inside the scan coordinator's transaction.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const selectCols = `
	SELECT id, qr_code, kind, owner_id, route_id, shift, status,
	       TO_CHAR(valid_from, 'YYYY-MM-DD'), TO_CHAR(valid_until, 'YYYY-MM-DD'),
	       TO_CHAR(travel_date, 'YYYY-MM-DD'), scan_count, max_scans, created_at
	FROM entitlements`

// GetByCode resolves the opaque QR payload. Returns nil when unknown.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Entitlement, error) {
	row := r.db.QueryRowContext(ctx, selectCols+` WHERE qr_code = $1`, code)
	return scanOne(row)
}

func scanOne(row *sql.Row) (*Entitlement, error) {
	var e Entitlement
	err := row.Scan(&e.ID, &e.QRCode, &e.Kind, &e.OwnerID, &e.RouteID, &e.Shift, &e.Status,
		&e.ValidFrom, &e.ValidUntil, &e.TravelDate, &e.ScanCount, &e.MaxScans, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// MarkScanned spends one unit of a day ticket's scan budget, flipping it to
// used when the budget is gone. Passes carry no budget and are left alone.
func (r *Repository) MarkScanned(ctx context.Context, tx store.DBTX, id string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE entitlements
		SET scan_count = scan_count + 1,
		    status = CASE WHEN scan_count + 1 >= max_scans THEN 'used' ELSE status END
		WHERE id = $1 AND kind = 'ticket'
	`, id)
	return err
}
