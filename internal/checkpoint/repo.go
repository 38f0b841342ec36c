package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campusbus/internal/store"
)

// odometer columns by transition; keep in sync with the migrate schema.
var odometerColumns = map[Transition]string{
	StartShift:        "start_odometer",
	ReachedUniversity: "university_arrival_odometer",
	StartReturn:       "return_start_odometer",
	ReachedHome:       "home_arrival_odometer",
}

// Repository persists trip checkpoints in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const checkpointCols = `
	SELECT id, bus_id, driver_id, TO_CHAR(service_date, 'YYYY-MM-DD'), phase,
	       start_odometer, university_arrival_odometer, return_start_odometer,
	       home_arrival_odometer, total_distance, boarded_count, return_boarded_count,
	       created_at, updated_at
	FROM trip_checkpoints`

// Get loads the checkpoint for a bus and service date, nil when absent.
func (r *Repository) Get(ctx context.Context, busID, date string) (*Checkpoint, error) {
	row := r.db.QueryRowContext(ctx, checkpointCols+` WHERE bus_id = $1 AND service_date = $2`, busID, date)
	return scanCheckpoint(row)
}

func scanCheckpoint(row *sql.Row) (*Checkpoint, error) {
	var c Checkpoint
	err := row.Scan(&c.ID, &c.BusID, &c.DriverID, &c.ServiceDate, &c.Phase,
		&c.StartOdometer, &c.UniversityArrivalOdometer, &c.ReturnStartOdometer,
		&c.HomeArrivalOdometer, &c.TotalDistance, &c.BoardedCount, &c.ReturnBoardedCount,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a fresh checkpoint. The (bus_id, service_date) unique
// constraint makes concurrent first submissions collapse to one row; the
// loser sees created=false.
func (r *Repository) Create(ctx context.Context, cp Checkpoint) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO trip_checkpoints (id, bus_id, driver_id, service_date, phase, start_odometer)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bus_id, service_date) DO NOTHING
	`, cp.ID, cp.BusID, cp.DriverID, cp.ServiceDate, cp.Phase, cp.StartOdometer)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	return aff == 1, err
}

// Advance is the compare-and-set transition write: it applies only while the
// row is still in the source phase with the target odometer slot unset, so a
// phase can never be entered twice or skipped.
func (r *Repository) Advance(ctx context.Context, id string, t Transition, odometer int64, totalDistance *int64) (bool, error) {
	sp, ok := transitions[t]
	if !ok {
		return false, fmt.Errorf("unknown transition %q", t)
	}
	col := odometerColumns[t]
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE trip_checkpoints
		SET phase = $1, %s = $2, total_distance = COALESCE($3, total_distance), updated_at = NOW()
		WHERE id = $4 AND phase = $5 AND %s IS NULL
	`, col, col), sp.to, odometer, totalDistance, id, sp.from)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	return aff == 1, err
}

// IncrementBoarded bumps the boarding counter for the leg matching the given
// phase. Runs inside the scan coordinator's transaction.
func (r *Repository) IncrementBoarded(ctx context.Context, tx store.DBTX, id string, returnLeg bool) error {
	col := "boarded_count"
	if returnLeg {
		col = "return_boarded_count"
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE trip_checkpoints SET %s = %s + 1, updated_at = NOW() WHERE id = $1
	`, col, col), id)
	return err
}
