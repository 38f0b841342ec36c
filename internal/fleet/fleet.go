// Package fleet is the thin interface onto the bus registry the trip core
// needs: which route and shift a bus serves. Full route/bus CRUD lives in the
// admin service, not here.
package fleet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"campusbus/internal/entitlement"
	"campusbus/internal/store"
)

// Bus is a registered vehicle's assignment.
type Bus struct {
	ID        string            `json:"id"`
	RouteID   string            `json:"route_id"`
	Shift     entitlement.Shift `json:"shift"`
	CreatedAt time.Time         `json:"created_at"`
}

// Repository persists bus assignments and driver refresh tokens.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

// GetBus returns a bus assignment, nil when unknown.
func (r *Repository) GetBus(ctx context.Context, id string) (*Bus, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, route_id, shift, created_at FROM buses WHERE id = $1
	`, id)
	var b Bus
	if err := row.Scan(&b.ID, &b.RouteID, &b.Shift, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// UpsertBus registers or reassigns a bus. Admin seeding path.
func (r *Repository) UpsertBus(ctx context.Context, id, routeID string, shift entitlement.Shift) error {
	if id == "" || routeID == "" {
		return errors.New("bus id and route id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO buses (id, route_id, shift)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET route_id = EXCLUDED.route_id, shift = EXCLUDED.shift
	`, id, routeID, shift)
	return err
}

// SaveRefreshToken stores a driver session refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, driverID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (driver_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, driverID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
