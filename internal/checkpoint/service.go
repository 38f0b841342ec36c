package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"campusbus/internal/keylock"
)

// Store is the persistence surface the state machine drives. Advance must be
// a compare-and-set on the source phase so racing transitions cannot both
// apply.
type Store interface {
	Get(ctx context.Context, busID, date string) (*Checkpoint, error)
	// Create inserts a fresh checkpoint, reporting false when one already
	// exists for the bus and date.
	Create(ctx context.Context, cp Checkpoint) (bool, error)
	// Advance applies one transition iff the checkpoint is still in the
	// transition's source phase and the odometer slot is unset.
	Advance(ctx context.Context, id string, t Transition, odometer int64, totalDistance *int64) (bool, error)
}

// Actor identifies who is submitting: the owning driver session or an admin
// override.
type Actor struct {
	DriverID string
	Admin    bool
}

// Status is the read-only view returned to the driver app.
type Status struct {
	Phase              Phase  `json:"phase"`
	CanScan            bool   `json:"can_scan"`
	BoardedCount       int    `json:"boarded_count"`
	ReturnBoardedCount int    `json:"return_boarded_count"`
	TotalDistance      *int64 `json:"total_distance,omitempty"`
}

// Service linearizes checkpoint transitions per bus+date and enforces the
// strictly forward phase order.
type Service struct {
	store Store
	locks keylock.Locker
	log   *logrus.Logger
}

// NewService creates the state machine service.
func NewService(store Store, locks keylock.Locker, log *logrus.Logger) *Service {
	return &Service{store: store, locks: locks, log: log}
}

// Submit applies one named transition for a bus and service date.
// Resubmitting an already applied transition with the identical odometer is a
// no-op success; a different odometer is ErrConflictingSubmission.
func (s *Service) Submit(ctx context.Context, actor Actor, busID, date string, t Transition, odometer int64) (*Checkpoint, error) {
	sp, ok := transitions[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown transition %q", ErrInvalidInput, t)
	}
	if busID == "" {
		return nil, fmt.Errorf("%w: bus id required", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	if odometer <= 0 {
		return nil, fmt.Errorf("%w: odometer must be a positive integer", ErrInvalidInput)
	}

	release, err := s.locks.Acquire(ctx, "checkpoint:"+busID+":"+date)
	if err != nil {
		return nil, err
	}
	defer release()

	cp, err := s.store.Get(ctx, busID, date)
	if err != nil {
		return nil, err
	}

	if cp == nil {
		if t != StartShift {
			return nil, fmt.Errorf("%w: shift not started", ErrNotFound)
		}
		fresh := Checkpoint{
			ID:            uuid.NewString(),
			BusID:         busID,
			DriverID:      actor.DriverID,
			ServiceDate:   date,
			Phase:         PhaseBoarding,
			StartOdometer: &odometer,
		}
		created, err := s.store.Create(ctx, fresh)
		if err != nil {
			return nil, err
		}
		if created {
			s.log.WithFields(logrus.Fields{"bus_id": busID, "date": date, "odometer": odometer}).
				Info("shift started")
			return s.store.Get(ctx, busID, date)
		}
		// Lost a creation race (lock expiry or second instance); fall through
		// to the retry checks against the winner's row.
		if cp, err = s.store.Get(ctx, busID, date); err != nil {
			return nil, err
		}
		if cp == nil {
			return nil, ErrNotFound
		}
	}

	if !actor.Admin && cp.DriverID != actor.DriverID {
		return nil, ErrNotOwner
	}

	// Retry semantics: once this transition's odometer slot is set, the same
	// reading is a no-op success and anything else is a contradiction.
	if existing := *sp.field(cp); existing != nil {
		if *existing == odometer {
			return cp, nil
		}
		return nil, fmt.Errorf("%w: %s already recorded odometer %d", ErrConflictingSubmission, t, *existing)
	}

	if cp.Phase != sp.from {
		return nil, fmt.Errorf("%w: %s not legal from %s", ErrInvalidTransition, t, cp.Phase)
	}
	if floor := sp.floor(cp); floor != nil && odometer < *floor {
		// Non-monotonic readings corrupt distance and fuel audits downstream;
		// hard failure, never clamped.
		return nil, fmt.Errorf("%w: odometer %d below previous reading %d", ErrInvalidInput, odometer, *floor)
	}

	var totalDistance *int64
	if t == ReachedHome {
		d := odometer - *cp.StartOdometer
		totalDistance = &d
	}

	applied, err := s.store.Advance(ctx, cp.ID, t, odometer, totalDistance)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The row moved under us; reload and classify.
		cur, err := s.store.Get(ctx, busID, date)
		if err != nil {
			return nil, err
		}
		if cur != nil {
			if existing := *sp.field(cur); existing != nil {
				if *existing == odometer {
					return cur, nil
				}
				return nil, ErrConflictingSubmission
			}
		}
		return nil, fmt.Errorf("%w: checkpoint changed concurrently", ErrInvalidTransition)
	}

	s.log.WithFields(logrus.Fields{"bus_id": busID, "date": date, "transition": string(t), "odometer": odometer}).
		Info("checkpoint advanced")
	return s.store.Get(ctx, busID, date)
}

// Status returns the current phase and counters without side effects. A bus
// with no checkpoint yet reports NOT_STARTED.
func (s *Service) Status(ctx context.Context, busID, date string) (Status, error) {
	cp, err := s.store.Get(ctx, busID, date)
	if err != nil {
		return Status{}, err
	}
	if cp == nil {
		return Status{Phase: PhaseNotStarted}, nil
	}
	return Status{
		Phase:              cp.Phase,
		CanScan:            cp.CanScan(),
		BoardedCount:       cp.BoardedCount,
		ReturnBoardedCount: cp.ReturnBoardedCount,
		TotalDistance:      cp.TotalDistance,
	}, nil
}
