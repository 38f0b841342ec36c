package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"campusbus/internal/checkpoint"
	"campusbus/internal/entitlement"
	"campusbus/internal/fleet"
	"campusbus/internal/keylock"
	"campusbus/internal/ledger"
)

// ErrPhaseMismatch means the scan direction is not permitted in the trip's
// current phase.
var ErrPhaseMismatch = errors.New("phase mismatch")

// Resolver maps scanned codes to entitlement snapshots.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*entitlement.Entitlement, error)
}

// BusRegistry exposes the bus assignment needed for route/shift matching.
type BusRegistry interface {
	GetBus(ctx context.Context, id string) (*fleet.Bus, error)
}

// CheckpointSource reads the bus's trip checkpoint for the day.
type CheckpointSource interface {
	Get(ctx context.Context, busID, date string) (*checkpoint.Checkpoint, error)
}

// Commit is one atomic ledger write: the slot stamp plus its side effects
// (boarding counter, ticket scan budget).
type Commit struct {
	Entitlement  *entitlement.Entitlement
	CheckpointID string
	Date         string
	Slot         ledger.Slot
	At           time.Time
	CheckIn      bool
	ReturnLeg    bool
}

// Committer applies a Commit as one transaction. It must surface
// ledger.ErrAlreadyScanned when the slot is taken and ledger.ErrOutOfOrder
// when the slot's prerequisite is missing, leaving no partial effects.
type Committer interface {
	Commit(ctx context.Context, c Commit) (*ledger.Record, error)
}

// Publisher receives the committed ledger event for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Coordinator is the transactional boundary for camera scans: it joins
// entitlement validity, checkpoint phase and ledger slot assignment, and
// serializes same-entitlement scans so a double scan yields exactly one
// success.
type Coordinator struct {
	resolver    Resolver
	buses       BusRegistry
	checkpoints CheckpointSource
	committer   Committer
	locks       keylock.Locker
	publisher   Publisher
	log         *logrus.Logger
	now         func() time.Time
}

// NewCoordinator wires the scan boundary. now supplies service-local time and
// is injectable for tests; nil means time.Now.
func NewCoordinator(resolver Resolver, buses BusRegistry, checkpoints CheckpointSource,
	committer Committer, locks keylock.Locker, publisher Publisher, log *logrus.Logger,
	now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		resolver:    resolver,
		buses:       buses,
		checkpoints: checkpoints,
		committer:   committer,
		locks:       locks,
		publisher:   publisher,
		log:         log,
		now:         now,
	}
}

// RecordScan validates and commits one boarding or alighting event.
func (c *Coordinator) RecordScan(ctx context.Context, code string, direction Direction, busID string) (*ledger.Record, error) {
	now := c.now()
	date := now.Format(entitlement.DateLayout)

	ent, err := c.resolver.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	bus, err := c.buses.GetBus(ctx, busID)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, fmt.Errorf("%w: unknown bus %q", checkpoint.ErrNotFound, busID)
	}
	if err := ent.Validate(bus.RouteID, bus.Shift, date); err != nil {
		return nil, err
	}

	cp, err := c.checkpoints.Get(ctx, busID, date)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("%w: no trip for bus %q today", checkpoint.ErrNotFound, busID)
	}

	slot, checkIn, returnLeg, err := slotFor(direction, cp.Phase)
	if err != nil {
		return nil, err
	}

	// Serialize per entitlement+date: the AlreadyScanned check and the slot
	// write must act as one unit so two simultaneous scans of the same code
	// cannot both succeed.
	release, err := c.locks.Acquire(ctx, "scan:"+ent.ID+":"+date)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := c.committer.Commit(ctx, Commit{
		Entitlement:  ent,
		CheckpointID: cp.ID,
		Date:         date,
		Slot:         slot,
		At:           now,
		CheckIn:      checkIn,
		ReturnLeg:    returnLeg,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrOutOfOrder) {
			// A check-out whose check-in never happened is a phase problem
			// from the operator's point of view.
			return nil, fmt.Errorf("%w: %v", ErrPhaseMismatch, err)
		}
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"entitlement_id": ent.ID,
		"owner_id":       ent.OwnerID,
		"bus_id":         busID,
		"slot":           string(slot),
	}).Info("scan recorded")

	if c.publisher != nil {
		evt := Event{
			RecordID:      rec.ID,
			EntitlementID: ent.ID,
			OwnerID:       ent.OwnerID,
			RouteID:       ent.RouteID,
			Shift:         ent.Shift,
			Direction:     direction,
			Slot:          slot,
			Date:          date,
			At:            now,
		}
		if err := c.publisher.Publish(ctx, evt); err != nil {
			// The ledger row is committed; the stream is best effort.
			c.log.WithError(err).Warn("ledger event publish failed")
		}
	}

	return rec, nil
}

// slotFor picks the timestamp slot a scan targets from its direction and the
// trip's current phase. Check-ins are only legal while the bus is loading;
// check-outs only once the leg's arrival transition has happened.
func slotFor(direction Direction, phase checkpoint.Phase) (slot ledger.Slot, checkIn, returnLeg bool, err error) {
	switch direction {
	case CheckIn:
		switch phase {
		case checkpoint.PhaseBoarding:
			return ledger.SlotOnboarded, true, false, nil
		case checkpoint.PhaseReturning:
			return ledger.SlotLeftForHome, true, true, nil
		}
	case CheckOut:
		switch phase {
		case checkpoint.PhaseAtUniversity:
			return ledger.SlotReachedUniversity, false, false, nil
		case checkpoint.PhaseCompleted:
			return ledger.SlotReachedHome, false, true, nil
		}
	}
	return "", false, false, fmt.Errorf("%w: %s not permitted while %s", ErrPhaseMismatch, direction, phase)
}
