package checkpoint

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusbus/internal/keylock"
)

// memStore is a DB-free Store with the same compare-and-set semantics as the
// Postgres repository.
type memStore struct {
	mu   sync.Mutex
	rows map[string]*Checkpoint // bus|date
	byID map[string]*Checkpoint
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*Checkpoint{}, byID: map[string]*Checkpoint{}}
}

func (m *memStore) key(busID, date string) string { return busID + "|" + date }

func (m *memStore) Get(_ context.Context, busID, date string) (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.rows[m.key(busID, date)]
	if !ok {
		return nil, nil
	}
	cpy := *cp
	return &cpy, nil
}

func (m *memStore) Create(_ context.Context, cp Checkpoint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(cp.BusID, cp.ServiceDate)
	if _, ok := m.rows[k]; ok {
		return false, nil
	}
	stored := cp
	m.rows[k] = &stored
	m.byID[cp.ID] = &stored
	return true, nil
}

func (m *memStore) Advance(_ context.Context, id string, t Transition, odometer int64, totalDistance *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	sp := transitions[t]
	if cp.Phase != sp.from || *sp.field(cp) != nil {
		return false, nil
	}
	odo := odometer
	*sp.field(cp) = &odo
	cp.Phase = sp.to
	if totalDistance != nil {
		cp.TotalDistance = totalDistance
	}
	return true, nil
}

func newTestService() (*Service, *memStore) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := newMemStore()
	return NewService(st, keylock.NewMemory(), log), st
}

var driver = Actor{DriverID: "driver-1"}

const testDate = "2026-03-02"

func TestSubmitFullLifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cp, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 1000)
	require.NoError(t, err)
	assert.Equal(t, PhaseBoarding, cp.Phase)
	assert.True(t, cp.CanScan())
	require.NotNil(t, cp.StartOdometer)
	assert.EqualValues(t, 1000, *cp.StartOdometer)

	cp, err = svc.Submit(ctx, driver, "bus-1", testDate, ReachedUniversity, 1050)
	require.NoError(t, err)
	assert.Equal(t, PhaseAtUniversity, cp.Phase)
	assert.False(t, cp.CanScan())

	cp, err = svc.Submit(ctx, driver, "bus-1", testDate, StartReturn, 1050)
	require.NoError(t, err)
	assert.Equal(t, PhaseReturning, cp.Phase)
	assert.True(t, cp.CanScan())

	cp, err = svc.Submit(ctx, driver, "bus-1", testDate, ReachedHome, 1100)
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, cp.Phase)
	require.NotNil(t, cp.TotalDistance)
	assert.EqualValues(t, 100, *cp.TotalDistance)
}

func TestSubmitRejectsSkippedPhase(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 1000)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, driver, "bus-1", testDate, StartReturn, 1050)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Submit(ctx, driver, "bus-1", testDate, ReachedHome, 1100)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitBeforeShiftStart(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Submit(context.Background(), driver, "bus-1", testDate, ReachedUniversity, 1050)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitIdempotentRetry(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 500)
	require.NoError(t, err)

	again, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 500)
	require.NoError(t, err)
	assert.Equal(t, first.Phase, again.Phase)
	assert.EqualValues(t, 500, *again.StartOdometer)

	_, err = svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 600)
	assert.ErrorIs(t, err, ErrConflictingSubmission)
}

func TestSubmitRetryAfterLaterPhase(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 500)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, driver, "bus-1", testDate, ReachedUniversity, 540)
	require.NoError(t, err)

	// The slow duplicate of start-shift arrives after the phase moved on.
	cp, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 500)
	require.NoError(t, err)
	assert.Equal(t, PhaseAtUniversity, cp.Phase)

	_, err = svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 501)
	assert.ErrorIs(t, err, ErrConflictingSubmission)
}

func TestSubmitRejectsNonMonotonicOdometer(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 1000)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, driver, "bus-1", testDate, ReachedUniversity, 900)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Equal reading is fine; the bus can arrive without the meter moving a
	// full unit.
	_, err = svc.Submit(ctx, driver, "bus-1", testDate, ReachedUniversity, 1000)
	assert.NoError(t, err)
}

func TestSubmitInputValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Submit(ctx, driver, "bus-1", testDate, StartShift, -20)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Submit(ctx, driver, "bus-1", "02-03-2026", StartShift, 100)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Submit(ctx, driver, "", testDate, StartShift, 100)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 1000)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, Actor{DriverID: "driver-2"}, "bus-1", testDate, ReachedUniversity, 1050)
	assert.ErrorIs(t, err, ErrNotOwner)

	// Admin override may advance another driver's checkpoint.
	cp, err := svc.Submit(ctx, Actor{DriverID: "ops", Admin: true}, "bus-1", testDate, ReachedUniversity, 1050)
	require.NoError(t, err)
	assert.Equal(t, PhaseAtUniversity, cp.Phase)
}

func TestCompletedIsTerminal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, step := range []struct {
		t   Transition
		odo int64
	}{
		{StartShift, 1000}, {ReachedUniversity, 1050}, {StartReturn, 1060}, {ReachedHome, 1110},
	} {
		_, err := svc.Submit(ctx, driver, "bus-1", testDate, step.t, step.odo)
		require.NoError(t, err)
	}

	// Identical replay of the final transition is a no-op success.
	cp, err := svc.Submit(ctx, driver, "bus-1", testDate, ReachedHome, 1110)
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, cp.Phase)

	// Nothing re-opens a completed trip.
	_, err = svc.Submit(ctx, driver, "bus-1", testDate, ReachedHome, 1200)
	assert.ErrorIs(t, err, ErrConflictingSubmission)
	_, err = svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 2000)
	assert.ErrorIs(t, err, ErrConflictingSubmission)
}

func TestStatusBeforeAndAfterStart(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	st, err := svc.Status(ctx, "bus-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, PhaseNotStarted, st.Phase)
	assert.False(t, st.CanScan)

	_, err = svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 1000)
	require.NoError(t, err)

	st, err = svc.Status(ctx, "bus-1", testDate)
	require.NoError(t, err)
	assert.Equal(t, PhaseBoarding, st.Phase)
	assert.True(t, st.CanScan)
}

func TestConcurrentIdenticalRetries(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 25)
	for i := 0; i < len(errs); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 750)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Len(t, st.rows, 1)
}

func TestConcurrentConflictingSubmissions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 500)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Submit(ctx, driver, "bus-1", testDate, StartShift, 600); err != nil {
				mu.Lock()
				defer mu.Unlock()
				assert.ErrorIs(t, err, ErrConflictingSubmission)
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, conflicts)
}
