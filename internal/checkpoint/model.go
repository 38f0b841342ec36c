package checkpoint

import "time"

// Phase is the daily trip's position in its lifecycle. Phases only ever move
// forward; a COMPLETED checkpoint is never re-opened.
type Phase string

const (
	PhaseNotStarted   Phase = "NOT_STARTED"
	PhaseBoarding     Phase = "BOARDING"
	PhaseAtUniversity Phase = "AT_UNIVERSITY"
	PhaseReturning    Phase = "RETURNING"
	PhaseCompleted    Phase = "COMPLETED"
)

// Transition names accepted by the submission endpoint.
type Transition string

const (
	StartShift        Transition = "start-shift"
	ReachedUniversity Transition = "reached-university"
	StartReturn       Transition = "start-return"
	ReachedHome       Transition = "reached-home"
)

// ParseTransition validates a submitted transition name.
func ParseTransition(s string) (Transition, bool) {
	switch t := Transition(s); t {
	case StartShift, ReachedUniversity, StartReturn, ReachedHome:
		return t, true
	}
	return "", false
}

// Checkpoint is one bus+driver+service-date trip record. Odometer fields are
// set exactly once by their transition and are monotonically non-decreasing
// in submission order.
type Checkpoint struct {
	ID       string `json:"id"`
	BusID    string `json:"bus_id"`
	DriverID string `json:"driver_id"`
	// ServiceDate is a calendar date (YYYY-MM-DD), not a timestamp.
	ServiceDate string `json:"service_date"`
	Phase       Phase  `json:"phase"`

	StartOdometer             *int64 `json:"start_odometer,omitempty"`
	UniversityArrivalOdometer *int64 `json:"university_arrival_odometer,omitempty"`
	ReturnStartOdometer       *int64 `json:"return_start_odometer,omitempty"`
	HomeArrivalOdometer       *int64 `json:"home_arrival_odometer,omitempty"`
	// TotalDistance is derived at COMPLETED: home arrival minus shift start.
	TotalDistance *int64 `json:"total_distance,omitempty"`

	BoardedCount       int `json:"boarded_count"`
	ReturnBoardedCount int `json:"return_boarded_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanScan reports whether boarding scans are currently permitted: only while
// students are physically getting on the bus.
func (c *Checkpoint) CanScan() bool {
	return c.Phase == PhaseBoarding || c.Phase == PhaseReturning
}

// step describes one legal transition: source and target phase, which
// odometer field it sets, and the field holding the previous reading the new
// one must not fall below.
type step struct {
	from, to Phase
	field    func(*Checkpoint) **int64
	floor    func(*Checkpoint) *int64
}

var transitions = map[Transition]step{
	StartShift: {
		from:  PhaseNotStarted,
		to:    PhaseBoarding,
		field: func(c *Checkpoint) **int64 { return &c.StartOdometer },
		floor: func(c *Checkpoint) *int64 { return nil },
	},
	ReachedUniversity: {
		from:  PhaseBoarding,
		to:    PhaseAtUniversity,
		field: func(c *Checkpoint) **int64 { return &c.UniversityArrivalOdometer },
		floor: func(c *Checkpoint) *int64 { return c.StartOdometer },
	},
	StartReturn: {
		from:  PhaseAtUniversity,
		to:    PhaseReturning,
		field: func(c *Checkpoint) **int64 { return &c.ReturnStartOdometer },
		floor: func(c *Checkpoint) *int64 { return c.UniversityArrivalOdometer },
	},
	ReachedHome: {
		from:  PhaseReturning,
		to:    PhaseCompleted,
		field: func(c *Checkpoint) **int64 { return &c.HomeArrivalOdometer },
		floor: func(c *Checkpoint) *int64 { return c.ReturnStartOdometer },
	},
}
