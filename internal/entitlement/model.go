package entitlement

import "time"

// DateLayout is the calendar-date format used for service dates and validity
// windows throughout the trip core.
const DateLayout = "2006-01-02"

// Kind distinguishes semester passes from single-day tickets.
type Kind string

const (
	KindPass   Kind = "pass"
	KindTicket Kind = "ticket"
)

// Shift is the half-day a route serves.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
)

// Status values an entitlement moves through. Passes are issued as pending and
// become approved; tickets are active on purchase and used once their scan
// budget is spent.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusApproved Status = "approved"
	StatusUsed     Status = "used"
	StatusExpired  Status = "expired"
)

// Entitlement is a read-only snapshot of a pass or ticket at resolve time.
// Mutation (scan_count, used) happens inside the scan coordinator's commit.
type Entitlement struct {
	ID      string `json:"id"`
	QRCode  string `json:"-"`
	Kind    Kind   `json:"kind"`
	OwnerID string `json:"owner_id"`
	RouteID string `json:"route_id"`
	Shift   Shift  `json:"shift"`
	Status  Status `json:"status"`
	// Validity window for passes, travel date for tickets. Calendar dates.
	ValidFrom  *string `json:"valid_from,omitempty"`
	ValidUntil *string `json:"valid_until,omitempty"`
	TravelDate *string `json:"travel_date,omitempty"`
	ScanCount  int     `json:"scan_count"`
	MaxScans   int     `json:"max_scans"`

	CreatedAt time.Time `json:"created_at"`
}

// usable reports whether the status admits travel: active for both kinds,
// approved for passes.
func (e *Entitlement) usable() bool {
	if e.Status == StatusActive {
		return true
	}
	return e.Kind == KindPass && e.Status == StatusApproved
}

// coversDate reports whether the entitlement is valid on the given service
// date (inclusive window for passes, exact date for tickets). Dates compare
// lexicographically in DateLayout.
func (e *Entitlement) coversDate(date string) bool {
	switch e.Kind {
	case KindTicket:
		return e.TravelDate != nil && *e.TravelDate == date
	default:
		if e.ValidFrom == nil || e.ValidUntil == nil {
			return false
		}
		return *e.ValidFrom <= date && date <= *e.ValidUntil
	}
}
