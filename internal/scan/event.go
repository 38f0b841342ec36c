package scan

import (
	"context"
	"encoding/json"
	"time"

	"campusbus/internal/entitlement"
	"campusbus/internal/ledger"
	"campusbus/internal/queue"
)

// EventType tags ledger events on the queue.
const EventType = "scan"

// Event is the ledger change published after each committed scan. Downstream
// consumers (dashboards, reward points, demand forecast) read these instead
// of polling the ledger.
type Event struct {
	RecordID      string            `json:"record_id"`
	EntitlementID string            `json:"entitlement_id"`
	OwnerID       string            `json:"owner_id"`
	RouteID       string            `json:"route_id"`
	Shift         entitlement.Shift `json:"shift"`
	Direction     Direction         `json:"direction"`
	Slot          ledger.Slot       `json:"slot"`
	Date          string            `json:"date"`
	At            time.Time         `json:"at"`
}

// QueuePublisher adapts the queue to the coordinator's Publisher interface.
type QueuePublisher struct {
	q queue.Queue
}

// NewQueuePublisher wraps a queue backend.
func NewQueuePublisher(q queue.Queue) *QueuePublisher {
	return &QueuePublisher{q: q}
}

// Publish enqueues the event as a typed JSON message.
func (p *QueuePublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.q.Publish(ctx, queue.Message{Type: EventType, Body: body})
}

// DecodeEvent parses a queue message body back into an Event.
func DecodeEvent(body []byte) (Event, error) {
	var evt Event
	err := json.Unmarshal(body, &evt)
	return evt, err
}
