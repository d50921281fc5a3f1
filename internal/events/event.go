// Package events publishes maintenance request lifecycle events to a broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ukydev/gearguard/internal/models"
)

// Type names a lifecycle event. It doubles as the MQTT topic suffix and the
// AMQP routing key.
type Type string

const (
	RequestCreated      Type = "request.created"
	RequestStageChanged Type = "request.stage_changed"
	RequestDeleted      Type = "request.deleted"
	RequestNoteAdded    Type = "request.note_added"
)

// Event is the broker payload for a request lifecycle change.
type Event struct {
	Type          Type         `json:"type"`
	RequestID     string       `json:"requestId"`
	Subject       string       `json:"subject"`
	Stage         models.Stage `json:"stage"`
	PreviousStage models.Stage `json:"previousStage,omitempty"`
	EquipmentID   string       `json:"equipmentId"`
	TeamID        string       `json:"teamId"`
	OccurredAt    time.Time    `json:"occurredAt"`
}

// NewRequestEvent describes r as of at.
func NewRequestEvent(t Type, r *models.MaintenanceRequest, at time.Time) Event {
	return Event{
		Type:        t,
		RequestID:   r.ID.Hex(),
		Subject:     r.Subject,
		Stage:       r.Stage,
		EquipmentID: r.Equipment.Hex(),
		TeamID:      r.AssignedTeam.Hex(),
		OccurredAt:  at.UTC(),
	}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to subscribers outside the process.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
