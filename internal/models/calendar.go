package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventStage is the progress of a free-standing calendar event.
type EventStage string

const (
	EventPlanned    EventStage = "Planned"
	EventInProgress EventStage = "In Progress"
	EventDone       EventStage = "Done"
	EventCancelled  EventStage = "Cancelled"
)

// Valid reports whether s is a known event stage.
func (s EventStage) Valid() bool {
	switch s {
	case EventPlanned, EventInProgress, EventDone, EventCancelled:
		return true
	default:
		return false
	}
}

// CalendarEvent is a manually scheduled calendar entry that is not backed by a request.
type CalendarEvent struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title      string              `bson:"title" json:"title"`
	Start      time.Time           `bson:"start" json:"start"`
	End        *time.Time          `bson:"end,omitempty" json:"end,omitempty"`
	Priority   Priority            `bson:"priority" json:"priority"`
	Stage      EventStage          `bson:"stage" json:"stage"`
	Equipment  *primitive.ObjectID `bson:"equipment,omitempty" json:"equipment,omitempty"`
	Team       *primitive.ObjectID `bson:"team,omitempty" json:"team,omitempty"`
	Technician *primitive.ObjectID `bson:"technician,omitempty" json:"technician,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updatedAt"`
}

// Validate checks the field constraints of an event.
func (e *CalendarEvent) Validate() error {
	var errs []error
	if strings.TrimSpace(e.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if e.Start.IsZero() {
		errs = append(errs, errors.New("start is required"))
	}
	if e.End != nil && e.End.Before(e.Start) {
		errs = append(errs, errors.New("end must not be before start"))
	}
	if !e.Priority.Valid() {
		errs = append(errs, errors.New("priority must be Low, Medium, High or Critical"))
	}
	if !e.Stage.Valid() {
		errs = append(errs, errors.New("stage must be Planned, In Progress, Done or Cancelled"))
	}
	return errors.Join(errs...)
}
