package maintenance

import (
	"context"
	"time"

	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Service) applyEvent(ctx context.Context, in EventInput, e *models.CalendarEvent, set bson.M) error {
	if in.Title != nil {
		e.Title = *in.Title
		set["title"] = e.Title
	}
	if in.Start != nil {
		t, err := ParseTime("start", *in.Start)
		if err != nil {
			return err
		}
		e.Start = t
		set["start"] = t
	}
	if in.End != nil {
		t, err := ParseTime("end", *in.End)
		if err != nil {
			return err
		}
		e.End = &t
		set["end"] = t
	}
	if in.Priority != nil {
		e.Priority = *in.Priority
		set["priority"] = e.Priority
	}
	if in.Stage != nil {
		e.Stage = *in.Stage
		set["stage"] = e.Stage
	}

	equipment, err := parseOptionalID("equipment", in.Equipment)
	if err != nil {
		return err
	}
	if equipment != nil {
		if _, err := s.requireEquipment(ctx, *equipment); err != nil {
			return err
		}
		e.Equipment = equipment
		set["equipment"] = *equipment
	}
	team, err := parseOptionalID("team", in.Team)
	if err != nil {
		return err
	}
	if team != nil {
		if _, err := s.requireTeam(ctx, *team); err != nil {
			return err
		}
		e.Team = team
		set["team"] = *team
	}
	technician, err := parseOptionalID("technician", in.Technician)
	if err != nil {
		return err
	}
	if technician != nil {
		if err := s.requireUser(ctx, *technician, "technician"); err != nil {
			return err
		}
		e.Technician = technician
		set["technician"] = *technician
	}
	return nil
}

func (s *Service) eventViews(ctx context.Context, events []models.CalendarEvent) ([]models.CalendarEventView, error) {
	set := newRefSet()
	for i := range events {
		set.event(&events[i])
	}
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	views := make([]models.CalendarEventView, 0, len(events))
	for i := range events {
		views = append(views, models.NewCalendarEventView(&events[i], refs))
	}
	return views, nil
}

func (s *Service) eventView(ctx context.Context, e *models.CalendarEvent) (*models.CalendarEventView, error) {
	views, err := s.eventViews(ctx, []models.CalendarEvent{*e})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListEvents returns the calendar events starting within the optional window,
// earliest first.
func (s *Service) ListEvents(ctx context.Context, from, to *time.Time) ([]models.CalendarEventView, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, invalid("end must not be before start")
	}
	events, err := s.store.Events.FindEvents(ctx, from, to)
	if err != nil {
		return nil, fromStore(err, "calendar event")
	}
	return s.eventViews(ctx, events)
}

// CreateEvent adds a calendar event. Priority defaults to Low and stage to Planned.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*models.CalendarEventView, error) {
	e := &models.CalendarEvent{Priority: models.PriorityLow, Stage: models.EventPlanned}
	if err := s.applyEvent(ctx, in, e, bson.M{}); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, invalidModel(err)
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.store.Events.InsertEvent(ctx, e); err != nil {
		return nil, fromStore(err, "calendar event")
	}
	return s.eventView(ctx, e)
}

// UpdateEvent applies a partial payload to an event.
func (s *Service) UpdateEvent(ctx context.Context, id string, in EventInput) (*models.CalendarEventView, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	current, err := s.store.Events.FindEventByID(ctx, oid)
	if err != nil {
		return nil, fromStore(err, "calendar event")
	}
	next := *current
	set := bson.M{}
	if err := s.applyEvent(ctx, in, &next, set); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, invalidModel(err)
	}
	set["updated_at"] = s.now()
	updated, err := s.store.Events.UpdateEvent(ctx, oid, set)
	if err != nil {
		return nil, fromStore(err, "calendar event")
	}
	return s.eventView(ctx, updated)
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	oid, err := ParseID("id", id)
	if err != nil {
		return err
	}
	return fromStore(s.store.Events.DeleteEvent(ctx, oid), "calendar event")
}
