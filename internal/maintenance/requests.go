package maintenance

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/events"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Create opens a new request in stage New. The equipment must exist and its
// category is copied onto the request. Without an explicit team the
// equipment's maintenance team is assigned, and without an explicit
// technician its default technician.
func (s *Service) Create(ctx context.Context, in RequestInput) (*models.RequestDetail, error) {
	if in.Equipment == nil {
		return nil, invalid("equipment is required")
	}
	equipmentID, err := ParseID("equipment", *in.Equipment)
	if err != nil {
		return nil, err
	}
	equipment, err := s.requireEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	var team primitive.ObjectID
	switch {
	case in.AssignedTeam != nil:
		if team, err = ParseID("assignedTeam", *in.AssignedTeam); err != nil {
			return nil, err
		}
		if _, err := s.requireTeam(ctx, team); err != nil {
			return nil, err
		}
	case equipment.MaintenanceTeam != nil:
		team = *equipment.MaintenanceTeam
	default:
		return nil, invalid("assigned team is required: equipment has no maintenance team")
	}

	technician, err := parseOptionalID("assignedTechnician", in.AssignedTechnician)
	if err != nil {
		return nil, err
	}
	if technician != nil {
		if err := s.requireUser(ctx, *technician, "technician"); err != nil {
			return nil, err
		}
	} else if equipment.DefaultTechnician != nil {
		id := *equipment.DefaultTechnician
		technician = &id
	}

	if in.RequestedBy == nil {
		return nil, invalid("requested by is required")
	}
	requester, err := ParseID("requestedBy", *in.RequestedBy)
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, requester, "requesting user"); err != nil {
		return nil, err
	}

	scheduled, err := parseOptionalTime("scheduledDate", in.ScheduledDate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &models.MaintenanceRequest{
		Subject:            deref(in.Subject),
		Description:        deref(in.Description),
		Priority:           models.PriorityMedium,
		Equipment:          equipment.ID,
		EquipmentCategory:  equipment.Category,
		AssignedTeam:       team,
		AssignedTechnician: technician,
		RequestedBy:        requester,
		Stage:              models.StageNew,
		ScheduledDate:      scheduled,
		Notes:              []models.Note{},
		Attachments:        []models.Attachment{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if in.Type != nil {
		r.Type = *in.Type
	}
	if in.Priority != nil {
		r.Priority = *in.Priority
	}
	if in.Duration != nil {
		r.Duration = *in.Duration
	}
	if err := r.Validate(); err != nil {
		return nil, invalidModel(err)
	}

	if err := s.store.Requests.InsertRequest(ctx, r); err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	log.WithFields(log.Fields{
		"request_id": r.ID.Hex(),
		"equipment":  r.Equipment.Hex(),
		"team":       r.AssignedTeam.Hex(),
	}).Info("Maintenance request created")

	s.publish(ctx, events.RequestCreated, r, "")
	return s.requestDetail(ctx, r)
}

// Get returns one request with its references joined.
func (s *Service) Get(ctx context.Context, id string) (*models.RequestDetail, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	r, err := s.store.Requests.FindRequestByID(ctx, oid)
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	return s.requestDetail(ctx, r)
}

func validateFilter(f models.RequestFilter) error {
	for _, stage := range f.Stages {
		if !stage.Valid() {
			return invalid("unknown stage %q", stage)
		}
	}
	if f.Type != "" && !f.Type.Valid() {
		return invalid("unknown type %q", f.Type)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return invalid("unknown priority %q", f.Priority)
	}
	return nil
}

// List returns one page of requests matching f, newest first.
func (s *Service) List(ctx context.Context, f models.RequestFilter, page models.PageRequest) (*models.Page[models.RequestDetail], error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	return s.pageRequests(ctx, f, page)
}

func (s *Service) pageRequests(ctx context.Context, f models.RequestFilter, page models.PageRequest) (*models.Page[models.RequestDetail], error) {
	page = page.Normalize()
	requests, err := s.store.Requests.FindRequests(ctx, f, db.PageOptions(page))
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	total, err := s.store.Requests.CountRequests(ctx, f)
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	details, err := s.requestDetails(ctx, requests)
	if err != nil {
		return nil, err
	}
	p := models.NewPage(details, total, page)
	return &p, nil
}

// Update applies a partial payload. Changing the equipment re-copies its
// category. A stage in the payload follows the same stamping rule as
// ChangeStage.
func (s *Service) Update(ctx context.Context, id string, in RequestInput) (*models.RequestDetail, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	current, err := s.store.Requests.FindRequestByID(ctx, oid)
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}

	next := *current
	set := bson.M{}
	if in.Subject != nil {
		next.Subject = *in.Subject
		set["subject"] = next.Subject
	}
	if in.Description != nil {
		next.Description = *in.Description
		set["description"] = next.Description
	}
	if in.Type != nil {
		next.Type = *in.Type
		set["type"] = next.Type
	}
	if in.Priority != nil {
		next.Priority = *in.Priority
		set["priority"] = next.Priority
	}
	if in.Duration != nil {
		next.Duration = *in.Duration
		set["duration"] = next.Duration
	}
	if in.Equipment != nil {
		equipmentID, err := ParseID("equipment", *in.Equipment)
		if err != nil {
			return nil, err
		}
		equipment, err := s.requireEquipment(ctx, equipmentID)
		if err != nil {
			return nil, err
		}
		next.Equipment = equipment.ID
		next.EquipmentCategory = equipment.Category
		set["equipment"] = next.Equipment
		set["equipment_category"] = next.EquipmentCategory
	}
	if in.AssignedTeam != nil {
		team, err := ParseID("assignedTeam", *in.AssignedTeam)
		if err != nil {
			return nil, err
		}
		if _, err := s.requireTeam(ctx, team); err != nil {
			return nil, err
		}
		next.AssignedTeam = team
		set["assigned_team"] = team
	}
	if in.AssignedTechnician != nil {
		technician, err := ParseID("assignedTechnician", *in.AssignedTechnician)
		if err != nil {
			return nil, err
		}
		if err := s.requireUser(ctx, technician, "technician"); err != nil {
			return nil, err
		}
		next.AssignedTechnician = &technician
		set["assigned_technician"] = technician
	}
	if in.RequestedBy != nil {
		requester, err := ParseID("requestedBy", *in.RequestedBy)
		if err != nil {
			return nil, err
		}
		if err := s.requireUser(ctx, requester, "requesting user"); err != nil {
			return nil, err
		}
		next.RequestedBy = requester
		set["requested_by"] = requester
	}
	if in.ScheduledDate != nil {
		scheduled, err := ParseTime("scheduledDate", *in.ScheduledDate)
		if err != nil {
			return nil, err
		}
		next.ScheduledDate = &scheduled
		set["scheduled_date"] = scheduled
	}

	now := s.now()
	var stamps map[string]time.Time
	if in.Stage != nil {
		next.ApplyStage(*in.Stage, now)
		set["stage"] = next.Stage
		stamps = stampTimes(next.Stage, now)
	}
	if err := next.Validate(); err != nil {
		return nil, invalidModel(err)
	}
	set["updated_at"] = now

	updated, err := s.store.Requests.UpdateRequest(ctx, oid, set, stamps)
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	if in.Stage != nil && current.Stage != updated.Stage {
		s.publish(ctx, events.RequestStageChanged, updated, current.Stage)
	}
	return s.requestDetail(ctx, updated)
}

func stampTimes(stage models.Stage, now time.Time) map[string]time.Time {
	fields := models.StageStamps(stage)
	if len(fields) == 0 {
		return nil
	}
	stamps := make(map[string]time.Time, len(fields))
	for _, f := range fields {
		stamps[f] = now
	}
	return stamps
}

// ChangeStage moves a request to a new stage. Any stage may follow any
// other. Entering In Progress stamps the actual start date and entering
// Repaired or Scrap stamps the completion date, each only the first time.
// The stage, duration and stamps are written atomically.
func (s *Service) ChangeStage(ctx context.Context, id string, in StageInput) (*models.RequestDetail, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	if in.Stage == nil {
		return nil, invalid("stage is required")
	}
	if !in.Stage.Valid() {
		return nil, invalid("stage must be New, In Progress, Repaired or Scrap")
	}
	if in.Duration != nil && *in.Duration < 0 {
		return nil, invalid("duration must not be negative")
	}

	previous, err := s.store.Requests.FindRequestByID(ctx, oid)
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}

	now := s.now()
	set := bson.M{"stage": *in.Stage, "updated_at": now}
	if in.Duration != nil {
		set["duration"] = *in.Duration
	}
	updated, err := s.store.Requests.UpdateRequest(ctx, oid, set, stampTimes(*in.Stage, now))
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	log.WithFields(log.Fields{
		"request_id": oid.Hex(),
		"from":       previous.Stage,
		"to":         updated.Stage,
	}).Info("Maintenance request stage changed")

	s.publish(ctx, events.RequestStageChanged, updated, previous.Stage)
	return s.requestDetail(ctx, updated)
}

// Delete removes a request and, best effort, its attachment contents.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := ParseID("id", id)
	if err != nil {
		return err
	}
	removed, err := s.store.Requests.DeleteRequest(ctx, oid)
	if err != nil {
		return fromStore(err, "maintenance request")
	}
	if s.blobs != nil {
		for _, a := range removed.Attachments {
			if err := s.blobs.Delete(ctx, a.Path); err != nil {
				log.WithError(err).WithField("key", a.Path).Warn("Failed to remove attachment content")
			}
		}
	}
	s.publish(ctx, events.RequestDeleted, removed, "")
	return nil
}

// AddNote appends a note to a request. Notes are accepted in every stage.
func (s *Service) AddNote(ctx context.Context, id string, in NoteInput) (*models.RequestDetail, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	if in.Content == nil || strings.TrimSpace(*in.Content) == "" {
		return nil, invalid("content is required")
	}
	if in.AddedBy == nil {
		return nil, invalid("added by is required")
	}
	author, err := ParseID("addedBy", *in.AddedBy)
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, author, "note author"); err != nil {
		return nil, err
	}

	now := s.now()
	note := models.Note{
		ID:      primitive.NewObjectID(),
		Content: strings.TrimSpace(*in.Content),
		AddedBy: author,
		AddedAt: now,
	}
	updated, err := s.store.Requests.PushNote(ctx, oid, note, now)
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}
	s.publish(ctx, events.RequestNoteAdded, updated, "")
	return s.requestDetail(ctx, updated)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
