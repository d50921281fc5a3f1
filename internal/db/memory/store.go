// Package memory is an in-process record store with the same semantics as
// the MongoDB collections. It backs tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"time"

	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ db.EquipmentCollection     = (*EquipmentCollection)(nil)
	_ db.TeamCollection          = (*TeamCollection)(nil)
	_ db.RequestCollection       = (*RequestCollection)(nil)
	_ db.UserCollection          = (*UserCollection)(nil)
	_ db.CalendarEventCollection = (*CalendarEventCollection)(nil)
)

// NewStore returns a db.Store backed by empty in-memory collections.
func NewStore() *db.Store {
	return &db.Store{
		Equipment: NewEquipmentCollection(),
		Teams:     NewTeamCollection(),
		Requests:  NewRequestCollection(),
		Users:     NewUserCollection(),
		Events:    NewCalendarEventCollection(),
	}
}

// EquipmentCollection keeps equipment unique by serial number.
type EquipmentCollection struct {
	rows *table[models.Equipment]
}

// NewEquipmentCollection returns an empty equipment collection.
func NewEquipmentCollection() *EquipmentCollection {
	return &EquipmentCollection{rows: newTable(func(a, b *models.Equipment) bool {
		return a.SerialNumber == b.SerialNumber
	})}
}

// InsertEquipment stores e, rejecting a duplicate serial number.
func (c *EquipmentCollection) InsertEquipment(_ context.Context, e *models.Equipment) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	return c.rows.insert(e.ID, e)
}

// FindEquipmentByID returns the equipment with id.
func (c *EquipmentCollection) FindEquipmentByID(_ context.Context, id primitive.ObjectID) (*models.Equipment, error) {
	return c.rows.get(id)
}

// FindEquipmentByIDs returns the equipment among ids that exists.
func (c *EquipmentCollection) FindEquipmentByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Equipment, error) {
	return c.rows.getMany(ids)
}

// FindEquipment lists matching equipment, newest first.
func (c *EquipmentCollection) FindEquipment(_ context.Context, f models.EquipmentFilter, opts db.FindOptions) ([]models.Equipment, error) {
	return c.rows.find(f.Matches, func(a, b *models.Equipment) bool {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}, opts)
}

// CountEquipment counts matching equipment.
func (c *EquipmentCollection) CountEquipment(_ context.Context, f models.EquipmentFilter) (int64, error) {
	return c.rows.count(f.Matches), nil
}

// UpdateEquipment sets fields on one equipment record.
func (c *EquipmentCollection) UpdateEquipment(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Equipment, error) {
	return c.rows.setFields(id, set, nil)
}

// DeleteEquipment removes one equipment record.
func (c *EquipmentCollection) DeleteEquipment(_ context.Context, id primitive.ObjectID) error {
	_, err := c.rows.remove(id)
	return err
}

// TeamCollection keeps team names unique.
type TeamCollection struct {
	rows *table[models.MaintenanceTeam]
}

// NewTeamCollection returns an empty team collection.
func NewTeamCollection() *TeamCollection {
	return &TeamCollection{rows: newTable(func(a, b *models.MaintenanceTeam) bool {
		return a.Name == b.Name
	})}
}

// InsertTeam stores t, rejecting a duplicate name.
func (c *TeamCollection) InsertTeam(_ context.Context, t *models.MaintenanceTeam) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Members == nil {
		t.Members = []models.TeamMember{}
	}
	return c.rows.insert(t.ID, t)
}

// FindTeamByID returns the team with id.
func (c *TeamCollection) FindTeamByID(_ context.Context, id primitive.ObjectID) (*models.MaintenanceTeam, error) {
	return c.rows.get(id)
}

// FindTeamsByIDs returns the teams among ids that exist.
func (c *TeamCollection) FindTeamsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.MaintenanceTeam, error) {
	return c.rows.getMany(ids)
}

// FindTeams lists matching teams, newest first.
func (c *TeamCollection) FindTeams(_ context.Context, f models.TeamFilter, opts db.FindOptions) ([]models.MaintenanceTeam, error) {
	return c.rows.find(f.Matches, func(a, b *models.MaintenanceTeam) bool {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}, opts)
}

// CountTeams counts matching teams.
func (c *TeamCollection) CountTeams(_ context.Context, f models.TeamFilter) (int64, error) {
	return c.rows.count(f.Matches), nil
}

// UpdateTeam sets fields on one team.
func (c *TeamCollection) UpdateTeam(_ context.Context, id primitive.ObjectID, set bson.M) (*models.MaintenanceTeam, error) {
	return c.rows.setFields(id, set, nil)
}

// DeleteTeam removes one team.
func (c *TeamCollection) DeleteTeam(_ context.Context, id primitive.ObjectID) error {
	_, err := c.rows.remove(id)
	return err
}

// AddMember appends m to the team unless the user is already a member.
func (c *TeamCollection) AddMember(_ context.Context, id primitive.ObjectID, m models.TeamMember, at time.Time) (*models.MaintenanceTeam, error) {
	return c.rows.update(id, func(t *models.MaintenanceTeam) (models.MaintenanceTeam, error) {
		if t.HasMember(m.User) {
			return models.MaintenanceTeam{}, db.ErrAlreadyMember
		}
		next := *t
		next.Members = append(append([]models.TeamMember{}, t.Members...), m)
		next.UpdatedAt = at
		return clone(&next)
	})
}

// RemoveMember drops user from the team.
func (c *TeamCollection) RemoveMember(_ context.Context, id, user primitive.ObjectID, at time.Time) (*models.MaintenanceTeam, error) {
	return c.rows.update(id, func(t *models.MaintenanceTeam) (models.MaintenanceTeam, error) {
		next := *t
		next.Members = make([]models.TeamMember, 0, len(t.Members))
		for _, m := range t.Members {
			if m.User != user {
				next.Members = append(next.Members, m)
			}
		}
		next.UpdatedAt = at
		return clone(&next)
	})
}

// RequestCollection stores maintenance requests.
type RequestCollection struct {
	rows *table[models.MaintenanceRequest]
}

// NewRequestCollection returns an empty request collection.
func NewRequestCollection() *RequestCollection {
	return &RequestCollection{rows: newTable[models.MaintenanceRequest](nil)}
}

// InsertRequest stores r.
func (c *RequestCollection) InsertRequest(_ context.Context, r *models.MaintenanceRequest) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.Notes == nil {
		r.Notes = []models.Note{}
	}
	if r.Attachments == nil {
		r.Attachments = []models.Attachment{}
	}
	return c.rows.insert(r.ID, r)
}

// FindRequestByID returns the request with id.
func (c *RequestCollection) FindRequestByID(_ context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	return c.rows.get(id)
}

// FindRequests lists matching requests, newest first unless opts asks for schedule order.
func (c *RequestCollection) FindRequests(_ context.Context, f models.RequestFilter, opts db.FindOptions) ([]models.MaintenanceRequest, error) {
	less := func(a, b *models.MaintenanceRequest) bool {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}
	if opts.Sort == db.SortScheduledAsc {
		less = scheduledFirst
	}
	return c.rows.find(f.Matches, less, opts)
}

// scheduledFirst orders unscheduled requests before scheduled ones, like
// MongoDB sorts missing fields before dates.
func scheduledFirst(a, b *models.MaintenanceRequest) bool {
	switch {
	case a.ScheduledDate == nil && b.ScheduledDate == nil:
	case a.ScheduledDate == nil:
		return true
	case b.ScheduledDate == nil:
		return false
	case !a.ScheduledDate.Equal(*b.ScheduledDate):
		return a.ScheduledDate.Before(*b.ScheduledDate)
	}
	return a.ID.Hex() < b.ID.Hex()
}

// CountRequests counts matching requests.
func (c *RequestCollection) CountRequests(_ context.Context, f models.RequestFilter) (int64, error) {
	return c.rows.count(f.Matches), nil
}

// ExistsRequest reports whether any request matches.
func (c *RequestCollection) ExistsRequest(_ context.Context, f models.RequestFilter) (bool, error) {
	return c.rows.count(f.Matches) > 0, nil
}

// UpdateRequest sets fields on one request and stamps the stampOnce fields that are still empty.
func (c *RequestCollection) UpdateRequest(_ context.Context, id primitive.ObjectID, set bson.M, stampOnce map[string]time.Time) (*models.MaintenanceRequest, error) {
	return c.rows.setFields(id, set, stampOnce)
}

// PushNote appends a note to the request.
func (c *RequestCollection) PushNote(_ context.Context, id primitive.ObjectID, n models.Note, at time.Time) (*models.MaintenanceRequest, error) {
	return c.rows.update(id, func(r *models.MaintenanceRequest) (models.MaintenanceRequest, error) {
		next := *r
		next.Notes = append(append([]models.Note{}, r.Notes...), n)
		next.UpdatedAt = at
		return clone(&next)
	})
}

// PushAttachment appends attachment metadata to the request.
func (c *RequestCollection) PushAttachment(_ context.Context, id primitive.ObjectID, a models.Attachment, at time.Time) (*models.MaintenanceRequest, error) {
	return c.rows.update(id, func(r *models.MaintenanceRequest) (models.MaintenanceRequest, error) {
		next := *r
		next.Attachments = append(append([]models.Attachment{}, r.Attachments...), a)
		next.UpdatedAt = at
		return clone(&next)
	})
}

// DeleteRequest removes the request and returns it.
func (c *RequestCollection) DeleteRequest(_ context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	return c.rows.remove(id)
}

// UserCollection keeps users unique by email.
type UserCollection struct {
	rows *table[models.User]
}

// NewUserCollection returns an empty user collection.
func NewUserCollection() *UserCollection {
	return &UserCollection{rows: newTable(func(a, b *models.User) bool {
		return a.Email == b.Email
	})}
}

// InsertUser stores user, rejecting a duplicate email.
func (c *UserCollection) InsertUser(_ context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	return c.rows.insert(user.ID, user)
}

// FindUserByID returns the user with id.
func (c *UserCollection) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return c.rows.get(id)
}

// FindUsersByIDs returns the users among ids that exist.
func (c *UserCollection) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	return c.rows.getMany(ids)
}

// FindUserByEmail returns the user with email.
func (c *UserCollection) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	users, err := c.rows.find(func(u *models.User) bool { return u.Email == email }, byName, db.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, db.ErrNotFound
	}
	return &users[0], nil
}

// FindUsers lists users by name, optionally restricted to one role.
func (c *UserCollection) FindUsers(_ context.Context, role models.Role) ([]models.User, error) {
	return c.rows.find(func(u *models.User) bool { return role == "" || u.Role == role }, byName, db.FindOptions{})
}

func byName(a, b *models.User) bool { return a.Name < b.Name }

// UpdateLastLogin records a successful login.
func (c *UserCollection) UpdateLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := c.rows.setFields(id, bson.M{"last_login": at, "updated_at": at}, nil)
	return err
}

// CalendarEventCollection stores calendar events.
type CalendarEventCollection struct {
	rows *table[models.CalendarEvent]
}

// NewCalendarEventCollection returns an empty calendar event collection.
func NewCalendarEventCollection() *CalendarEventCollection {
	return &CalendarEventCollection{rows: newTable[models.CalendarEvent](nil)}
}

// InsertEvent stores e.
func (c *CalendarEventCollection) InsertEvent(_ context.Context, e *models.CalendarEvent) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	return c.rows.insert(e.ID, e)
}

// FindEventByID returns the event with id.
func (c *CalendarEventCollection) FindEventByID(_ context.Context, id primitive.ObjectID) (*models.CalendarEvent, error) {
	return c.rows.get(id)
}

// FindEvents lists events starting inside the window, by start.
func (c *CalendarEventCollection) FindEvents(_ context.Context, from, to *time.Time) ([]models.CalendarEvent, error) {
	match := func(e *models.CalendarEvent) bool {
		if from != nil && e.Start.Before(*from) {
			return false
		}
		if to != nil && e.Start.After(*to) {
			return false
		}
		return true
	}
	less := func(a, b *models.CalendarEvent) bool {
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.ID.Hex() < b.ID.Hex()
	}
	return c.rows.find(match, less, db.FindOptions{})
}

// UpdateEvent sets fields on one event.
func (c *CalendarEventCollection) UpdateEvent(_ context.Context, id primitive.ObjectID, set bson.M) (*models.CalendarEvent, error) {
	return c.rows.setFields(id, set, nil)
}

// DeleteEvent removes one event.
func (c *CalendarEventCollection) DeleteEvent(_ context.Context, id primitive.ObjectID) error {
	_, err := c.rows.remove(id)
	return err
}
