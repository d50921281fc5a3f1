package db

import (
	"context"
	"time"

	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SortOrder selects how list queries are ordered.
type SortOrder int

const (
	// SortNewest orders by creation time, newest first.
	SortNewest SortOrder = iota
	// SortScheduledAsc orders by scheduled date, earliest first.
	SortScheduledAsc
)

// FindOptions paginates and orders a list query. A zero Limit means no limit.
type FindOptions struct {
	Limit int64
	Skip  int64
	Sort  SortOrder
}

// PageOptions converts a page request into find options.
func PageOptions(p models.PageRequest) FindOptions {
	p = p.Normalize()
	return FindOptions{Limit: p.Limit, Skip: p.Skip()}
}

// EquipmentCollection defines the equipment record operations.
type EquipmentCollection interface {
	InsertEquipment(ctx context.Context, e *models.Equipment) error
	FindEquipmentByID(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error)
	FindEquipmentByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Equipment, error)
	FindEquipment(ctx context.Context, f models.EquipmentFilter, opts FindOptions) ([]models.Equipment, error)
	CountEquipment(ctx context.Context, f models.EquipmentFilter) (int64, error)
	UpdateEquipment(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Equipment, error)
	DeleteEquipment(ctx context.Context, id primitive.ObjectID) error
}

// TeamCollection defines the maintenance team operations.
type TeamCollection interface {
	InsertTeam(ctx context.Context, t *models.MaintenanceTeam) error
	FindTeamByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceTeam, error)
	FindTeamsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.MaintenanceTeam, error)
	FindTeams(ctx context.Context, f models.TeamFilter, opts FindOptions) ([]models.MaintenanceTeam, error)
	CountTeams(ctx context.Context, f models.TeamFilter) (int64, error)
	UpdateTeam(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.MaintenanceTeam, error)
	DeleteTeam(ctx context.Context, id primitive.ObjectID) error
	// AddMember appends m unless the user is already listed, in which case
	// it returns ErrAlreadyMember.
	AddMember(ctx context.Context, id primitive.ObjectID, m models.TeamMember, at time.Time) (*models.MaintenanceTeam, error)
	RemoveMember(ctx context.Context, id, user primitive.ObjectID, at time.Time) (*models.MaintenanceTeam, error)
}

// RequestCollection defines the maintenance request operations.
type RequestCollection interface {
	InsertRequest(ctx context.Context, r *models.MaintenanceRequest) error
	FindRequestByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error)
	FindRequests(ctx context.Context, f models.RequestFilter, opts FindOptions) ([]models.MaintenanceRequest, error)
	CountRequests(ctx context.Context, f models.RequestFilter) (int64, error)
	ExistsRequest(ctx context.Context, f models.RequestFilter) (bool, error)
	// UpdateRequest sets the given fields and, in the same write, sets each
	// stampOnce field to its time only if the field is still unset.
	UpdateRequest(ctx context.Context, id primitive.ObjectID, set bson.M, stampOnce map[string]time.Time) (*models.MaintenanceRequest, error)
	PushNote(ctx context.Context, id primitive.ObjectID, n models.Note, at time.Time) (*models.MaintenanceRequest, error)
	PushAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment, at time.Time) (*models.MaintenanceRequest, error)
	// DeleteRequest removes the request and returns it as it was.
	DeleteRequest(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error)
}

// CalendarEventCollection defines the calendar event operations.
type CalendarEventCollection interface {
	InsertEvent(ctx context.Context, e *models.CalendarEvent) error
	FindEventByID(ctx context.Context, id primitive.ObjectID) (*models.CalendarEvent, error)
	FindEvents(ctx context.Context, from, to *time.Time) ([]models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id primitive.ObjectID) error
}

// Store groups the collections the services work against.
type Store struct {
	Equipment EquipmentCollection
	Teams     TeamCollection
	Requests  RequestCollection
	Users     UserCollection
	Events    CalendarEventCollection
}
