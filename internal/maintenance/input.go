package maintenance

import (
	"strings"
	"time"

	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Date layouts accepted for date fields, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses a date or timestamp supplied for field.
func ParseTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field)
}

// ParseID parses the identifier supplied for field.
func ParseID(field, value string) (primitive.ObjectID, error) {
	id, err := db.ParseID(value)
	if err != nil {
		return primitive.NilObjectID, invalid("%s is not a valid id", field)
	}
	return id, nil
}

func parseOptionalID(field string, value *string) (*primitive.ObjectID, error) {
	if value == nil {
		return nil, nil
	}
	id, err := ParseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseOptionalTime(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := ParseTime(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RequestInput is a full or partial maintenance request payload. Nil fields
// are absent.
type RequestInput struct {
	Subject            *string             `json:"subject"`
	Description        *string             `json:"description"`
	Type               *models.RequestType `json:"type"`
	Priority           *models.Priority    `json:"priority"`
	Stage              *models.Stage       `json:"stage"`
	Equipment          *string             `json:"equipment"`
	AssignedTeam       *string             `json:"assignedTeam"`
	AssignedTechnician *string             `json:"assignedTechnician"`
	RequestedBy        *string             `json:"requestedBy"`
	ScheduledDate      *string             `json:"scheduledDate"`
	Duration           *float64            `json:"duration"`
}

// StageInput is the payload of a stage transition.
type StageInput struct {
	Stage    *models.Stage `json:"stage"`
	Duration *float64      `json:"duration"`
}

// NoteInput is the payload of a new note.
type NoteInput struct {
	Content *string `json:"content"`
	AddedBy *string `json:"addedBy"`
}

// EquipmentInput is a full or partial equipment payload.
type EquipmentInput struct {
	Name              *string                   `json:"name"`
	SerialNumber      *string                   `json:"serialNumber"`
	Category          *models.EquipmentCategory `json:"category"`
	Department        *string                   `json:"department"`
	AssignedTo        *string                   `json:"assignedTo"`
	MaintenanceTeam   *string                   `json:"maintenanceTeam"`
	DefaultTechnician *string                   `json:"defaultTechnician"`
	PurchaseDate      *string                   `json:"purchaseDate"`
	WarrantyExpiry    *string                   `json:"warrantyExpiry"`
	Location          *string                   `json:"location"`
	Status            *models.EquipmentStatus   `json:"status"`
	Description       *string                   `json:"description"`
}

// MemberInput names a user to add to a team.
type MemberInput struct {
	User *string            `json:"user"`
	Role *models.MemberRole `json:"role"`
}

// TeamInput is a full or partial team payload. Members, when present,
// replaces the whole member list.
type TeamInput struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	Specialization *models.Specialization `json:"specialization"`
	Members        []MemberInput          `json:"members"`
	IsActive       *bool                  `json:"isActive"`
	ContactEmail   *string                `json:"contactEmail"`
	ContactPhone   *string                `json:"contactPhone"`
}

// EventInput is a full or partial calendar event payload.
type EventInput struct {
	Title      *string            `json:"title"`
	Start      *string            `json:"start"`
	End        *string            `json:"end"`
	Priority   *models.Priority   `json:"priority"`
	Stage      *models.EventStage `json:"stage"`
	Equipment  *string            `json:"equipment"`
	Team       *string            `json:"team"`
	Technician *string            `json:"technician"`
}
