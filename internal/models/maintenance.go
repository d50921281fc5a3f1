package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestType distinguishes breakdown repairs from planned upkeep.
type RequestType string

const (
	TypeCorrective RequestType = "Corrective"
	TypePreventive RequestType = "Preventive"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	return t == TypeCorrective || t == TypePreventive
}

// Priority of a maintenance request.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Stage is the lifecycle position of a request. Any stage may follow any other.
type Stage string

const (
	StageNew        Stage = "New"
	StageInProgress Stage = "In Progress"
	StageRepaired   Stage = "Repaired"
	StageScrap      Stage = "Scrap"
)

// Stages lists every stage in board order.
var Stages = []Stage{StageNew, StageInProgress, StageRepaired, StageScrap}

// OpenStages are the stages that block deletion of referenced equipment and teams.
var OpenStages = []Stage{StageNew, StageInProgress}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageNew, StageInProgress, StageRepaired, StageScrap:
		return true
	default:
		return false
	}
}

// Stored field names stamped once by stage transitions.
const (
	FieldActualStartDate = "actual_start_date"
	FieldCompletionDate  = "completion_date"
)

// StageStamps returns the date fields that entering stage sets when they are still unset.
func StageStamps(stage Stage) []string {
	switch stage {
	case StageInProgress:
		return []string{FieldActualStartDate}
	case StageRepaired, StageScrap:
		return []string{FieldCompletionDate}
	default:
		return nil
	}
}

// Note is an append-only comment on a request.
type Note struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Content string             `bson:"content" json:"content"`
	AddedBy primitive.ObjectID `bson:"added_by" json:"addedBy"`
	AddedAt time.Time          `bson:"added_at" json:"addedAt"`
}

// Attachment describes a file stored alongside a request.
type Attachment struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"original_name" json:"originalName"`
	Path         string             `bson:"path" json:"path"`
	ContentType  string             `bson:"content_type" json:"contentType"`
	Size         int64              `bson:"size" json:"size"`
	UploadedBy   primitive.ObjectID `bson:"uploaded_by,omitempty" json:"uploadedBy,omitempty"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploadedAt"`
}

// MaintenanceRequest is a work order raised against one piece of equipment.
type MaintenanceRequest struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Subject            string              `bson:"subject" json:"subject"`
	Description        string              `bson:"description" json:"description"`
	Type               RequestType         `bson:"type" json:"type"`
	Priority           Priority            `bson:"priority" json:"priority"`
	Equipment          primitive.ObjectID  `bson:"equipment" json:"equipment"`
	EquipmentCategory  EquipmentCategory   `bson:"equipment_category" json:"equipmentCategory"` // copied on create
	AssignedTeam       primitive.ObjectID  `bson:"assigned_team" json:"assignedTeam"`
	AssignedTechnician *primitive.ObjectID `bson:"assigned_technician,omitempty" json:"assignedTechnician,omitempty"`
	RequestedBy        primitive.ObjectID  `bson:"requested_by" json:"requestedBy"`
	Stage              Stage               `bson:"stage" json:"stage"`
	ScheduledDate      *time.Time          `bson:"scheduled_date,omitempty" json:"scheduledDate,omitempty"`
	Duration           float64             `bson:"duration" json:"duration"` // hours
	ActualStartDate    *time.Time          `bson:"actual_start_date,omitempty" json:"actualStartDate,omitempty"`
	CompletionDate     *time.Time          `bson:"completion_date,omitempty" json:"completionDate,omitempty"`
	Notes              []Note              `bson:"notes" json:"notes"`
	Attachments        []Attachment        `bson:"attachments" json:"attachments"`
	CreatedAt          time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updatedAt"`
}

// IsOverdue reports whether a new request has a scheduled date before now.
func (r *MaintenanceRequest) IsOverdue(now time.Time) bool {
	return r.Stage == StageNew && r.ScheduledDate != nil && r.ScheduledDate.Before(now)
}

// ApplyStage moves the request to stage and stamps the start or completion
// date if it has never been set. Stamps are never cleared or overwritten.
func (r *MaintenanceRequest) ApplyStage(stage Stage, now time.Time) {
	r.Stage = stage
	for _, field := range StageStamps(stage) {
		t := now
		switch field {
		case FieldActualStartDate:
			if r.ActualStartDate == nil {
				r.ActualStartDate = &t
			}
		case FieldCompletionDate:
			if r.CompletionDate == nil {
				r.CompletionDate = &t
			}
		}
	}
}

// Attachment returns the attachment with the given id.
func (r *MaintenanceRequest) Attachment(id primitive.ObjectID) (*Attachment, bool) {
	for i := range r.Attachments {
		if r.Attachments[i].ID == id {
			return &r.Attachments[i], true
		}
	}
	return nil, false
}

// Validate checks the field constraints of a request.
func (r *MaintenanceRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Subject) == "" {
		errs = append(errs, errors.New("subject is required"))
	}
	if strings.TrimSpace(r.Description) == "" {
		errs = append(errs, errors.New("description is required"))
	}
	if !r.Type.Valid() {
		errs = append(errs, errors.New("type must be Corrective or Preventive"))
	}
	if !r.Priority.Valid() {
		errs = append(errs, errors.New("priority must be Low, Medium, High or Critical"))
	}
	if !r.Stage.Valid() {
		errs = append(errs, errors.New("stage must be New, In Progress, Repaired or Scrap"))
	}
	if r.Equipment.IsZero() {
		errs = append(errs, errors.New("equipment is required"))
	}
	if r.EquipmentCategory == "" {
		errs = append(errs, errors.New("equipment category is required"))
	}
	if r.AssignedTeam.IsZero() {
		errs = append(errs, errors.New("assigned team is required"))
	}
	if r.RequestedBy.IsZero() {
		errs = append(errs, errors.New("requested by is required"))
	}
	if r.Duration < 0 {
		errs = append(errs, errors.New("duration must not be negative"))
	}
	return errors.Join(errs...)
}
