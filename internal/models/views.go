package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EquipmentSummary is the projection of equipment embedded in other records.
type EquipmentSummary struct {
	ID           primitive.ObjectID `json:"id"`
	Name         string             `json:"name,omitempty"`
	SerialNumber string             `json:"serialNumber,omitempty"`
	Category     EquipmentCategory  `json:"category,omitempty"`
	Department   string             `json:"department,omitempty"`
	Location     string             `json:"location,omitempty"`
}

// Summary returns the embeddable projection of e.
func (e *Equipment) Summary() *EquipmentSummary {
	return &EquipmentSummary{
		ID:           e.ID,
		Name:         e.Name,
		SerialNumber: e.SerialNumber,
		Category:     e.Category,
		Department:   e.Department,
		Location:     e.Location,
	}
}

// TeamSummary is the projection of a team embedded in other records.
type TeamSummary struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name,omitempty"`
	Specialization Specialization     `json:"specialization,omitempty"`
}

// Summary returns the embeddable projection of t.
func (t *MaintenanceTeam) Summary() *TeamSummary {
	return &TeamSummary{ID: t.ID, Name: t.Name, Specialization: t.Specialization}
}

// Refs holds the records a set of requests, equipment or teams point at,
// keyed by id. Missing entries render as id-only summaries.
type Refs struct {
	Equipment map[primitive.ObjectID]*Equipment
	Teams     map[primitive.ObjectID]*MaintenanceTeam
	Users     map[primitive.ObjectID]*User
}

// NewRefs returns an empty Refs ready for filling.
func NewRefs() Refs {
	return Refs{
		Equipment: make(map[primitive.ObjectID]*Equipment),
		Teams:     make(map[primitive.ObjectID]*MaintenanceTeam),
		Users:     make(map[primitive.ObjectID]*User),
	}
}

func (r Refs) equipment(id primitive.ObjectID) *EquipmentSummary {
	if e, ok := r.Equipment[id]; ok {
		return e.Summary()
	}
	return &EquipmentSummary{ID: id}
}

func (r Refs) team(id primitive.ObjectID) *TeamSummary {
	if t, ok := r.Teams[id]; ok {
		return t.Summary()
	}
	return &TeamSummary{ID: id}
}

func (r Refs) user(id primitive.ObjectID) *UserSummary {
	if u, ok := r.Users[id]; ok {
		return u.Summary()
	}
	return &UserSummary{ID: id}
}

func (r Refs) optionalEquipment(id *primitive.ObjectID) *EquipmentSummary {
	if id == nil {
		return nil
	}
	return r.equipment(*id)
}

func (r Refs) optionalTeam(id *primitive.ObjectID) *TeamSummary {
	if id == nil {
		return nil
	}
	return r.team(*id)
}

func (r Refs) optionalUser(id *primitive.ObjectID) *UserSummary {
	if id == nil {
		return nil
	}
	return r.user(*id)
}

// NoteDetail is a note with its author resolved.
type NoteDetail struct {
	ID      primitive.ObjectID `json:"id"`
	Content string             `json:"content"`
	AddedBy *UserSummary       `json:"addedBy"`
	AddedAt time.Time          `json:"addedAt"`
}

// RequestDetail is a maintenance request with its references joined and
// the overdue flag computed at read time.
type RequestDetail struct {
	ID                 primitive.ObjectID `json:"id"`
	Subject            string             `json:"subject"`
	Description        string             `json:"description"`
	Type               RequestType        `json:"type"`
	Priority           Priority           `json:"priority"`
	Stage              Stage              `json:"stage"`
	Equipment          *EquipmentSummary  `json:"equipment"`
	EquipmentCategory  EquipmentCategory  `json:"equipmentCategory"`
	AssignedTeam       *TeamSummary       `json:"assignedTeam"`
	AssignedTechnician *UserSummary       `json:"assignedTechnician,omitempty"`
	RequestedBy        *UserSummary       `json:"requestedBy"`
	ScheduledDate      *time.Time         `json:"scheduledDate,omitempty"`
	Duration           float64            `json:"duration"`
	ActualStartDate    *time.Time         `json:"actualStartDate,omitempty"`
	CompletionDate     *time.Time         `json:"completionDate,omitempty"`
	Notes              []NoteDetail       `json:"notes"`
	Attachments        []Attachment       `json:"attachments"`
	IsOverdue          bool               `json:"isOverdue"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// NewRequestDetail joins r against refs as of now.
func NewRequestDetail(r *MaintenanceRequest, refs Refs, now time.Time) RequestDetail {
	notes := make([]NoteDetail, 0, len(r.Notes))
	for _, n := range r.Notes {
		notes = append(notes, NoteDetail{
			ID:      n.ID,
			Content: n.Content,
			AddedBy: refs.user(n.AddedBy),
			AddedAt: n.AddedAt,
		})
	}
	attachments := r.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}
	return RequestDetail{
		ID:                 r.ID,
		Subject:            r.Subject,
		Description:        r.Description,
		Type:               r.Type,
		Priority:           r.Priority,
		Stage:              r.Stage,
		Equipment:          refs.equipment(r.Equipment),
		EquipmentCategory:  r.EquipmentCategory,
		AssignedTeam:       refs.team(r.AssignedTeam),
		AssignedTechnician: refs.optionalUser(r.AssignedTechnician),
		RequestedBy:        refs.user(r.RequestedBy),
		ScheduledDate:      r.ScheduledDate,
		Duration:           r.Duration,
		ActualStartDate:    r.ActualStartDate,
		CompletionDate:     r.CompletionDate,
		Notes:              notes,
		Attachments:        attachments,
		IsOverdue:          r.IsOverdue(now),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// NewRequestDetails joins every request in rs.
func NewRequestDetails(rs []MaintenanceRequest, refs Refs, now time.Time) []RequestDetail {
	out := make([]RequestDetail, 0, len(rs))
	for i := range rs {
		out = append(out, NewRequestDetail(&rs[i], refs, now))
	}
	return out
}

// EquipmentView is an equipment record with its user and team references joined.
type EquipmentView struct {
	ID                primitive.ObjectID `json:"id"`
	Name              string             `json:"name"`
	SerialNumber      string             `json:"serialNumber"`
	Category          EquipmentCategory  `json:"category"`
	Department        string             `json:"department"`
	AssignedTo        *UserSummary       `json:"assignedTo,omitempty"`
	MaintenanceTeam   *TeamSummary       `json:"maintenanceTeam,omitempty"`
	DefaultTechnician *UserSummary       `json:"defaultTechnician,omitempty"`
	PurchaseDate      time.Time          `json:"purchaseDate"`
	WarrantyExpiry    *time.Time         `json:"warrantyExpiry,omitempty"`
	Location          string             `json:"location"`
	Status            EquipmentStatus    `json:"status"`
	Description       string             `json:"description,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// NewEquipmentView joins e against refs.
func NewEquipmentView(e *Equipment, refs Refs) EquipmentView {
	return EquipmentView{
		ID:                e.ID,
		Name:              e.Name,
		SerialNumber:      e.SerialNumber,
		Category:          e.Category,
		Department:        e.Department,
		AssignedTo:        refs.optionalUser(e.AssignedTo),
		MaintenanceTeam:   refs.optionalTeam(e.MaintenanceTeam),
		DefaultTechnician: refs.optionalUser(e.DefaultTechnician),
		PurchaseDate:      e.PurchaseDate,
		WarrantyExpiry:    e.WarrantyExpiry,
		Location:          e.Location,
		Status:            e.Status,
		Description:       e.Description,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

// EquipmentDetail adds the open requests against the equipment.
type EquipmentDetail struct {
	EquipmentView
	OpenMaintenanceRequests []RequestDetail `json:"openMaintenanceRequests"`
}

// MemberDetail is a team member with the user resolved.
type MemberDetail struct {
	User     *UserSummary `json:"user"`
	Role     MemberRole   `json:"role"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// TeamView is a team with its members resolved.
type TeamView struct {
	ID             primitive.ObjectID `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description,omitempty"`
	Specialization Specialization     `json:"specialization"`
	Members        []MemberDetail     `json:"members"`
	IsActive       bool               `json:"isActive"`
	ContactEmail   string             `json:"contactEmail,omitempty"`
	ContactPhone   string             `json:"contactPhone,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// NewTeamView joins t against refs.
func NewTeamView(t *MaintenanceTeam, refs Refs) TeamView {
	members := make([]MemberDetail, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, MemberDetail{User: refs.user(m.User), Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return TeamView{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Specialization: t.Specialization,
		Members:        members,
		IsActive:       t.IsActive,
		ContactEmail:   t.ContactEmail,
		ContactPhone:   t.ContactPhone,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// TeamDetail adds the open requests assigned to the team.
type TeamDetail struct {
	TeamView
	OpenRequests []RequestDetail `json:"openRequests"`
}

// CalendarEventView is a calendar event with its references joined.
type CalendarEventView struct {
	ID         primitive.ObjectID `json:"id"`
	Title      string             `json:"title"`
	Start      time.Time          `json:"start"`
	End        *time.Time         `json:"end,omitempty"`
	Priority   Priority           `json:"priority"`
	Stage      EventStage         `json:"stage"`
	Equipment  *EquipmentSummary  `json:"equipment,omitempty"`
	Team       *TeamSummary       `json:"team,omitempty"`
	Technician *UserSummary       `json:"technician,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// NewCalendarEventView joins e against refs.
func NewCalendarEventView(e *CalendarEvent, refs Refs) CalendarEventView {
	return CalendarEventView{
		ID:         e.ID,
		Title:      e.Title,
		Start:      e.Start,
		End:        e.End,
		Priority:   e.Priority,
		Stage:      e.Stage,
		Equipment:  refs.optionalEquipment(e.Equipment),
		Team:       refs.optionalTeam(e.Team),
		Technician: refs.optionalUser(e.Technician),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}
