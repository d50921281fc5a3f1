package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kanban groups requests by stage. Every stage key is present.
type Kanban map[Stage][]RequestDetail

// NewKanban returns a board with an empty column for each stage.
func NewKanban() Kanban {
	k := make(Kanban, len(Stages))
	for _, s := range Stages {
		k[s] = []RequestDetail{}
	}
	return k
}

// CalendarProps carries the display data of a calendar entry.
type CalendarProps struct {
	Equipment  *EquipmentSummary `json:"equipment"`
	Team       *TeamSummary      `json:"team"`
	Technician *UserSummary      `json:"technician"`
	Priority   Priority          `json:"priority"`
	Stage      Stage             `json:"stage"`
}

// CalendarEntry is a scheduled preventive request shaped for a calendar widget.
type CalendarEntry struct {
	ID            primitive.ObjectID `json:"id"`
	Title         string             `json:"title"`
	Start         time.Time          `json:"start"`
	ExtendedProps CalendarProps      `json:"extendedProps"`
}

// NewCalendarEntry maps a scheduled request onto a calendar entry.
// The request must have a scheduled date.
func NewCalendarEntry(r *MaintenanceRequest, refs Refs) CalendarEntry {
	title := r.Subject
	if e, ok := refs.Equipment[r.Equipment]; ok {
		title = r.Subject + " - " + e.Name
	}
	return CalendarEntry{
		ID:    r.ID,
		Title: title,
		Start: *r.ScheduledDate,
		ExtendedProps: CalendarProps{
			Equipment:  refs.equipment(r.Equipment),
			Team:       refs.team(r.AssignedTeam),
			Technician: refs.optionalUser(r.AssignedTechnician),
			Priority:   r.Priority,
			Stage:      r.Stage,
		},
	}
}

// DashboardStats are the at-a-glance request counts.
type DashboardStats struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"inProgress"`
	Repaired   int64 `json:"repaired"`
	Scrap      int64 `json:"scrap"`
	Preventive int64 `json:"preventive"`
	Corrective int64 `json:"corrective"`
	Overdue    int64 `json:"overdue"`
}

// ExportRow is one flattened request in a spreadsheet export.
type ExportRow struct {
	Subject       string
	Equipment     string
	Category      EquipmentCategory
	Type          RequestType
	Priority      Priority
	Stage         Stage
	Team          string
	Technician    string
	ScheduledDate *time.Time
	Duration      float64
	Overdue       bool
	CreatedAt     time.Time
}

// NewExportRow flattens a joined request.
func NewExportRow(d *RequestDetail) ExportRow {
	row := ExportRow{
		Subject:       d.Subject,
		Category:      d.EquipmentCategory,
		Type:          d.Type,
		Priority:      d.Priority,
		Stage:         d.Stage,
		ScheduledDate: d.ScheduledDate,
		Duration:      d.Duration,
		Overdue:       d.IsOverdue,
		CreatedAt:     d.CreatedAt,
	}
	if d.Equipment != nil {
		row.Equipment = d.Equipment.Name
	}
	if d.AssignedTeam != nil {
		row.Team = d.AssignedTeam.Name
	}
	if d.AssignedTechnician != nil {
		row.Technician = d.AssignedTechnician.Name
	}
	return row
}
