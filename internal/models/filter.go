package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestFilter selects maintenance requests. Zero fields do not constrain.
type RequestFilter struct {
	Stages          []Stage
	Type            RequestType
	Priority        Priority
	Team            *primitive.ObjectID
	Technician      *primitive.ObjectID
	Equipment       *primitive.ObjectID
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	ScheduledOnly   bool
	ScheduledFrom   *time.Time
	ScheduledTo     *time.Time
	ScheduledBefore *time.Time // strict
}

// Matches reports whether r satisfies every constraint of f.
func (f RequestFilter) Matches(r *MaintenanceRequest) bool {
	if len(f.Stages) > 0 && !containsStage(f.Stages, r.Stage) {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	if f.Team != nil && r.AssignedTeam != *f.Team {
		return false
	}
	if f.Technician != nil && (r.AssignedTechnician == nil || *r.AssignedTechnician != *f.Technician) {
		return false
	}
	if f.Equipment != nil && r.Equipment != *f.Equipment {
		return false
	}
	if f.CreatedFrom != nil && r.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && r.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	scheduledConstrained := f.ScheduledOnly || f.ScheduledFrom != nil || f.ScheduledTo != nil || f.ScheduledBefore != nil
	if scheduledConstrained && r.ScheduledDate == nil {
		return false
	}
	if f.ScheduledFrom != nil && r.ScheduledDate.Before(*f.ScheduledFrom) {
		return false
	}
	if f.ScheduledTo != nil && r.ScheduledDate.After(*f.ScheduledTo) {
		return false
	}
	if f.ScheduledBefore != nil && !r.ScheduledDate.Before(*f.ScheduledBefore) {
		return false
	}
	return true
}

func containsStage(stages []Stage, s Stage) bool {
	for _, candidate := range stages {
		if candidate == s {
			return true
		}
	}
	return false
}

// EquipmentFilter selects equipment records.
type EquipmentFilter struct {
	Department string
	Category   EquipmentCategory
	AssignedTo *primitive.ObjectID
}

// Matches reports whether e satisfies f.
func (f EquipmentFilter) Matches(e *Equipment) bool {
	if f.Department != "" && e.Department != f.Department {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.AssignedTo != nil && (e.AssignedTo == nil || *e.AssignedTo != *f.AssignedTo) {
		return false
	}
	return true
}

// TeamFilter selects maintenance teams.
type TeamFilter struct {
	Specialization Specialization
	IsActive       *bool
}

// Matches reports whether t satisfies f.
func (f TeamFilter) Matches(t *MaintenanceTeam) bool {
	if f.Specialization != "" && t.Specialization != f.Specialization {
		return false
	}
	if f.IsActive != nil && t.IsActive != *f.IsActive {
		return false
	}
	return true
}
