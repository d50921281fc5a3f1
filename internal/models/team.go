package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Specialization is the trade a maintenance team covers.
type Specialization string

const (
	SpecializationMechanics   Specialization = "Mechanics"
	SpecializationElectrician Specialization = "Electricians"
	SpecializationIT          Specialization = "IT Support"
	SpecializationHVAC        Specialization = "HVAC"
	SpecializationGeneral     Specialization = "General"
)

// Valid reports whether s is a known specialization.
func (s Specialization) Valid() bool {
	switch s {
	case SpecializationMechanics, SpecializationElectrician, SpecializationIT, SpecializationHVAC, SpecializationGeneral:
		return true
	default:
		return false
	}
}

// MemberRole is a member's position within a team.
type MemberRole string

const (
	MemberTeamLead   MemberRole = "Team Lead"
	MemberSenior     MemberRole = "Senior Technician"
	MemberTechnician MemberRole = "Technician"
)

// Valid reports whether r is a known member role.
func (r MemberRole) Valid() bool {
	return r == MemberTeamLead || r == MemberSenior || r == MemberTechnician
}

// TeamMember links a user to a team.
type TeamMember struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	Role     MemberRole         `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joined_at" json:"joinedAt"`
}

// MaintenanceTeam groups technicians that handle requests.
type MaintenanceTeam struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Specialization Specialization     `bson:"specialization" json:"specialization"`
	Members        []TeamMember       `bson:"members" json:"members"`
	IsActive       bool               `bson:"is_active" json:"isActive"`
	ContactEmail   string             `bson:"contact_email,omitempty" json:"contactEmail,omitempty"`
	ContactPhone   string             `bson:"contact_phone,omitempty" json:"contactPhone,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}

// HasMember reports whether user already belongs to the team.
func (t *MaintenanceTeam) HasMember(user primitive.ObjectID) bool {
	for _, m := range t.Members {
		if m.User == user {
			return true
		}
	}
	return false
}

// Validate checks the field constraints of a team, including member uniqueness.
func (t *MaintenanceTeam) Validate() error {
	var errs []error
	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !t.Specialization.Valid() {
		errs = append(errs, errors.New("specialization must be one of Mechanics, Electricians, IT Support, HVAC, General"))
	}
	seen := make(map[primitive.ObjectID]bool, len(t.Members))
	for i, m := range t.Members {
		if m.User.IsZero() {
			errs = append(errs, fmt.Errorf("members[%d].user is required", i))
			continue
		}
		if seen[m.User] {
			errs = append(errs, fmt.Errorf("user %s is listed more than once", m.User.Hex()))
		}
		seen[m.User] = true
		if !m.Role.Valid() {
			errs = append(errs, fmt.Errorf("members[%d].role must be Team Lead, Senior Technician or Technician", i))
		}
	}
	return errors.Join(errs...)
}
