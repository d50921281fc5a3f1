package maintenance

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Service) member(ctx context.Context, in MemberInput, at time.Time) (models.TeamMember, error) {
	if in.User == nil {
		return models.TeamMember{}, invalid("user is required")
	}
	user, err := ParseID("user", *in.User)
	if err != nil {
		return models.TeamMember{}, err
	}
	role := models.MemberTechnician
	if in.Role != nil {
		role = *in.Role
	}
	if !role.Valid() {
		return models.TeamMember{}, invalid("role must be Team Lead, Senior Technician or Technician")
	}
	if err := s.requireUser(ctx, user, "user"); err != nil {
		return models.TeamMember{}, err
	}
	return models.TeamMember{User: user, Role: role, JoinedAt: at}, nil
}

func (s *Service) members(ctx context.Context, in []MemberInput) ([]models.TeamMember, error) {
	at := s.now()
	out := make([]models.TeamMember, 0, len(in))
	for _, m := range in {
		member, err := s.member(ctx, m, at)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, nil
}

func applyTeam(in TeamInput, t *models.MaintenanceTeam, set bson.M) {
	if in.Name != nil {
		t.Name = *in.Name
		set["name"] = t.Name
	}
	if in.Description != nil {
		t.Description = *in.Description
		set["description"] = t.Description
	}
	if in.Specialization != nil {
		t.Specialization = *in.Specialization
		set["specialization"] = t.Specialization
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
		set["is_active"] = t.IsActive
	}
	if in.ContactEmail != nil {
		t.ContactEmail = *in.ContactEmail
		set["contact_email"] = t.ContactEmail
	}
	if in.ContactPhone != nil {
		t.ContactPhone = *in.ContactPhone
		set["contact_phone"] = t.ContactPhone
	}
}

func teamStoreErr(err error, name string) error {
	if errors.Is(err, db.ErrDuplicateKey) {
		return invalid("team name %q is already taken", name)
	}
	return fromStore(err, "maintenance team")
}

func (s *Service) teamView(ctx context.Context, t *models.MaintenanceTeam) (*models.TeamView, error) {
	set := newRefSet()
	set.team(t)
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	v := models.NewTeamView(t, refs)
	return &v, nil
}

// CreateTeam creates an active team. Every listed member must be an existing user.
func (s *Service) CreateTeam(ctx context.Context, in TeamInput) (*models.TeamView, error) {
	t := &models.MaintenanceTeam{IsActive: true, Members: []models.TeamMember{}}
	applyTeam(in, t, bson.M{})
	if in.Members != nil {
		members, err := s.members(ctx, in.Members)
		if err != nil {
			return nil, err
		}
		t.Members = members
	}
	if err := t.Validate(); err != nil {
		return nil, invalidModel(err)
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.store.Teams.InsertTeam(ctx, t); err != nil {
		return nil, teamStoreErr(err, t.Name)
	}
	log.WithFields(log.Fields{"team_id": t.ID.Hex(), "name": t.Name}).Info("Maintenance team created")
	return s.teamView(ctx, t)
}

// GetTeam returns a team with the open requests assigned to it.
func (s *Service) GetTeam(ctx context.Context, id string) (*models.TeamDetail, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	t, err := s.requireTeam(ctx, oid)
	if err != nil {
		return nil, err
	}
	open, err := s.store.Requests.FindRequests(ctx, models.RequestFilter{
		Team:   &oid,
		Stages: models.OpenStages,
	}, db.FindOptions{Sort: db.SortNewest})
	if err != nil {
		return nil, fromStore(err, "maintenance request")
	}

	set := newRefSet()
	set.team(t)
	for i := range open {
		set.request(&open[i])
	}
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	return &models.TeamDetail{
		TeamView:     models.NewTeamView(t, refs),
		OpenRequests: models.NewRequestDetails(open, refs, s.now()),
	}, nil
}

// ListTeams returns one page of teams, newest first.
func (s *Service) ListTeams(ctx context.Context, f models.TeamFilter, page models.PageRequest) (*models.Page[models.TeamView], error) {
	if f.Specialization != "" && !f.Specialization.Valid() {
		return nil, invalid("unknown specialization %q", f.Specialization)
	}
	page = page.Normalize()
	teams, err := s.store.Teams.FindTeams(ctx, f, db.PageOptions(page))
	if err != nil {
		return nil, fromStore(err, "maintenance team")
	}
	total, err := s.store.Teams.CountTeams(ctx, f)
	if err != nil {
		return nil, fromStore(err, "maintenance team")
	}
	set := newRefSet()
	for i := range teams {
		set.team(&teams[i])
	}
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	views := make([]models.TeamView, 0, len(teams))
	for i := range teams {
		views = append(views, models.NewTeamView(&teams[i], refs))
	}
	p := models.NewPage(views, total, page)
	return &p, nil
}

// UpdateTeam applies a partial payload. A members list replaces the current one.
func (s *Service) UpdateTeam(ctx context.Context, id string, in TeamInput) (*models.TeamView, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	current, err := s.requireTeam(ctx, oid)
	if err != nil {
		return nil, err
	}
	next := *current
	set := bson.M{}
	applyTeam(in, &next, set)
	if in.Members != nil {
		members, err := s.members(ctx, in.Members)
		if err != nil {
			return nil, err
		}
		next.Members = members
		set["members"] = members
	}
	if err := next.Validate(); err != nil {
		return nil, invalidModel(err)
	}
	set["updated_at"] = s.now()
	updated, err := s.store.Teams.UpdateTeam(ctx, oid, set)
	if err != nil {
		return nil, teamStoreErr(err, next.Name)
	}
	return s.teamView(ctx, updated)
}

// DeleteTeam removes a team unless a New or In Progress request is assigned
// to it. The check and the delete are separate operations.
func (s *Service) DeleteTeam(ctx context.Context, id string) error {
	oid, err := ParseID("id", id)
	if err != nil {
		return err
	}
	open, err := s.store.Requests.ExistsRequest(ctx, models.RequestFilter{
		Team:   &oid,
		Stages: models.OpenStages,
	})
	if err != nil {
		return fromStore(err, "maintenance request")
	}
	if open {
		return conflict("cannot delete team with open maintenance requests")
	}
	if err := s.store.Teams.DeleteTeam(ctx, oid); err != nil {
		return fromStore(err, "maintenance team")
	}
	log.WithField("team_id", oid.Hex()).Info("Maintenance team deleted")
	return nil
}

// AddMember adds a user to a team. Role defaults to Technician; a user
// already on the team is a Conflict.
func (s *Service) AddMember(ctx context.Context, id string, in MemberInput) (*models.TeamView, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireTeam(ctx, oid); err != nil {
		return nil, err
	}
	now := s.now()
	m, err := s.member(ctx, in, now)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Teams.AddMember(ctx, oid, m, now)
	if err != nil {
		return nil, fromStore(err, "maintenance team")
	}
	return s.teamView(ctx, updated)
}

// RemoveMember takes a user off a team. Removing a non-member is a no-op.
func (s *Service) RemoveMember(ctx context.Context, id, userID string) (*models.TeamView, error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	user, err := ParseID("userId", userID)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Teams.RemoveMember(ctx, oid, user, s.now())
	if err != nil {
		return nil, fromStore(err, "maintenance team")
	}
	return s.teamView(ctx, updated)
}

// TeamRequests returns one page of the requests assigned to a team.
func (s *Service) TeamRequests(ctx context.Context, id string, stages []models.Stage, page models.PageRequest) (*models.Page[models.RequestDetail], error) {
	oid, err := ParseID("id", id)
	if err != nil {
		return nil, err
	}
	f := models.RequestFilter{Team: &oid, Stages: stages}
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	if _, err := s.requireTeam(ctx, oid); err != nil {
		return nil, err
	}
	return s.pageRequests(ctx, f, page)
}
