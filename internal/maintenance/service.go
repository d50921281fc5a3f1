// Package maintenance implements the maintenance request lifecycle: request
// creation with equipment defaults, stage transitions with once-only date
// stamps, the kanban, calendar and dashboard projections, and the guarded
// deletion of the equipment and teams requests point at.
package maintenance

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/events"
	"github.com/ukydev/gearguard/internal/models"
	"github.com/ukydev/gearguard/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service coordinates the record store, attachment storage and event publishing.
type Service struct {
	store     *db.Store
	blobs     storage.Store
	publisher events.Publisher
	clock     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithBlobStore sets where attachment contents are kept.
func WithBlobStore(b storage.Store) Option {
	return func(s *Service) { s.blobs = b }
}

// NewService returns a Service over store.
func NewService(store *db.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Nop{},
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now is the service clock at the precision MongoDB stores.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

func (s *Service) publish(ctx context.Context, t events.Type, r *models.MaintenanceRequest, previous models.Stage) {
	e := events.NewRequestEvent(t, r, s.now())
	e.PreviousStage = previous
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":      t,
			"request_id": r.ID.Hex(),
		}).Warn("Failed to publish request event")
	}
}

// refSet collects the ids a batch of records points at.
type refSet struct {
	equipment map[primitive.ObjectID]struct{}
	teams     map[primitive.ObjectID]struct{}
	users     map[primitive.ObjectID]struct{}
}

func newRefSet() *refSet {
	return &refSet{
		equipment: make(map[primitive.ObjectID]struct{}),
		teams:     make(map[primitive.ObjectID]struct{}),
		users:     make(map[primitive.ObjectID]struct{}),
	}
}

func addID(m map[primitive.ObjectID]struct{}, id *primitive.ObjectID) {
	if id != nil && !id.IsZero() {
		m[*id] = struct{}{}
	}
}

func (r *refSet) request(req *models.MaintenanceRequest) {
	addID(r.equipment, &req.Equipment)
	addID(r.teams, &req.AssignedTeam)
	addID(r.users, req.AssignedTechnician)
	addID(r.users, &req.RequestedBy)
	for i := range req.Notes {
		addID(r.users, &req.Notes[i].AddedBy)
	}
}

func (r *refSet) equipmentRecord(e *models.Equipment) {
	addID(r.users, e.AssignedTo)
	addID(r.teams, e.MaintenanceTeam)
	addID(r.users, e.DefaultTechnician)
}

func (r *refSet) team(t *models.MaintenanceTeam) {
	for i := range t.Members {
		addID(r.users, &t.Members[i].User)
	}
}

func (r *refSet) event(e *models.CalendarEvent) {
	addID(r.equipment, e.Equipment)
	addID(r.teams, e.Team)
	addID(r.users, e.Technician)
}

func keys(m map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

// resolve loads every collected reference in one query per collection.
// Ids that no longer resolve are left out and render as id-only summaries.
func (s *Service) resolve(ctx context.Context, set *refSet) (models.Refs, error) {
	refs := models.NewRefs()
	if len(set.equipment) > 0 {
		equipment, err := s.store.Equipment.FindEquipmentByIDs(ctx, keys(set.equipment))
		if err != nil {
			return refs, fromStore(err, "equipment")
		}
		for i := range equipment {
			refs.Equipment[equipment[i].ID] = &equipment[i]
		}
	}
	if len(set.teams) > 0 {
		teams, err := s.store.Teams.FindTeamsByIDs(ctx, keys(set.teams))
		if err != nil {
			return refs, fromStore(err, "maintenance team")
		}
		for i := range teams {
			refs.Teams[teams[i].ID] = &teams[i]
		}
	}
	if len(set.users) > 0 {
		users, err := s.store.Users.FindUsersByIDs(ctx, keys(set.users))
		if err != nil {
			return refs, fromStore(err, "user")
		}
		for i := range users {
			refs.Users[users[i].ID] = &users[i]
		}
	}
	return refs, nil
}

func (s *Service) requestDetails(ctx context.Context, requests []models.MaintenanceRequest) ([]models.RequestDetail, error) {
	set := newRefSet()
	for i := range requests {
		set.request(&requests[i])
	}
	refs, err := s.resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	return models.NewRequestDetails(requests, refs, s.now()), nil
}

func (s *Service) requestDetail(ctx context.Context, r *models.MaintenanceRequest) (*models.RequestDetail, error) {
	details, err := s.requestDetails(ctx, []models.MaintenanceRequest{*r})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Reference checks. Each returns NotFound when the id does not resolve.

func (s *Service) requireEquipment(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error) {
	e, err := s.store.Equipment.FindEquipmentByID(ctx, id)
	return e, fromStore(err, "equipment")
}

func (s *Service) requireTeam(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceTeam, error) {
	t, err := s.store.Teams.FindTeamByID(ctx, id)
	return t, fromStore(err, "maintenance team")
}

func (s *Service) requireUser(ctx context.Context, id primitive.ObjectID, role string) error {
	_, err := s.store.Users.FindUserByID(ctx, id)
	return fromStore(err, role)
}
