package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTeamCollection implements TeamCollection for MongoDB.
type MongoTeamCollection struct {
	Collection *mongo.Collection
}

// InsertTeam stores t, assigning an id when it has none.
func (c *MongoTeamCollection) InsertTeam(ctx context.Context, t *models.MaintenanceTeam) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Members == nil {
		t.Members = []models.TeamMember{}
	}
	return insertOne(ctx, c.Collection, t)
}

// FindTeamByID finds a team by id.
func (c *MongoTeamCollection) FindTeamByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceTeam, error) {
	return findOne[models.MaintenanceTeam](ctx, c.Collection, byID(id))
}

// FindTeamsByIDs returns the teams among ids that exist.
func (c *MongoTeamCollection) FindTeamsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.MaintenanceTeam, error) {
	if len(ids) == 0 {
		return []models.MaintenanceTeam{}, nil
	}
	return findAll[models.MaintenanceTeam](ctx, c.Collection, byIDs(ids))
}

// FindTeams lists teams matching f.
func (c *MongoTeamCollection) FindTeams(ctx context.Context, f models.TeamFilter, opts FindOptions) ([]models.MaintenanceTeam, error) {
	return findAll[models.MaintenanceTeam](ctx, c.Collection, teamFilterDoc(f), findOptions(opts))
}

// CountTeams counts teams matching f.
func (c *MongoTeamCollection) CountTeams(ctx context.Context, f models.TeamFilter) (int64, error) {
	return count(ctx, c.Collection, teamFilterDoc(f))
}

// UpdateTeam sets the given fields and returns the updated team.
func (c *MongoTeamCollection) UpdateTeam(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.MaintenanceTeam, error) {
	return findOneAndUpdate[models.MaintenanceTeam](ctx, c.Collection, byID(id), bson.M{"$set": set})
}

// DeleteTeam deletes a team by id.
func (c *MongoTeamCollection) DeleteTeam(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, byID(id))
}

// AddMember pushes m only when the user is not listed yet, so concurrent adds
// of the same user cannot both succeed.
func (c *MongoTeamCollection) AddMember(ctx context.Context, id primitive.ObjectID, m models.TeamMember, at time.Time) (*models.MaintenanceTeam, error) {
	filter := bson.M{"_id": id, "members.user": bson.M{"$ne": m.User}}
	update := bson.M{
		"$push": bson.M{"members": m},
		"$set":  bson.M{"updated_at": at},
	}
	team, err := findOneAndUpdate[models.MaintenanceTeam](ctx, c.Collection, filter, update)
	if !errors.Is(err, ErrNotFound) {
		return team, err
	}
	if _, err := c.FindTeamByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyMember
}

// RemoveMember pulls the user from the member list. Removing a user that is
// not a member leaves the team unchanged.
func (c *MongoTeamCollection) RemoveMember(ctx context.Context, id, user primitive.ObjectID, at time.Time) (*models.MaintenanceTeam, error) {
	update := bson.M{
		"$pull": bson.M{"members": bson.M{"user": user}},
		"$set":  bson.M{"updated_at": at},
	}
	return findOneAndUpdate[models.MaintenanceTeam](ctx, c.Collection, byID(id), update)
}
