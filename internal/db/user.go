package db

import (
	"context"
	"time"

	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsers(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, c.Collection, user)
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, c.Collection, byID(id))
}

// FindUsersByIDs finds the users among ids that exist
func (c *MongoUserCollection) FindUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return findAll[models.User](ctx, c.Collection, byIDs(ids))
}

// FindUserByEmail finds a user by their email
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, c.Collection, bson.M{"email": email})
}

// FindUsers lists users ordered by name, optionally restricted to one role
func (c *MongoUserCollection) FindUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.User](ctx, c.Collection, filter, opts)
}

// UpdateLastLogin updates the last login time for a user
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	if c.Collection == nil {
		return errNilCollection
	}
	result, err := c.Collection.UpdateOne(
		ctx,
		byID(id),
		bson.M{"$set": bson.M{"last_login": at, "updated_at": at}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
