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

// MongoRequestCollection implements RequestCollection for MongoDB.
type MongoRequestCollection struct {
	Collection *mongo.Collection
}

// InsertRequest stores r, assigning an id when it has none.
func (c *MongoRequestCollection) InsertRequest(ctx context.Context, r *models.MaintenanceRequest) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	// $push needs arrays, not nulls.
	if r.Notes == nil {
		r.Notes = []models.Note{}
	}
	if r.Attachments == nil {
		r.Attachments = []models.Attachment{}
	}
	return insertOne(ctx, c.Collection, r)
}

// FindRequestByID finds a request by id.
func (c *MongoRequestCollection) FindRequestByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	return findOne[models.MaintenanceRequest](ctx, c.Collection, byID(id))
}

// FindRequests lists requests matching f.
func (c *MongoRequestCollection) FindRequests(ctx context.Context, f models.RequestFilter, opts FindOptions) ([]models.MaintenanceRequest, error) {
	return findAll[models.MaintenanceRequest](ctx, c.Collection, requestFilterDoc(f), findOptions(opts))
}

// CountRequests counts requests matching f.
func (c *MongoRequestCollection) CountRequests(ctx context.Context, f models.RequestFilter) (int64, error) {
	return count(ctx, c.Collection, requestFilterDoc(f))
}

// ExistsRequest reports whether any request matches f.
func (c *MongoRequestCollection) ExistsRequest(ctx context.Context, f models.RequestFilter) (bool, error) {
	n, err := count(ctx, c.Collection, requestFilterDoc(f), options.Count().SetLimit(1))
	return n > 0, err
}

// UpdateRequest writes set and the once-only stamps in a single pipeline update.
func (c *MongoRequestCollection) UpdateRequest(ctx context.Context, id primitive.ObjectID, set bson.M, stampOnce map[string]time.Time) (*models.MaintenanceRequest, error) {
	return findOneAndUpdate[models.MaintenanceRequest](ctx, c.Collection, byID(id), setOnceUpdate(set, stampOnce))
}

// PushNote appends a note to the request.
func (c *MongoRequestCollection) PushNote(ctx context.Context, id primitive.ObjectID, n models.Note, at time.Time) (*models.MaintenanceRequest, error) {
	update := bson.M{
		"$push": bson.M{"notes": n},
		"$set":  bson.M{"updated_at": at},
	}
	return findOneAndUpdate[models.MaintenanceRequest](ctx, c.Collection, byID(id), update)
}

// PushAttachment appends an attachment to the request.
func (c *MongoRequestCollection) PushAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment, at time.Time) (*models.MaintenanceRequest, error) {
	update := bson.M{
		"$push": bson.M{"attachments": a},
		"$set":  bson.M{"updated_at": at},
	}
	return findOneAndUpdate[models.MaintenanceRequest](ctx, c.Collection, byID(id), update)
}

// DeleteRequest deletes a request and returns the removed document.
func (c *MongoRequestCollection) DeleteRequest(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	var removed models.MaintenanceRequest
	if err := c.Collection.FindOneAndDelete(ctx, byID(id)).Decode(&removed); err != nil {
		return nil, translate(err)
	}
	return &removed, nil
}
