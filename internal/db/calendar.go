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

// MongoCalendarEventCollection implements CalendarEventCollection for MongoDB.
type MongoCalendarEventCollection struct {
	Collection *mongo.Collection
}

// InsertEvent stores e, assigning an id when it has none.
func (c *MongoCalendarEventCollection) InsertEvent(ctx context.Context, e *models.CalendarEvent) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, c.Collection, e)
}

// FindEventByID finds an event by id.
func (c *MongoCalendarEventCollection) FindEventByID(ctx context.Context, id primitive.ObjectID) (*models.CalendarEvent, error) {
	return findOne[models.CalendarEvent](ctx, c.Collection, byID(id))
}

// FindEvents lists events starting within [from, to], earliest first.
// Nil bounds are open.
func (c *MongoCalendarEventCollection) FindEvents(ctx context.Context, from, to *time.Time) ([]models.CalendarEvent, error) {
	filter := bson.M{}
	if window := rangeDoc(from, to); len(window) > 0 {
		filter["start"] = window
	}
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.CalendarEvent](ctx, c.Collection, filter, opts)
}

// UpdateEvent sets the given fields and returns the updated event.
func (c *MongoCalendarEventCollection) UpdateEvent(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.CalendarEvent, error) {
	return findOneAndUpdate[models.CalendarEvent](ctx, c.Collection, byID(id), bson.M{"$set": set})
}

// DeleteEvent deletes an event by id.
func (c *MongoCalendarEventCollection) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, byID(id))
}
