package db

import (
	"context"

	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoEquipmentCollection implements EquipmentCollection for MongoDB.
type MongoEquipmentCollection struct {
	Collection *mongo.Collection
}

// InsertEquipment stores e, assigning an id when it has none.
func (c *MongoEquipmentCollection) InsertEquipment(ctx context.Context, e *models.Equipment) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	return insertOne(ctx, c.Collection, e)
}

// FindEquipmentByID finds equipment by id.
func (c *MongoEquipmentCollection) FindEquipmentByID(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error) {
	return findOne[models.Equipment](ctx, c.Collection, byID(id))
}

// FindEquipmentByIDs returns the equipment among ids that exist, in no particular order.
func (c *MongoEquipmentCollection) FindEquipmentByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Equipment, error) {
	if len(ids) == 0 {
		return []models.Equipment{}, nil
	}
	return findAll[models.Equipment](ctx, c.Collection, byIDs(ids))
}

// FindEquipment lists equipment matching f.
func (c *MongoEquipmentCollection) FindEquipment(ctx context.Context, f models.EquipmentFilter, opts FindOptions) ([]models.Equipment, error) {
	return findAll[models.Equipment](ctx, c.Collection, equipmentFilterDoc(f), findOptions(opts))
}

// CountEquipment counts equipment matching f.
func (c *MongoEquipmentCollection) CountEquipment(ctx context.Context, f models.EquipmentFilter) (int64, error) {
	return count(ctx, c.Collection, equipmentFilterDoc(f))
}

// UpdateEquipment sets the given fields and returns the updated record.
func (c *MongoEquipmentCollection) UpdateEquipment(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Equipment, error) {
	return findOneAndUpdate[models.Equipment](ctx, c.Collection, byID(id), bson.M{"$set": set})
}

// DeleteEquipment deletes equipment by id.
func (c *MongoEquipmentCollection) DeleteEquipment(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, byID(id))
}
