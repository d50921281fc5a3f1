package db

import (
	"sort"
	"time"

	"github.com/ukydev/gearguard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func byID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id}
}

func byIDs(ids []primitive.ObjectID) bson.M {
	return bson.M{"_id": bson.M{"$in": ids}}
}

// requestFilterDoc translates f into a MongoDB query document.
func requestFilterDoc(f models.RequestFilter) bson.M {
	doc := bson.M{}
	switch len(f.Stages) {
	case 0:
	case 1:
		doc["stage"] = f.Stages[0]
	default:
		doc["stage"] = bson.M{"$in": f.Stages}
	}
	if f.Type != "" {
		doc["type"] = f.Type
	}
	if f.Priority != "" {
		doc["priority"] = f.Priority
	}
	if f.Team != nil {
		doc["assigned_team"] = *f.Team
	}
	if f.Technician != nil {
		doc["assigned_technician"] = *f.Technician
	}
	if f.Equipment != nil {
		doc["equipment"] = *f.Equipment
	}
	if created := rangeDoc(f.CreatedFrom, f.CreatedTo); len(created) > 0 {
		doc["created_at"] = created
	}

	scheduled := rangeDoc(f.ScheduledFrom, f.ScheduledTo)
	if f.ScheduledBefore != nil {
		scheduled["$lt"] = *f.ScheduledBefore
	}
	if f.ScheduledOnly {
		scheduled["$exists"] = true
		scheduled["$ne"] = nil
	}
	if len(scheduled) > 0 {
		doc["scheduled_date"] = scheduled
	}
	return doc
}

func rangeDoc(from, to *time.Time) bson.M {
	doc := bson.M{}
	if from != nil {
		doc["$gte"] = *from
	}
	if to != nil {
		doc["$lte"] = *to
	}
	return doc
}

func equipmentFilterDoc(f models.EquipmentFilter) bson.M {
	doc := bson.M{}
	if f.Department != "" {
		doc["department"] = f.Department
	}
	if f.Category != "" {
		doc["category"] = f.Category
	}
	if f.AssignedTo != nil {
		doc["assigned_to"] = *f.AssignedTo
	}
	return doc
}

func teamFilterDoc(f models.TeamFilter) bson.M {
	doc := bson.M{}
	if f.Specialization != "" {
		doc["specialization"] = f.Specialization
	}
	if f.IsActive != nil {
		doc["is_active"] = *f.IsActive
	}
	return doc
}

// findOptions converts opts into driver options.
func findOptions(opts FindOptions) *options.FindOptions {
	o := options.Find()
	switch opts.Sort {
	case SortScheduledAsc:
		o.SetSort(bson.D{{Key: "scheduled_date", Value: 1}, {Key: "_id", Value: 1}})
	default:
		o.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	}
	if opts.Limit > 0 {
		o.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		o.SetSkip(opts.Skip)
	}
	return o
}

// setOnceUpdate builds a single-stage update pipeline: every key of set is
// written as a literal and every stamp field keeps its current value when
// present, so the once-only rule holds within one atomic write.
func setOnceUpdate(set bson.M, stampOnce map[string]time.Time) mongo.Pipeline {
	fields := bson.D{}
	for _, key := range sortedKeys(set) {
		fields = append(fields, bson.E{Key: key, Value: bson.M{"$literal": set[key]}})
	}
	stampKeys := make([]string, 0, len(stampOnce))
	for key := range stampOnce {
		if _, overridden := set[key]; !overridden {
			stampKeys = append(stampKeys, key)
		}
	}
	sort.Strings(stampKeys)
	for _, key := range stampKeys {
		fields = append(fields, bson.E{Key: key, Value: bson.M{"$ifNull": bson.A{"$" + key, stampOnce[key]}}})
	}
	return mongo.Pipeline{{{Key: "$set", Value: fields}}}
}

func sortedKeys(m bson.M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
