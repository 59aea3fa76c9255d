package store

import (
	"context"
	"fmt"

	"github.com/BartekS5/archimport/pkg/logger"
	"github.com/BartekS5/archimport/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MappingsCollection holds stored mapping profiles.
const MappingsCollection = "import_mappings"

// MongoMappings serves mapping profiles from a Mongo collection.
type MongoMappings struct {
	Coll *mongo.Collection
}

func NewMongoMappings(client *mongo.Client, database string) *MongoMappings {
	return &MongoMappings{Coll: client.Database(database).Collection(MappingsCollection)}
}

func (m *MongoMappings) List(ctx context.Context) ([]models.MappingProfile, error) {
	cursor, err := m.Coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("error listing mappings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.MappingProfile
	for cursor.Next(ctx) {
		var p models.MappingProfile
		if err := cursor.Decode(&p); err != nil {
			logger.Errorf("Error decoding mapping document: %v", err)
			continue
		}
		out = append(out, p)
	}
	return out, cursor.Err()
}

func (m *MongoMappings) Find(ctx context.Context, ref string) (*models.MappingProfile, error) {
	profiles, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return models.FindProfile(profiles, ref)
}

// Save upserts profiles by id. Profiles without an id are numbered after the
// highest id stored or being saved.
func (m *MongoMappings) Save(ctx context.Context, profiles ...models.MappingProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	existing, err := m.List(ctx)
	if err != nil {
		return err
	}
	var maxID int64
	for _, list := range [][]models.MappingProfile{existing, profiles} {
		for _, p := range list {
			if p.ID > maxID {
				maxID = p.ID
			}
		}
	}

	var writes []mongo.WriteModel
	for _, p := range profiles {
		if p.ID == 0 {
			maxID++
			p.ID = maxID
		}
		model := mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": p.ID}).
			SetReplacement(p).
			SetUpsert(true)
		writes = append(writes, model)
	}

	res, err := m.Coll.BulkWrite(ctx, writes)
	if err != nil {
		return fmt.Errorf("error saving mappings: %w", err)
	}
	logger.Infof("Mongo BulkWrite: Match %d, Mod %d, Upsert %d", res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return nil
}
