package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	countersCollection = "counters"
	keymapCollection   = "keymap"

	defaultCloseTimeout = 5 * time.Second
)

// MongoStore keeps each canonical table in its own collection, with sector
// metadata embedded in the entity document.
type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{DB: client.Database(database)}
}

type entityDoc struct {
	ID         int64             `bson:"_id"`
	Identifier string            `bson:"identifier"`
	Title      string            `bson:"title"`
	Culture    string            `bson:"culture"`
	ParentID   int64             `bson:"parent_id"`
	Repository string            `bson:"repository"`
	Fields     map[string]string `bson:"fields,omitempty"`
	Shape      string            `bson:"shape,omitempty"`
	Extra      map[string]string `bson:"extra,omitempty"`
}

type keymapDoc struct {
	SourceName string `bson:"source_name"`
	SourceID   string `bson:"source_id"`
	TargetID   int64  `bson:"target_id"`
	TargetName string `bson:"target_name"`
}

func toDoc(e *Entity) entityDoc {
	return entityDoc{
		ID:         e.ID,
		Identifier: e.Identifier,
		Title:      e.Title,
		Culture:    e.Culture,
		ParentID:   e.ParentID,
		Repository: e.Repository,
		Fields:     e.Fields,
		Shape:      e.Shape,
		Extra:      e.Extra,
	}
}

func (m *MongoStore) nextID(ctx context.Context, table string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.DB.Collection(countersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": table}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", table, err)
	}
	return counter.Seq, nil
}

func (m *MongoStore) Create(ctx context.Context, e *Entity) (int64, error) {
	if err := checkIdent(e.Table); err != nil {
		return 0, err
	}
	id, err := m.nextID(ctx, e.Table)
	if err != nil {
		return 0, err
	}
	doc := toDoc(e)
	doc.ID = id
	if _, err := m.DB.Collection(e.Table).InsertOne(ctx, doc); err != nil {
		return 0, fmt.Errorf("error inserting into %s: %w", e.Table, err)
	}
	return id, nil
}

func (m *MongoStore) Update(ctx context.Context, e *Entity) error {
	res, err := m.DB.Collection(e.Table).ReplaceOne(ctx, bson.M{"_id": e.ID}, toDoc(e))
	if err != nil {
		return fmt.Errorf("error updating %s %d: %w", e.Table, e.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %d: %w", e.Table, e.ID, ErrNotFound)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, table string, id int64) (*Entity, error) {
	var doc entityDoc
	err := m.DB.Collection(table).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s %d: %w", table, id, err)
	}
	return &Entity{
		ID:         doc.ID,
		Table:      table,
		Identifier: doc.Identifier,
		Title:      doc.Title,
		Culture:    doc.Culture,
		ParentID:   doc.ParentID,
		Repository: doc.Repository,
		Fields:     doc.Fields,
		Shape:      doc.Shape,
		Extra:      doc.Extra,
	}, nil
}

func (m *MongoStore) FindByIdentifier(ctx context.Context, table, identifier string) (int64, bool, error) {
	var doc struct {
		ID int64 `bson:"_id"`
	}
	opts := options.FindOne().SetSort(bson.M{"_id": 1}).SetProjection(bson.M{"_id": 1})
	err := m.DB.Collection(table).FindOne(ctx, bson.M{"identifier": identifier}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error checking %s identifier: %w", table, err)
	}
	return doc.ID, true, nil
}

func (m *MongoStore) LookupKeymap(ctx context.Context, sourceID, targetName string) (int64, bool, error) {
	var doc keymapDoc
	// ObjectIDs grow with insertion time, so the newest mapping wins
	opts := options.FindOne().SetSort(bson.M{"_id": -1})
	filter := bson.M{"source_id": sourceID, "target_name": targetName}
	err := m.DB.Collection(keymapCollection).FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error reading keymap: %w", err)
	}
	return doc.TargetID, true, nil
}

func (m *MongoStore) InsertKeymap(ctx context.Context, k Keymap) error {
	doc := keymapDoc{SourceName: k.SourceName, SourceID: k.SourceID, TargetID: k.TargetID, TargetName: k.TargetName}
	if _, err := m.DB.Collection(keymapCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("error inserting keymap: %w", err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()
	return m.DB.Client().Disconnect(ctx)
}
