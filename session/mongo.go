package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessionDocument struct {
	ID         string             `bson:"_id"`
	Messages   []protocol.Message `bson:"messages"`
	Count      int                `bson:"count"`
	Suspension *Suspension        `bson:"suspension,omitempty"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

// MongoStore implements Store with one MongoDB document per session.
// Commits are conditional updates on the stored message count, so concurrent
// writers across processes cannot interleave appends.
type MongoStore struct {
	collection *mongo.Collection
	client     *mongo.Client
}

// NewMongoStore creates a MongoStore over an existing collection. The caller
// keeps ownership of the client.
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

// DialMongo connects to uri and returns a MongoStore that disconnects the
// client on Close. collection defaults to "sessions" if empty.
func DialMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if collection == "" {
		collection = "sessions"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("session: connect mongodb: %w", err)
	}

	return &MongoStore{
		collection: client.Database(database).Collection(collection),
		client:     client,
	}, nil
}

func (s *MongoStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var doc sessionDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &Snapshot{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: find %q: %w", id, err)
	}

	return &Snapshot{
		ID:         doc.ID,
		Messages:   doc.Messages,
		Suspension: doc.Suspension,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func (s *MongoStore) Commit(ctx context.Context, id string, c Commit) error {
	if id == "" {
		return ErrEmptyID
	}

	filter := bson.M{"_id": id, "count": c.Base}
	if c.Suspension != nil && !c.ClearSuspension {
		filter["suspension"] = nil
	}

	set := bson.M{"updated_at": time.Now()}
	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": nonNil(c.Messages)}},
		"$inc":  bson.M{"count": len(c.Messages)},
	}
	switch {
	case c.Suspension != nil:
		set["suspension"] = c.Suspension
	case c.ClearSuspension:
		update["$unset"] = bson.M{"suspension": ""}
	}
	update["$set"] = set

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("session: commit %q: %w", id, err)
	}

	// The conditional filter missed an existing document; report why.
	current, loadErr := s.Load(ctx, id)
	if loadErr != nil {
		return fmt.Errorf("session: commit %q: %w", id, loadErr)
	}
	if _, applyErr := apply(current, c, time.Now()); applyErr != nil {
		return applyErr
	}
	return conflict(id, c.Base, current.Len())
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("session: delete %q: %w", id, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, "_id", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func nonNil(messages []protocol.Message) []protocol.Message {
	if messages == nil {
		return []protocol.Message{}
	}
	return messages
}

var _ Store = (*MongoStore)(nil)
