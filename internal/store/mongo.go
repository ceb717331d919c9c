package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Otar989/bugman-bot/internal/models"
)

// MongoStore persists Player rows in a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("players")}
}

var _ PlayerStore = (*MongoStore)(nil)

// Upsert guards the write with a best_score filter so the check and the
// write are one atomic document operation. When the stored best is already
// greater or equal the guarded upsert trips the _id unique index instead;
// that path refreshes the names only.
func (s *MongoStore) Upsert(ctx context.Context, sub Submission) (models.Player, bool, error) {
	after := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var p models.Player
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": sub.ID, "best_score": bson.M{"$lt": sub.Score}},
		bson.M{"$set": bson.M{
			"username":     sub.Username,
			"display_name": sub.DisplayName,
			"best_score":   sub.Score,
			"updated_at":   sub.At,
		}},
		after,
	).Decode(&p)
	if err == nil {
		return p, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return models.Player{}, false, fmt.Errorf("upsert player: %w", err)
	}

	// The _id index tripped: a row exists. Retry the guarded update without
	// the upsert, in case the losing side of an insert race carries the
	// higher score.
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": sub.ID, "best_score": bson.M{"$lt": sub.Score}},
		bson.M{"$set": bson.M{
			"username":     sub.Username,
			"display_name": sub.DisplayName,
			"best_score":   sub.Score,
			"updated_at":   sub.At,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Player{}, false, fmt.Errorf("upsert player: %w", err)
	}

	// Existing row with best_score >= claim: names still refresh.
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": sub.ID},
		bson.M{"$set": bson.M{
			"username":     sub.Username,
			"display_name": sub.DisplayName,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return models.Player{}, false, fmt.Errorf("refresh player: %w", err)
	}
	return p, false, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (models.Player, error) {
	var p models.Player
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Player{}, ErrNotFound
		}
		return models.Player{}, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *MongoStore) List(ctx context.Context, limit, offset int) ([]models.Player, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "best_score", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer cur.Close(ctx)

	players := []models.Player{}
	if err := cur.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	return players, nil
}
