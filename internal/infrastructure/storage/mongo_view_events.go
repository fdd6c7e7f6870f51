package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"NewsPortal/internal/domain"
	"NewsPortal/internal/ports"
)

// MongoViewEventRepository stores view events in a MongoDB collection whose
// TTL index on expires_at provides passive expiry.
type MongoViewEventRepository struct {
	coll *mongo.Collection
}

var _ ports.ViewEventRepository = (*MongoViewEventRepository)(nil)

type viewEventDocument struct {
	ID         string    `bson:"_id"`
	ArticleID  string    `bson:"article_id"`
	Identifier string    `bson:"identifier"`
	ViewedAt   time.Time `bson:"viewed_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

func NewMongoViewEventRepository(coll *mongo.Collection) *MongoViewEventRepository {
	return &MongoViewEventRepository{coll: coll}
}

// ConnectMongo opens a client and pings the deployment.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the TTL index and the dedup lookup index.
func (r *MongoViewEventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{
				{Key: "article_id", Value: 1},
				{Key: "identifier", Value: 1},
				{Key: "viewed_at", Value: -1},
			},
			Options: options.Index().SetName("article_identifier_viewed_at"),
		},
		{
			Keys:    bson.D{{Key: "viewed_at", Value: -1}},
			Options: options.Index().SetName("viewed_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("create view event indexes: %w", err)
	}
	return nil
}

func (r *MongoViewEventRepository) Insert(ctx context.Context, event domain.ViewEvent) error {
	_, err := r.coll.InsertOne(ctx, viewEventDocument{
		ID:         event.ID,
		ArticleID:  event.ArticleID,
		Identifier: event.Identifier,
		ViewedAt:   event.ViewedAt,
		ExpiresAt:  event.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("insert view event: %w", err)
	}
	return nil
}

func (r *MongoViewEventRepository) FindRecent(ctx context.Context, articleID, identifier string, since time.Time) (domain.ViewEvent, bool, error) {
	filter := bson.M{
		"article_id": articleID,
		"identifier": identifier,
		"viewed_at":  bson.M{"$gte": since},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "viewed_at", Value: -1}})

	var doc viewEventDocument
	err := r.coll.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ViewEvent{}, false, nil
	}
	if err != nil {
		return domain.ViewEvent{}, false, fmt.Errorf("find recent view: %w", err)
	}

	return domain.ViewEvent{
		ID:         doc.ID,
		ArticleID:  doc.ArticleID,
		Identifier: doc.Identifier,
		ViewedAt:   doc.ViewedAt,
		ExpiresAt:  doc.ExpiresAt,
	}, true, nil
}

func (r *MongoViewEventRepository) CountSince(ctx context.Context, since, now time.Time) (map[string]int64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"viewed_at":  bson.M{"$gte": since},
			"expires_at": bson.M{"$gt": now},
		}},
		{"$group": bson.M{
			"_id":   "$article_id",
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate view counts: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ArticleID string `bson:"_id"`
		Count     int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode view counts: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, res := range results {
		counts[res.ArticleID] = res.Count
	}
	return counts, nil
}

func (r *MongoViewEventRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired view events: %w", err)
	}
	return res.DeletedCount, nil
}
