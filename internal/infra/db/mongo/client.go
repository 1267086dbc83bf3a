package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. The night lock index is
// what makes concurrent overlapping bookings fail.
func (c *Client) EnsureIndexes(ctx context.Context, idempotencyTTL time.Duration) error {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 7 * 24 * time.Hour
	}
	plan := map[string][]mongo.IndexModel{
		"agg_property": {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "address.city_key", Value: 1}}, Options: options.Index().SetName("state_city_idx")},
			{Keys: bson.D{{Key: "host_id", Value: 1}}, Options: options.Index().SetName("host_idx")},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "pricing.base_numeric", Value: 1}}, Options: options.Index().SetName("state_price_idx")},
		},
		"agg_booking": {
			{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("guest_idx")},
			{Keys: bson.D{{Key: "host_id", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("host_idx")},
		},
		"booking_night_locks": {
			{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "night", Value: 1}}, Options: options.Index().SetUnique(true).SetName("property_night_unique")},
			{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetName("booking_idx")},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		},
		"app_idempotency": {
			{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(idempotencyTTL.Seconds())).SetName("ttl_idx")},
		},
	}
	for name, models := range plan {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: indexes for %s: %w", name, err)
		}
	}
	return nil
}
