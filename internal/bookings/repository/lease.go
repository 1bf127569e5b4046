package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/pkg/config"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LeaseCollectionName = "leases"

// LeaseRepository hands out named, expiring locks so that only one replica
// runs a background job at a time.
type LeaseRepository interface {
	Acquire(ctx context.Context, name, holder string, ttl time.Duration) (*model.Lease, error)
	Release(ctx context.Context, name, holder string) error
}

type mongoLeaseRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewLeaseRepository(cfg *config.Config, db *mongo.Database) LeaseRepository {
	return &mongoLeaseRepository{
		cfg:        cfg,
		collection: db.Collection(LeaseCollectionName),
	}
}

// Acquire takes the lease when it is free, expired, or already ours. If
// another holder owns a live lease the upsert collides on _id and
// ErrLeaseHeld is returned.
func (r *mongoLeaseRepository) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (*model.Lease, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{
		"_id": name,
		"$or": []bson.M{
			{"holder": holder},
			{"expires_at": bson.M{"$lte": now}},
		},
	}
	update := bson.M{"$set": bson.M{
		"holder":      holder,
		"expires_at":  now.Add(ttl),
		"acquired_at": now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var lease model.Lease
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&lease)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return nil, bookingserrors.ErrLeaseHeld
		}
		return nil, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	return &lease, nil
}

func (r *mongoLeaseRepository) Release(ctx context.Context, name, holder string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": name, "holder": holder})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}
