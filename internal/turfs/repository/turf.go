package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	turfserrors "turfbook/internal/turfs/errors"
	"turfbook/pkg/config"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "turfs"

type TurfRepository interface {
	Create(ctx context.Context, turf *model.Turf) error
	FindByID(ctx context.Context, id string) (*model.Turf, error)
	FindAll(ctx context.Context, city string, limit int, offset int64) ([]*model.Turf, error)
	Count(ctx context.Context, city string) (int64, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*model.Turf, error)
	FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	FindSimilar(ctx context.Context, turf *model.Turf, limit int) ([]*model.Turf, error)
	Update(ctx context.Context, turf *model.Turf) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	ToggleSlotBlock(ctx context.Context, id string, block model.SlotBlock, at time.Time) (bool, error)
}

type mongoTurfRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTurfRepository(cfg *config.Config, db *mongo.Database) TurfRepository {
	return &mongoTurfRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

var notDeleted = bson.M{"deleted_at": bson.M{"$exists": false}}

func (r *mongoTurfRepository) Create(ctx context.Context, turf *model.Turf) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	turf.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	turf.UpdatedAt = turf.CreatedAt

	result, err := r.collection.InsertOne(ctx, turf)
	if err != nil {
		return fmt.Errorf("failed to create turf: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		turf.ID = oid.Hex()
	}
	return nil
}

// FindByID also returns soft-deleted turfs; callers decide what a deleted
// turf means for them.
func (r *mongoTurfRepository) FindByID(ctx context.Context, id string) (*model.Turf, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, id)
	}

	var turf model.Turf
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&turf); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, turfserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find turf: %w", err)
	}
	return &turf, nil
}

func (r *mongoTurfRepository) FindAll(ctx context.Context, city string, limit int, offset int64) ([]*model.Turf, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.findMany(ctx, cityFilter(city), opts)
}

func (r *mongoTurfRepository) Count(ctx context.Context, city string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, cityFilter(city))
	if err != nil {
		return 0, fmt.Errorf("failed to count turfs: %w", err)
	}
	return count, nil
}

func (r *mongoTurfRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Turf, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"owner_id": ownerID, "deleted_at": bson.M{"$exists": false}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	return r.findMany(ctx, filter, opts)
}

// FindIDsByOwner includes deleted turfs so historical bookings stay
// reachable from the owner ledger.
func (r *mongoTurfRepository) FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	turfs, err := r.findMany(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(turfs))
	for _, t := range turfs {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// FindSimilar returns live turfs sharing turf's city or category, newest
// first, never turf itself.
func (r *mongoTurfRepository) FindSimilar(ctx context.Context, turf *model.Turf, limit int) ([]*model.Turf, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter, err := similarFilter(turf)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	return r.findMany(ctx, filter, opts)
}

func similarFilter(turf *model.Turf) (bson.M, error) {
	objectID, err := primitive.ObjectIDFromHex(turf.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, turf.ID)
	}

	match := bson.A{bson.M{"city": turf.City}}
	if turf.Category != "" {
		match = append(match, bson.M{"category": turf.Category})
	}
	return bson.M{
		"_id":        bson.M{"$ne": objectID},
		"deleted_at": bson.M{"$exists": false},
		"$or":        match,
	}, nil
}

func (r *mongoTurfRepository) Update(ctx context.Context, turf *model.Turf) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(turf.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, turf.ID)
	}

	turf.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{"$set": bson.M{
		"name":           turf.Name,
		"description":    turf.Description,
		"city":           turf.City,
		"address":        turf.Address,
		"category":       turf.Category,
		"amenities":      turf.Amenities,
		"price_per_hour": turf.PricePerHour,
		"max_players":    turf.MaxPlayers,
		"time_zone":      turf.TimeZone,
		"slots":          turf.Slots,
		"updated_at":     turf.UpdatedAt,
	}}

	filter := bson.M{"_id": objectID, "deleted_at": bson.M{"$exists": false}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update turf: %w", err)
	}
	if result.MatchedCount == 0 {
		return turfserrors.ErrNotFound
	}
	return nil
}

func (r *mongoTurfRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "deleted_at": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"deleted_at": at, "updated_at": at}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to delete turf: %w", err)
	}
	if result.MatchedCount == 0 {
		return turfserrors.ErrNotFound
	}
	return nil
}

// ToggleSlotBlock removes the block when present, otherwise adds it.
// Returns whether the slot is blocked afterwards.
func (r *mongoTurfRepository) ToggleSlotBlock(ctx context.Context, id string, block model.SlotBlock, at time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, id)
	}
	filter := bson.M{"_id": objectID, "deleted_at": bson.M{"$exists": false}}

	pulled, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$pull": bson.M{"blocked_slots": bson.M{"date": block.Date, "slot_id": block.SlotID}},
		"$set":  bson.M{"updated_at": at},
	})
	if err != nil {
		return false, fmt.Errorf("failed to unblock slot: %w", err)
	}
	if pulled.MatchedCount == 0 {
		return false, turfserrors.ErrNotFound
	}
	if pulled.ModifiedCount > 0 {
		return false, nil
	}

	if _, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$addToSet": bson.M{"blocked_slots": block},
		"$set":      bson.M{"updated_at": at},
	}); err != nil {
		return false, fmt.Errorf("failed to block slot: %w", err)
	}
	return true, nil
}

func (r *mongoTurfRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Turf, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find turfs: %w", err)
	}
	defer cursor.Close(ctx)

	turfs := []*model.Turf{}
	if err := cursor.All(ctx, &turfs); err != nil {
		return nil, fmt.Errorf("failed to decode turfs: %w", err)
	}
	return turfs, nil
}

func cityFilter(city string) bson.M {
	if city == "" {
		return notDeleted
	}
	return bson.M{"city": city, "deleted_at": bson.M{"$exists": false}}
}
