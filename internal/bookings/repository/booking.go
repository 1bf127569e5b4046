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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "bookings"
)

// StatusChange describes a compare-and-set transition out of a known status.
type StatusChange struct {
	To            model.BookingStatus
	PaymentStatus model.BookingPaymentState
	PaymentID     string
	CancelReason  string
	At            time.Time
	// RequireLiveHold makes the update fail when hold_expires_at <= At.
	RequireLiveHold bool
	// RequireExpiredHold makes the update fail when hold_expires_at > At.
	RequireExpiredHold bool
}

// LedgerFilter selects bookings for ledger queries. Exactly one of the
// fields is expected to be set.
type LedgerFilter struct {
	UserID  string
	TurfIDs []string
}

type BookingRepository interface {
	Insert(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindActiveByTurf(ctx context.Context, turfID string, fromDate, toDate string) ([]*model.Booking, error)
	ReleaseExpiredHold(ctx context.Context, turfID, slotID, date string, now time.Time) (*model.Booking, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	Transition(ctx context.Context, id string, from model.BookingStatus, change StatusChange) (*model.Booking, error)
	Find(ctx context.Context, filter LedgerFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter LedgerFilter) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config, db *mongo.Database, txManager mongotx.TransactionManager) BookingRepository {
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  txManager,
	}
}

// Insert relies on the unique partial index over active bookings; a
// duplicate key means the slot is already held.
func (r *mongoBookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	booking.UpdatedAt = booking.CreatedAt

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return bookingserrors.ErrSlotTaken
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

// FindActiveByTurf returns bookings still flagged as holding a slot in the
// date range. Expired pending holds are included; callers filter with
// Booking.HoldsSlot.
func (r *mongoBookingRepository) FindActiveByTurf(ctx context.Context, turfID string, fromDate, toDate string) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"turf_id":     turfID,
		"active_slot": true,
		"date":        bson.M{"$gte": fromDate, "$lte": toDate},
	}
	opts := options.Find().
		SetProjection(bson.M{"slot_id": 1, "date": 1, "status": 1, "hold_expires_at": 1, "active_slot": 1})

	return r.findMany(ctx, filter, opts)
}

// ReleaseExpiredHold cancels the active booking of the triple if it is a
// pending hold past its expiry. The unique index guarantees at most one
// candidate. Returns ErrNotFound when there is nothing to release.
func (r *mongoBookingRepository) ReleaseExpiredHold(ctx context.Context, turfID, slotID, date string, now time.Time) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"turf_id":         turfID,
		"slot_id":         slotID,
		"date":            date,
		"active_slot":     true,
		"status":          model.BookingPending,
		"hold_expires_at": bson.M{"$lte": now},
	}

	return r.findOneAndUpdate(ctx, filter, expireUpdate(now))
}

func (r *mongoBookingRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":          model.BookingPending,
		"active_slot":     true,
		"hold_expires_at": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "hold_expires_at", Value: 1}}).
		SetLimit(int64(limit))

	return r.findMany(ctx, filter, opts)
}

func (r *mongoBookingRepository) Transition(ctx context.Context, id string, from model.BookingStatus, change StatusChange) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": from}
	switch {
	case change.RequireLiveHold:
		filter["hold_expires_at"] = bson.M{"$gt": change.At}
	case change.RequireExpiredHold:
		filter["hold_expires_at"] = bson.M{"$lte": change.At}
	}

	set := bson.M{
		"status":      change.To,
		"active_slot": change.To != model.BookingCancelled,
		"updated_at":  change.At,
	}
	if change.PaymentStatus != "" {
		set["payment_status"] = change.PaymentStatus
	}
	if change.PaymentID != "" {
		set["payment_id"] = change.PaymentID
	}
	if change.CancelReason != "" {
		set["cancel_reason"] = change.CancelReason
	}

	booking, err := r.findOneAndUpdate(ctx, filter, bson.M{"$set": set})
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return nil, bookingserrors.ErrStatusChanged
	}
	return booking, err
}

func (r *mongoBookingRepository) Find(ctx context.Context, filter LedgerFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	return r.findMany(ctx, ledgerQuery(filter), opts)
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter LedgerFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, ledgerQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoBookingRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.Booking, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return &booking, nil
}

func expireUpdate(now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"status":        model.BookingCancelled,
		"active_slot":   false,
		"cancel_reason": model.CancelReasonHoldExpired,
		"updated_at":    now,
	}}
}

// ExpireHoldChange is the transition applied to a pending hold past its expiry.
func ExpireHoldChange(now time.Time) StatusChange {
	return StatusChange{
		To:                 model.BookingCancelled,
		CancelReason:       model.CancelReasonHoldExpired,
		At:                 now,
		RequireExpiredHold: true,
	}
}

func ledgerQuery(filter LedgerFilter) bson.M {
	switch {
	case filter.UserID != "":
		return bson.M{"user_id": filter.UserID}
	case len(filter.TurfIDs) == 1:
		return bson.M{"turf_id": filter.TurfIDs[0]}
	case len(filter.TurfIDs) == 0:
		return bson.M{"turf_id": bson.M{"$in": bson.A{}}}
	default:
		return bson.M{"turf_id": bson.M{"$in": filter.TurfIDs}}
	}
}
