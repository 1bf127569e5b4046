package service

import (
	"context"
	"sort"
	"sync"
	"time"
	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/events"
	"turfbook/internal/bookings/repository"
	paymentserrors "turfbook/internal/payments/errors"
	turfserrors "turfbook/internal/turfs/errors"
	userserrors "turfbook/internal/users/errors"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type slotKey struct {
	turfID, slotID, date string
}

// memoryBookingRepository keeps the single-active-booking rule the unique
// partial index enforces in Mongo. Transactions restore a snapshot when fn
// fails.
type memoryBookingRepository struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	bookings map[string]*model.Booking
	order    []string

	insertErr error
	findErr   error
}

func newMemoryBookingRepository() *memoryBookingRepository {
	return &memoryBookingRepository{bookings: map[string]*model.Booking{}}
}

func (r *memoryBookingRepository) Insert(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertErr != nil {
		return r.insertErr
	}
	if booking.ActiveSlot {
		key := slotKey{booking.TurfID, booking.SlotID, booking.Date}
		for _, b := range r.bookings {
			if b.ActiveSlot && (slotKey{b.TurfID, b.SlotID, b.Date}) == key {
				return bookingserrors.ErrSlotTaken
			}
		}
	}

	booking.ID = primitive.NewObjectID().Hex()
	booking.UpdatedAt = booking.CreatedAt
	r.bookings[booking.ID] = clone(booking)
	r.order = append(r.order, booking.ID)
	return nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, bookingserrors.ErrInvalidID
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return clone(b), nil
}

func (r *memoryBookingRepository) FindActiveByTurf(ctx context.Context, turfID string, fromDate, toDate string) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*model.Booking{}
	for _, id := range r.order {
		b := r.bookings[id]
		if b.TurfID == turfID && b.ActiveSlot && b.Date >= fromDate && b.Date <= toDate {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

func (r *memoryBookingRepository) ReleaseExpiredHold(ctx context.Context, turfID, slotID, date string, now time.Time) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		if b.TurfID == turfID && b.SlotID == slotID && b.Date == date && b.ActiveSlot && b.HoldExpired(now) {
			b.Status = model.BookingCancelled
			b.ActiveSlot = false
			b.CancelReason = model.CancelReasonHoldExpired
			b.UpdatedAt = now
			return clone(b), nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *memoryBookingRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*model.Booking{}
	for _, id := range r.order {
		b := r.bookings[id]
		if b.ActiveSlot && b.HoldExpiresAt != nil && b.HoldExpired(now) {
			out = append(out, clone(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HoldExpiresAt.Before(*out[j].HoldExpiresAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryBookingRepository) Transition(ctx context.Context, id string, from model.BookingStatus, change repository.StatusChange) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, bookingserrors.ErrStatusChanged
	}
	if change.RequireLiveHold && (b.HoldExpiresAt == nil || !b.HoldExpiresAt.After(change.At)) {
		return nil, bookingserrors.ErrStatusChanged
	}
	if change.RequireExpiredHold && (b.HoldExpiresAt == nil || b.HoldExpiresAt.After(change.At)) {
		return nil, bookingserrors.ErrStatusChanged
	}

	b.Status = change.To
	b.ActiveSlot = change.To != model.BookingCancelled
	b.UpdatedAt = change.At
	if change.PaymentStatus != "" {
		b.PaymentStatus = change.PaymentStatus
	}
	if change.PaymentID != "" {
		b.PaymentID = change.PaymentID
	}
	if change.CancelReason != "" {
		b.CancelReason = change.CancelReason
	}
	return clone(b), nil
}

func (r *memoryBookingRepository) Find(ctx context.Context, filter repository.LedgerFilter, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findErr != nil {
		return nil, r.findErr
	}
	matched := r.match(filter)
	if offset >= int64(len(matched)) {
		return []*model.Booking{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryBookingRepository) Count(ctx context.Context, filter repository.LedgerFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.match(filter))), nil
}

// match returns newest first.
func (r *memoryBookingRepository) match(filter repository.LedgerFilter) []*model.Booking {
	turfs := map[string]bool{}
	for _, id := range filter.TurfIDs {
		turfs[id] = true
	}
	out := []*model.Booking{}
	for i := len(r.order) - 1; i >= 0; i-- {
		b := r.bookings[r.order[i]]
		if (filter.UserID != "" && b.UserID == filter.UserID) || (filter.UserID == "" && turfs[b.TurfID]) {
			out = append(out, clone(b))
		}
	}
	return out
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	snapshot := r.snapshot()
	if err := fn(mongotx.NewSessionContext(ctx)); err != nil {
		r.mu.Lock()
		r.bookings = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryBookingRepository) snapshot() map[string]*model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*model.Booking, len(r.bookings))
	for id, b := range r.bookings {
		out[id] = clone(b)
	}
	return out
}

func (r *memoryBookingRepository) get(id string) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.bookings[id])
}

func (r *memoryBookingRepository) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func clone(b *model.Booking) *model.Booking {
	if b == nil {
		return nil
	}
	c := *b
	if b.HoldExpiresAt != nil {
		at := *b.HoldExpiresAt
		c.HoldExpiresAt = &at
	}
	return &c
}

type memoryPaymentStore struct {
	mu       sync.Mutex
	payments []*model.Payment
}

func (s *memoryPaymentStore) Create(ctx context.Context, payment *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.BookingID == payment.BookingID || p.TransactionID == payment.TransactionID {
			return paymentserrors.ErrDuplicate
		}
	}
	payment.ID = primitive.NewObjectID().Hex()
	c := *payment
	s.payments = append(s.payments, &c)
	return nil
}

func (s *memoryPaymentStore) FindByBookingID(ctx context.Context, bookingID string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			c := *p
			return &c, nil
		}
	}
	return nil, paymentserrors.ErrNotFound
}

func (s *memoryPaymentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

type mockTurfReader struct {
	turfs map[string]*model.Turf
}

func (m *mockTurfReader) FindByID(ctx context.Context, id string) (*model.Turf, error) {
	turf, ok := m.turfs[id]
	if !ok {
		return nil, turfserrors.ErrNotFound
	}
	c := *turf
	return &c, nil
}

func (m *mockTurfReader) FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ids := []string{}
	for id, turf := range m.turfs {
		if turf.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type mockUserReader struct {
	users map[string]bool
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !m.users[id] {
		return nil, userserrors.ErrNotFound
	}
	return &model.User{ID: id}, nil
}

type recordedEvent struct {
	Type      events.Type
	BookingID string
	Status    model.BookingStatus
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType events.Type, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, BookingID: booking.ID, Status: booking.Status})
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
