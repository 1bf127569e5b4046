package service

import (
	"context"
	"errors"
	"math"
	"time"
	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/events"
	"turfbook/internal/bookings/repository"
	"turfbook/internal/bookings/validator"
	paymentserrors "turfbook/internal/payments/errors"
	slotsservice "turfbook/internal/slots/service"
	turfserrors "turfbook/internal/turfs/errors"
	userserrors "turfbook/internal/users/errors"
	"turfbook/pkg/auth"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/metrics"
	"turfbook/pkg/model"
	"turfbook/pkg/validation"

	"go.mongodb.org/mongo-driver/mongo"
)

// AdmissionService decides whether a booking may take a slot and drives the
// booking through its lifecycle.
type AdmissionService interface {
	Reserve(ctx context.Context, actor auth.Principal, req *model.ReserveRequest) (*model.Booking, error)
	Confirm(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error)
	Cancel(ctx context.Context, actor auth.Principal, bookingID, reason string) (*model.Booking, error)
	ExpireHolds(ctx context.Context) (int, error)
	GetByID(ctx context.Context, actor auth.Principal, bookingID string) (*model.Booking, error)
}

type admissionService struct {
	repo      repository.BookingRepository
	turfs     TurfReader
	users     UserReader
	payments  PaymentStore
	slots     SlotSuggester
	publisher EventPublisher
	validator *validator.BookingValidator
	cfg       *config.Config
	clock     clock.Clock
}

func NewAdmissionService(
	repo repository.BookingRepository,
	turfs TurfReader,
	users UserReader,
	payments PaymentStore,
	slots SlotSuggester,
	publisher EventPublisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
	clk clock.Clock,
) AdmissionService {
	if clk == nil {
		clk = clock.System{}
	}
	return &admissionService{
		repo:      repo,
		turfs:     turfs,
		users:     users,
		payments:  payments,
		slots:     slots,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		clock:     clk,
	}
}

func (s *admissionService) Reserve(ctx context.Context, actor auth.Principal, req *model.ReserveRequest) (*model.Booking, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if !actor.Can(auth.CapReserve) {
		return nil, apperrors.Forbidden("Not allowed to reserve slots")
	}
	if req.UserID == "" {
		req.UserID = actor.UserID
	}
	if !actor.CanActFor(req.UserID) {
		return nil, apperrors.Forbidden("Cannot reserve on behalf of another user")
	}

	if err := s.validator.ValidateReserve(req); err != nil {
		metrics.Admissions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.cfg.Log.Warn("Reservation validation failed",
			"user_id", req.UserID,
			"turf_id", req.TurfID,
			"error", err,
		)
		return nil, validation.ToAppError("Reservation validation failed", err)
	}

	booking, err := s.admit(ctx, req)
	if err != nil {
		metrics.Admissions.WithLabelValues(admissionOutcome(err)).Inc()
		return nil, err
	}

	if booking.Status == model.BookingConfirmed {
		metrics.Admissions.WithLabelValues(metrics.OutcomeWaived).Inc()
		s.publish(ctx, events.BookingConfirmed, booking)
	} else {
		metrics.Admissions.WithLabelValues(metrics.OutcomeReserved).Inc()
		s.publish(ctx, events.BookingReserved, booking)
	}

	s.cfg.Log.Info("Booking reserved",
		"booking_id", booking.ID,
		"turf_id", booking.TurfID,
		"slot_id", booking.SlotID,
		"date", booking.Date,
		"user_id", booking.UserID,
		"status", booking.Status,
		"total_price", booking.TotalPrice,
	)
	return booking, nil
}

func (s *admissionService) admit(ctx context.Context, req *model.ReserveRequest) (*model.Booking, error) {
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", req.UserID)
		}
		s.cfg.Log.Error("Failed to load user", "user_id", req.UserID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}

	turf, err := s.loadTurf(ctx, req.TurfID)
	if err != nil {
		return nil, err
	}
	if turf.Deleted() {
		return nil, apperrors.NotFoundWithID("Turf", req.TurfID)
	}
	slot, ok := turf.Slot(req.SlotID)
	if !ok {
		return nil, apperrors.NotFoundWithID("Slot", req.SlotID)
	}

	maxPlayers := turf.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = s.cfg.DefaultMaxPlayers
	}
	if req.NumberOfPlayers == 0 {
		req.NumberOfPlayers = 1
	}
	if req.NumberOfPlayers > maxPlayers {
		return nil, apperrors.Validation("Too many players for this turf", map[string]any{
			"number_of_players": req.NumberOfPlayers,
			"max_players":       maxPlayers,
		})
	}

	loc := slotsservice.TurfLocation(turf, s.cfg.Location())
	now := s.clock.Now()
	if err := s.checkBookingWindow(req.Date, slot, now, loc); err != nil {
		return nil, err
	}
	if turf.IsBlocked(req.Date, slot.ID) {
		return nil, apperrors.Conflict("Slot is blocked by the turf owner").
			WithDetail("slot_id", slot.ID).
			WithDetail("date", req.Date)
	}

	released, err := s.repo.ReleaseExpiredHold(ctx, turf.ID, slot.ID, req.Date, now.UTC())
	switch {
	case err == nil:
		metrics.HoldsReaped.Inc()
		metrics.Cancellations.WithLabelValues(model.CancelReasonHoldExpired).Inc()
		s.cfg.Log.Info("Released expired hold", "booking_id", released.ID, "slot_id", slot.ID, "date", req.Date)
		s.publish(ctx, events.BookingExpired, released)
	case errors.Is(err, bookingserrors.ErrNotFound):
	default:
		s.cfg.Log.Error("Failed to release expired hold",
			"turf_id", turf.ID,
			"slot_id", slot.ID,
			"date", req.Date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to reserve slot", err)
	}

	createdAt := now.UTC().Truncate(time.Millisecond)
	booking := &model.Booking{
		TurfID:          turf.ID,
		UserID:          req.UserID,
		SlotID:          slot.ID,
		Date:            req.Date,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		NumberOfPlayers: req.NumberOfPlayers,
		TotalPrice:      turf.PriceFor(slot),
		ActiveSlot:      true,
		CreatedAt:       createdAt,
	}
	if booking.TotalPrice == 0 {
		booking.Status = model.BookingConfirmed
		booking.PaymentStatus = model.PaymentStateWaived
	} else {
		holdExpiresAt := createdAt.Add(s.cfg.HoldDuration)
		booking.Status = model.BookingPending
		booking.PaymentStatus = model.PaymentStatePending
		booking.HoldExpiresAt = &holdExpiresAt
	}

	if err := s.repo.Insert(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrSlotTaken) {
			return nil, s.slotTaken(ctx, req)
		}
		s.cfg.Log.Error("Failed to insert booking",
			"turf_id", turf.ID,
			"slot_id", slot.ID,
			"date", req.Date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to reserve slot", err)
	}

	return booking, nil
}

// slotTaken builds the 409 for a lost race, with the next free slot of the
// day when there is one.
func (s *admissionService) slotTaken(ctx context.Context, req *model.ReserveRequest) error {
	conflict := apperrors.Conflict("Slot already taken").
		WithDetail("slot_id", req.SlotID).
		WithDetail("date", req.Date)

	next, err := s.slots.NextAvailable(ctx, req.TurfID, req.Date, req.SlotID)
	if err != nil {
		s.cfg.Log.Warn("Failed to compute next available slot", "turf_id", req.TurfID, "error", err)
	}
	if next != nil {
		conflict = conflict.WithDetail("next_available", next)
	}

	s.cfg.Log.Info("Reservation conflict",
		"turf_id", req.TurfID,
		"slot_id", req.SlotID,
		"date", req.Date,
		"user_id", req.UserID,
	)
	return conflict
}

func (s *admissionService) checkBookingWindow(date string, slot model.SlotTemplate, now time.Time, loc *time.Location) error {
	start, err := slotsservice.SlotStart(date, slot, loc)
	if err != nil {
		return apperrors.InvalidInput("Invalid booking date")
	}
	if !start.After(now) {
		return apperrors.InvalidInput("Cannot book a slot in the past").WithDetail("date", date)
	}

	local := now.In(loc)
	lastDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, s.cfg.AdvanceBookingDays+1)
	if !start.Before(lastDay) {
		return apperrors.InvalidInput("Booking date is too far in advance").
			WithDetail("advance_booking_days", s.cfg.AdvanceBookingDays)
	}
	return nil
}

// Confirm applies a payment result. Every outcome is decided and written in
// one transaction; an expired hold is cancelled and committed before the
// conflict is reported.
func (s *admissionService) Confirm(ctx context.Context, req *model.ConfirmRequest) (*model.Booking, error) {
	if err := s.validator.ValidateConfirm(req); err != nil {
		metrics.Confirmations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, validation.ToAppError("Payment result validation failed", err)
	}

	var (
		result  *model.Booking
		outcome string
	)
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		var err error
		result, outcome, err = s.applyPayment(sessCtx, req)
		return err
	})
	if err != nil {
		metrics.Confirmations.WithLabelValues(confirmOutcome(err)).Inc()
		if !apperrors.IsAppError(err) {
			s.cfg.Log.Error("Failed to confirm booking", "booking_id", req.BookingID, "error", err)
			return nil, apperrors.Internal("Failed to confirm booking", err)
		}
		s.cfg.Log.Warn("Payment result rejected",
			"booking_id", req.BookingID,
			"transaction_id", req.TransactionID,
			"success", req.Success,
			"error", err,
		)
		return nil, err
	}

	metrics.Confirmations.WithLabelValues(outcome).Inc()
	switch outcome {
	case metrics.OutcomeConfirmed:
		s.publish(ctx, events.BookingConfirmed, result)
	case metrics.OutcomeFailed:
		metrics.Cancellations.WithLabelValues(model.CancelReasonPaymentFailed).Inc()
		s.publish(ctx, events.BookingCancelled, result)
	case metrics.OutcomeExpired:
		metrics.Cancellations.WithLabelValues(model.CancelReasonHoldExpired).Inc()
		s.publish(ctx, events.BookingExpired, result)
		s.cfg.Log.Warn("Payment arrived after hold expiry",
			"booking_id", result.ID,
			"transaction_id", req.TransactionID,
		)
		return nil, apperrors.Conflict("Booking hold expired before payment").
			WithDetail("booking_id", result.ID)
	}

	s.cfg.Log.Info("Payment result applied",
		"booking_id", result.ID,
		"outcome", outcome,
		"status", result.Status,
		"transaction_id", req.TransactionID,
	)
	return result, nil
}

func (s *admissionService) applyPayment(sessCtx mongo.SessionContext, req *model.ConfirmRequest) (*model.Booking, string, error) {
	booking, err := s.findBooking(sessCtx, req.BookingID)
	if err != nil {
		return nil, "", err
	}
	now := s.clock.Now().UTC()

	switch booking.Status {
	case model.BookingPending:
		if !req.Success {
			updated, err := s.transition(sessCtx, booking.ID, model.BookingPending, repository.StatusChange{
				To:            model.BookingCancelled,
				PaymentStatus: model.PaymentStateFailed,
				CancelReason:  model.CancelReasonPaymentFailed,
				At:            now,
			})
			return updated, metrics.OutcomeFailed, err
		}

		if booking.HoldExpired(now) {
			updated, err := s.transition(sessCtx, booking.ID, model.BookingPending, repository.ExpireHoldChange(now))
			return updated, metrics.OutcomeExpired, err
		}

		amount, err := paymentAmount(req.Amount, booking.TotalPrice)
		if err != nil {
			return nil, "", err
		}

		payment := &model.Payment{
			BookingID:     booking.ID,
			Amount:        amount,
			Method:        req.Method,
			Status:        model.PaymentSuccess,
			TransactionID: req.TransactionID,
			CreatedAt:     now.Truncate(time.Millisecond),
		}
		if err := s.payments.Create(sessCtx, payment); err != nil {
			if errors.Is(err, paymentserrors.ErrDuplicate) {
				return nil, "", apperrors.Conflict("Payment already recorded").
					WithDetail("transaction_id", req.TransactionID)
			}
			return nil, "", err
		}

		updated, err := s.transition(sessCtx, booking.ID, model.BookingPending, repository.StatusChange{
			To:              model.BookingConfirmed,
			PaymentStatus:   model.PaymentStatePaid,
			PaymentID:       payment.ID,
			At:              now,
			RequireLiveHold: true,
		})
		return updated, metrics.OutcomeConfirmed, err

	case model.BookingConfirmed:
		if !req.Success {
			return nil, "", apperrors.Conflict("Booking is already confirmed")
		}
		payment, err := s.payments.FindByBookingID(sessCtx, booking.ID)
		if err != nil && !errors.Is(err, paymentserrors.ErrNotFound) {
			return nil, "", err
		}
		if payment == nil || payment.TransactionID != req.TransactionID {
			return nil, "", apperrors.Conflict("Booking is already confirmed with a different payment")
		}
		return booking, metrics.OutcomeReplayed, nil

	default:
		if req.Success {
			return nil, "", apperrors.Conflict("Booking is cancelled").
				WithDetail("cancel_reason", booking.CancelReason)
		}
		return booking, metrics.OutcomeReplayed, nil
	}
}

// Cancel releases a confirmed booking. Pending holds end through payment
// failure or expiry only.
func (s *admissionService) Cancel(ctx context.Context, actor auth.Principal, bookingID, reason string) (*model.Booking, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if err := s.validator.ValidateCancel(&model.CancelRequest{Reason: reason}); err != nil {
		return nil, validation.ToAppError("Cancellation validation failed", err)
	}

	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	turf, err := s.loadTurf(ctx, booking.TurfID)
	if err != nil {
		return nil, err
	}

	cancelReason := cancelReasonFor(actor, booking, turf)
	if cancelReason == "" {
		return nil, apperrors.Forbidden("Not allowed to cancel this booking")
	}

	switch booking.Status {
	case model.BookingCancelled:
		return nil, apperrors.Conflict("Booking is already cancelled")
	case model.BookingPending:
		return nil, apperrors.Conflict("Pending bookings are released by payment failure or hold expiry")
	}

	loc := slotsservice.TurfLocation(turf, s.cfg.Location())
	start, err := slotsservice.SlotStart(booking.Date, model.SlotTemplate{StartTime: booking.StartTime}, loc)
	if err != nil {
		return nil, apperrors.Internal("Booking has an invalid slot time", err)
	}
	now := s.clock.Now()
	if now.Add(s.cfg.CancellationCutoff).After(start) {
		return nil, apperrors.Conflict("Cancellation window has closed").
			WithDetail("cutoff", s.cfg.CancellationCutoff.String())
	}

	updated, err := s.transition(ctx, booking.ID, model.BookingConfirmed, repository.StatusChange{
		To:           model.BookingCancelled,
		CancelReason: cancelReason,
		At:           now.UTC(),
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			s.cfg.Log.Error("Failed to cancel booking", "booking_id", bookingID, "error", err)
			return nil, apperrors.Internal("Failed to cancel booking", err)
		}
		return nil, err
	}

	metrics.Cancellations.WithLabelValues(cancelReason).Inc()
	s.publish(ctx, events.BookingCancelled, updated)
	s.cfg.Log.Info("Booking cancelled",
		"booking_id", updated.ID,
		"reason", cancelReason,
		"note", reason,
		"actor", actor.UserID,
	)
	return updated, nil
}

// ExpireHolds cancels one batch of pending bookings whose hold has passed.
// Bookings confirmed or cancelled concurrently are skipped.
func (s *admissionService) ExpireHolds(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()

	expired, err := s.repo.FindExpiredHolds(ctx, now, s.cfg.ReaperBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to find expired holds", "error", err)
		return 0, apperrors.Internal("Failed to find expired holds", err)
	}

	released := 0
	for _, booking := range expired {
		updated, err := s.repo.Transition(ctx, booking.ID, model.BookingPending, repository.ExpireHoldChange(now))
		if err != nil {
			if errors.Is(err, bookingserrors.ErrStatusChanged) {
				continue
			}
			s.cfg.Log.Error("Failed to expire hold", "booking_id", booking.ID, "error", err)
			return released, apperrors.Internal("Failed to expire hold", err)
		}
		released++
		metrics.HoldsReaped.Inc()
		metrics.Cancellations.WithLabelValues(model.CancelReasonHoldExpired).Inc()
		s.publish(ctx, events.BookingExpired, updated)
	}

	if released > 0 {
		s.cfg.Log.Info("Expired holds released", "count", released, "scanned", len(expired))
	}
	return released, nil
}

func (s *admissionService) GetByID(ctx context.Context, actor auth.Principal, bookingID string) (*model.Booking, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.CanActFor(booking.UserID) || actor.Can(auth.CapViewAnyBookings) {
		return booking, nil
	}

	turf, err := s.loadTurf(ctx, booking.TurfID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageTurf(turf.OwnerID) {
		return nil, apperrors.Forbidden("Not allowed to view this booking")
	}
	return booking, nil
}

func (s *admissionService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to get booking by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

// loadTurf returns the turf even when soft-deleted.
func (s *admissionService) loadTurf(ctx context.Context, id string) (*model.Turf, error) {
	turf, err := s.turfs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) || errors.Is(err, turfserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Turf", id)
		}
		s.cfg.Log.Error("Failed to load turf", "turf_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve turf", err)
	}
	return turf, nil
}

// transition maps a lost compare-and-set to a conflict.
func (s *admissionService) transition(ctx context.Context, id string, from model.BookingStatus, change repository.StatusChange) (*model.Booking, error) {
	updated, err := s.repo.Transition(ctx, id, from, change)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.Conflict("Booking status changed, retry with the current state").
				WithDetail("booking_id", id)
		}
		return nil, err
	}
	return updated, nil
}

func (s *admissionService) publish(ctx context.Context, eventType events.Type, booking *model.Booking) {
	if err := s.publisher.Publish(ctx, eventType, booking); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func cancelReasonFor(actor auth.Principal, booking *model.Booking, turf *model.Turf) string {
	switch {
	case actor.UserID == booking.UserID && actor.Can(auth.CapCancelOwnBookings):
		return model.CancelReasonByUser
	case actor.Can(auth.CapManageAnyTurf):
		return model.CancelReasonByAdmin
	case actor.CanManageTurf(turf.OwnerID):
		return model.CancelReasonByOwner
	default:
		return ""
	}
}

// paymentAmount defaults a missing amount to the booking price and rejects
// underpayment. Amounts are compared in cents.
func paymentAmount(amount, price float64) (float64, error) {
	if amount == 0 {
		return price, nil
	}
	if math.Round(amount*100) < math.Round(price*100) {
		return 0, apperrors.Validation("Payment amount is below the booking price", map[string]any{
			"amount":      amount,
			"total_price": price,
		})
	}
	return amount, nil
}

func admissionOutcome(err error) string {
	switch {
	case apperrors.HasCode(err, apperrors.CodeConflict):
		return metrics.OutcomeConflict
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		return metrics.OutcomeNotFound
	case apperrors.HasCode(err, apperrors.CodeValidation), apperrors.HasCode(err, apperrors.CodeInvalidInput):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func confirmOutcome(err error) string {
	return admissionOutcome(err)
}
