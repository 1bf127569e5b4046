package service

import (
	"context"
	"errors"
	"sync"
	"turfbook/internal/bookings/repository"
	turfserrors "turfbook/internal/turfs/errors"
	"turfbook/pkg/auth"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
)

// LedgerService answers read-only booking history queries. Results are
// ordered newest first.
type LedgerService interface {
	FindByUser(ctx context.Context, actor auth.Principal, userID string, limit int, offset int64) (*model.BookingPage, error)
	FindByTurf(ctx context.Context, actor auth.Principal, turfID string, limit int, offset int64) (*model.BookingPage, error)
	FindByOwner(ctx context.Context, actor auth.Principal, ownerID string, limit int, offset int64) (*model.BookingPage, error)
}

type ledgerService struct {
	repo  repository.BookingRepository
	turfs TurfReader
	cfg   *config.Config
}

func NewLedgerService(repo repository.BookingRepository, turfs TurfReader, cfg *config.Config) LedgerService {
	return &ledgerService{
		repo:  repo,
		turfs: turfs,
		cfg:   cfg,
	}
}

func (s *ledgerService) FindByUser(ctx context.Context, actor auth.Principal, userID string, limit int, offset int64) (*model.BookingPage, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if userID == "" {
		userID = actor.UserID
	}
	if !actor.CanActFor(userID) && !actor.Can(auth.CapViewAnyBookings) {
		return nil, apperrors.Forbidden("Not allowed to view these bookings")
	}
	return s.page(ctx, repository.LedgerFilter{UserID: userID}, limit, offset)
}

func (s *ledgerService) FindByTurf(ctx context.Context, actor auth.Principal, turfID string, limit int, offset int64) (*model.BookingPage, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if turfID == "" {
		return nil, apperrors.InvalidInput("Turf ID cannot be empty")
	}

	if !actor.Can(auth.CapViewAnyBookings) {
		turf, err := s.turfs.FindByID(ctx, turfID)
		if err != nil {
			if errors.Is(err, turfserrors.ErrNotFound) || errors.Is(err, turfserrors.ErrInvalidID) {
				return emptyPage(), nil
			}
			s.cfg.Log.Error("Failed to load turf", "turf_id", turfID, "error", err)
			return nil, apperrors.Internal("Failed to retrieve turf", err)
		}
		if !actor.CanManageTurf(turf.OwnerID) {
			return nil, apperrors.Forbidden("Not allowed to view bookings of this turf")
		}
	}
	return s.page(ctx, repository.LedgerFilter{TurfIDs: []string{turfID}}, limit, offset)
}

func (s *ledgerService) FindByOwner(ctx context.Context, actor auth.Principal, ownerID string, limit int, offset int64) (*model.BookingPage, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if ownerID == "" {
		ownerID = actor.UserID
	}
	if !actor.CanManageTurf(ownerID) && !actor.Can(auth.CapViewAnyBookings) {
		return nil, apperrors.Forbidden("Not allowed to view bookings of these turfs")
	}

	turfIDs, err := s.turfs.FindIDsByOwner(ctx, ownerID)
	if err != nil {
		s.cfg.Log.Error("Failed to list owner turfs", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve turfs", err)
	}
	if len(turfIDs) == 0 {
		return emptyPage(), nil
	}
	return s.page(ctx, repository.LedgerFilter{TurfIDs: turfIDs}, limit, offset)
}

func (s *ledgerService) page(ctx context.Context, filter repository.LedgerFilter, limit int, offset int64) (*model.BookingPage, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
	}()
	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.Find(ctx, filter, limit, offset)
	}()
	wg.Wait()

	if errCount != nil {
		s.cfg.Log.Error("Failed to count bookings", "user_id", filter.UserID, "turfs", len(filter.TurfIDs), "error", errCount)
		return nil, apperrors.Internal("Failed to count bookings", errCount)
	}
	if errFind != nil {
		s.cfg.Log.Error("Failed to find bookings", "user_id", filter.UserID, "turfs", len(filter.TurfIDs), "error", errFind)
		return nil, apperrors.Internal("Failed to retrieve bookings", errFind)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return &model.BookingPage{Bookings: bookings, TotalCount: count}, nil
}

func emptyPage() *model.BookingPage {
	return &model.BookingPage{Bookings: []*model.Booking{}}
}
