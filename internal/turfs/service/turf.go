package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	turfserrors "turfbook/internal/turfs/errors"
	"turfbook/internal/turfs/repository"
	"turfbook/internal/turfs/validator"
	"turfbook/pkg/auth"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
	"turfbook/pkg/sanitizer"
	"turfbook/pkg/validation"
)

type TurfService interface {
	Create(ctx context.Context, actor auth.Principal, turf *model.Turf) error
	GetByID(ctx context.Context, id string) (*model.Turf, error)
	GetAll(ctx context.Context, city string, limit int, offset int64) ([]*model.Turf, int64, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*model.Turf, error)
	Similar(ctx context.Context, id string, limit int) ([]*model.Turf, error)
	Update(ctx context.Context, actor auth.Principal, id string, updates *model.TurfUpdate) (*model.Turf, error)
	Delete(ctx context.Context, actor auth.Principal, id string) error
	ToggleSlotBlock(ctx context.Context, actor auth.Principal, id string, req *model.SlotBlockRequest) (bool, error)
}

type turfService struct {
	repo      repository.TurfRepository
	validator *validator.TurfValidator
	cfg       *config.Config
	clock     clock.Clock
}

const (
	DefaultSimilarLimit = 6
	MaxSimilarLimit     = 20
)

func NewTurfService(
	repo repository.TurfRepository,
	validator *validator.TurfValidator,
	cfg *config.Config,
	clk clock.Clock,
) TurfService {
	return &turfService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		clock:     clk,
	}
}

func (s *turfService) Create(ctx context.Context, actor auth.Principal, turf *model.Turf) error {
	if !actor.Can(auth.CapManageOwnTurfs) {
		return apperrors.Forbidden("Only turf owners can create turfs")
	}
	if turf.OwnerID == "" || !actor.Can(auth.CapManageAnyTurf) {
		turf.OwnerID = actor.UserID
	}

	turf.ID = ""
	turf.BlockedSlots = nil
	turf.DeletedAt = nil
	s.sanitize(turf)
	if err := s.applyDefaults(turf); err != nil {
		return err
	}

	if err := s.validator.Validate(turf); err != nil {
		s.cfg.Log.Warn("Turf validation failed",
			"name", turf.Name,
			"owner_id", turf.OwnerID,
			"error", err,
		)
		return validation.ToAppError("Turf validation failed", err)
	}

	if err := s.repo.Create(ctx, turf); err != nil {
		s.cfg.Log.Error("Failed to create turf",
			"name", turf.Name,
			"owner_id", turf.OwnerID,
			"error", err,
		)
		return apperrors.Internal("Failed to create turf", err)
	}

	s.cfg.Log.Info("Turf created successfully",
		"id", turf.ID,
		"name", turf.Name,
		"owner_id", turf.OwnerID,
		"slots", len(turf.Slots),
	)
	return nil
}

func (s *turfService) GetByID(ctx context.Context, id string) (*model.Turf, error) {
	turf, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if turf.Deleted() {
		return nil, apperrors.NotFoundWithID("Turf", id)
	}
	return turf, nil
}

func (s *turfService) GetAll(ctx context.Context, city string, limit int, offset int64) ([]*model.Turf, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)
	if city != "" {
		city = sanitizer.SanitizeCity(city)
	}

	var count int64
	var turfs []*model.Turf
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, city)
		if err != nil {
			s.cfg.Log.Error("Failed to count turfs", "city", city, "error", err)
			errCount = apperrors.Internal("Failed to count turfs", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		turfs, err = s.repo.FindAll(ctx, city, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get turfs",
				"city", city,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve turfs", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return turfs, count, nil
}

func (s *turfService) GetByOwner(ctx context.Context, ownerID string) ([]*model.Turf, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("Owner ID cannot be empty")
	}

	turfs, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		s.cfg.Log.Error("Failed to get turfs by owner", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve owner turfs", err)
	}
	return turfs, nil
}

// Similar lists other live turfs in the same city or category as id. When
// nothing matches it falls back to any other live turfs.
func (s *turfService) Similar(ctx context.Context, id string, limit int) ([]*model.Turf, error) {
	turf, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	limit = min(limit, MaxSimilarLimit)

	similar, err := s.repo.FindSimilar(ctx, turf, limit)
	if err != nil {
		s.cfg.Log.Error("Failed to find similar turfs", "id", id, "city", turf.City, "category", turf.Category, "error", err)
		return nil, apperrors.Internal("Failed to find similar turfs", err)
	}
	if len(similar) > 0 {
		return similar, nil
	}

	others, err := s.repo.FindAll(ctx, "", limit+1, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to list fallback turfs", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to find similar turfs", err)
	}
	fallback := make([]*model.Turf, 0, limit)
	for _, other := range others {
		if other.ID == turf.ID || len(fallback) == limit {
			continue
		}
		fallback = append(fallback, other)
	}
	return fallback, nil
}

func (s *turfService) Update(ctx context.Context, actor auth.Principal, id string, updates *model.TurfUpdate) (*model.Turf, error) {
	existing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validation.ToAppError("Turf update validation failed", err)
	}

	s.sanitizeUpdate(updates)
	merged := mergeTurfUpdates(existing, updates)
	validator.AssignSlotIDs(merged.Slots)

	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Turf validation failed",
			"id", id,
			"name", merged.Name,
			"error", err,
		)
		return nil, validation.ToAppError("Turf validation failed", err)
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Turf", id)
		}
		s.cfg.Log.Error("Failed to update turf", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update turf", err)
	}

	s.cfg.Log.Info("Turf updated successfully", "id", id, "name", merged.Name)
	return merged, nil
}

// Delete is a soft delete: the turf stops being listed and bookable, its
// bookings stay in the ledger.
func (s *turfService) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Turf", id)
		}
		s.cfg.Log.Error("Failed to delete turf", "id", id, "error", err)
		return apperrors.Internal("Failed to delete turf", err)
	}

	s.cfg.Log.Info("Turf deleted successfully", "id", id, "actor", actor.UserID)
	return nil
}

func (s *turfService) ToggleSlotBlock(ctx context.Context, actor auth.Principal, id string, req *model.SlotBlockRequest) (bool, error) {
	turf, err := s.authorize(ctx, actor, id)
	if err != nil {
		return false, err
	}

	if err := s.validator.ValidateBlock(req); err != nil {
		return false, validation.ToAppError("Slot block validation failed", err)
	}
	if _, ok := turf.Slot(req.SlotID); !ok {
		return false, apperrors.NotFoundWithID("Slot", req.SlotID)
	}

	blocked, err := s.repo.ToggleSlotBlock(ctx, id, model.SlotBlock{Date: req.Date, SlotID: req.SlotID}, s.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) {
			return false, apperrors.NotFoundWithID("Turf", id)
		}
		s.cfg.Log.Error("Failed to toggle slot block",
			"id", id,
			"date", req.Date,
			"slot_id", req.SlotID,
			"error", err,
		)
		return false, apperrors.Internal("Failed to toggle slot block", err)
	}

	s.cfg.Log.Info("Slot block toggled",
		"id", id,
		"date", req.Date,
		"slot_id", req.SlotID,
		"blocked", blocked,
	)
	return blocked, nil
}

func (s *turfService) find(ctx context.Context, id string) (*model.Turf, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Turf ID cannot be empty")
	}

	turf, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Turf", id)
		}
		if errors.Is(err, turfserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid turf ID format")
		}
		s.cfg.Log.Error("Failed to get turf by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve turf", err)
	}
	return turf, nil
}

// authorize loads a live turf and checks that actor may manage it.
func (s *turfService) authorize(ctx context.Context, actor auth.Principal, id string) (*model.Turf, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	turf, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageTurf(turf.OwnerID) {
		s.cfg.Log.Warn("Turf access denied",
			"id", id,
			"owner_id", turf.OwnerID,
			"actor", actor.UserID,
			"role", actor.Role,
		)
		return nil, apperrors.Forbidden("You do not manage this turf")
	}
	return turf, nil
}

func (s *turfService) sanitize(turf *model.Turf) {
	turf.Name = sanitizer.NormalizeName(turf.Name)
	turf.Description = sanitizer.TrimAndNormalize(turf.Description)
	turf.City = sanitizer.SanitizeCity(turf.City)
	turf.Address = sanitizer.NormalizeAddress(turf.Address)
	turf.Category = sanitizer.SanitizeLabel(turf.Category)
	turf.Amenities = sanitizer.SanitizeLabels(turf.Amenities)
	turf.TimeZone = sanitizer.TrimAndNormalize(turf.TimeZone)
}

func (s *turfService) sanitizeUpdate(updates *model.TurfUpdate) {
	if updates.Name != "" {
		updates.Name = sanitizer.NormalizeName(updates.Name)
	}
	if updates.Description != nil {
		normalized := sanitizer.TrimAndNormalize(*updates.Description)
		updates.Description = &normalized
	}
	if updates.City != "" {
		updates.City = sanitizer.SanitizeCity(updates.City)
	}
	if updates.Address != "" {
		updates.Address = sanitizer.NormalizeAddress(updates.Address)
	}
	if updates.Category != nil {
		normalized := sanitizer.SanitizeLabel(*updates.Category)
		updates.Category = &normalized
	}
	if updates.Amenities != nil {
		normalized := sanitizer.SanitizeLabels(*updates.Amenities)
		updates.Amenities = &normalized
	}
	if updates.TimeZone != "" {
		updates.TimeZone = sanitizer.TrimAndNormalize(updates.TimeZone)
	}
}

func (s *turfService) applyDefaults(turf *model.Turf) error {
	if turf.TimeZone == "" {
		turf.TimeZone = s.cfg.DefaultTimeZone
	}
	if turf.MaxPlayers == 0 {
		turf.MaxPlayers = s.cfg.DefaultMaxPlayers
	}
	if len(turf.Slots) == 0 {
		slots, err := DefaultSlots(s.cfg.DefaultOpeningTime, s.cfg.DefaultClosingTime, s.cfg.DefaultSlotDurationMinutes)
		if err != nil {
			s.cfg.Log.Error("Failed to generate default slots", "error", err)
			return apperrors.Internal("Failed to generate default slots", err)
		}
		turf.Slots = slots
	}
	validator.AssignSlotIDs(turf.Slots)
	return nil
}

// DefaultSlots lays out back-to-back slots of the given length between
// opening and closing. A trailing window shorter than the slot is dropped.
func DefaultSlots(opening, closing string, minutes int) ([]model.SlotTemplate, error) {
	start, err := time.Parse("15:04", opening)
	if err != nil {
		return nil, fmt.Errorf("invalid opening time %q: %w", opening, err)
	}
	end, err := time.Parse("15:04", closing)
	if err != nil {
		return nil, fmt.Errorf("invalid closing time %q: %w", closing, err)
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %d", minutes)
	}

	step := time.Duration(minutes) * time.Minute
	var slots []model.SlotTemplate
	for t := start; !t.Add(step).After(end); t = t.Add(step) {
		slots = append(slots, model.SlotTemplate{
			StartTime: t.Format("15:04"),
			EndTime:   t.Add(step).Format("15:04"),
		})
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("no %d minute slot fits between %s and %s", minutes, opening, closing)
	}
	return slots, nil
}

func mergeTurfUpdates(existing *model.Turf, updates *model.TurfUpdate) *model.Turf {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.City != "" {
		merged.City = updates.City
	}
	if updates.Address != "" {
		merged.Address = updates.Address
	}
	if updates.Category != nil {
		merged.Category = *updates.Category
	}
	if updates.Amenities != nil {
		merged.Amenities = *updates.Amenities
	}
	if updates.PricePerHour != nil {
		merged.PricePerHour = *updates.PricePerHour
	}
	if updates.MaxPlayers != nil {
		merged.MaxPlayers = *updates.MaxPlayers
	}
	if updates.TimeZone != "" {
		merged.TimeZone = updates.TimeZone
	}
	if updates.Slots != nil {
		slots := make([]model.SlotTemplate, len(*updates.Slots))
		copy(slots, *updates.Slots)
		merged.Slots = slots
	}

	merged.ID = existing.ID
	merged.OwnerID = existing.OwnerID
	merged.CreatedAt = existing.CreatedAt

	return &merged
}
