package service

import (
	"context"
	"errors"
	"sort"
	"time"
	turfserrors "turfbook/internal/turfs/errors"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
	"turfbook/pkg/validation"
)

// Catalog answers which (date, slot) pairs of a turf can still be booked.
// It never writes.
type Catalog interface {
	ListAvailable(ctx context.Context, turfID, from, to string) ([]model.AvailableSlot, error)
	IsFree(ctx context.Context, turfID, slotID, date string) (bool, error)
	NextAvailable(ctx context.Context, turfID, date, afterSlotID string) (*model.AvailableSlot, error)
}

type catalog struct {
	turfs    TurfReader
	bookings BookingReader
	cfg      *config.Config
	clock    clock.Clock
}

func NewCatalog(turfs TurfReader, bookings BookingReader, cfg *config.Config, clk clock.Clock) Catalog {
	if clk == nil {
		clk = clock.System{}
	}
	return &catalog{
		turfs:    turfs,
		bookings: bookings,
		cfg:      cfg,
		clock:    clk,
	}
}

func (c *catalog) ListAvailable(ctx context.Context, turfID, from, to string) ([]model.AvailableSlot, error) {
	turf, err := c.loadTurf(ctx, turfID)
	if err != nil {
		return nil, err
	}
	return c.list(ctx, turf, from, to)
}

func (c *catalog) list(ctx context.Context, turf *model.Turf, from, to string) ([]model.AvailableSlot, error) {
	loc := TurfLocation(turf, c.cfg.Location())
	now := c.clock.Now().In(loc)
	today := now.Format(validation.DateLayout)

	if from == "" {
		from = today
	}
	if to == "" {
		to = from
	}
	fromDay, err := time.Parse(validation.DateLayout, from)
	if err != nil {
		return nil, apperrors.InvalidInput("from must be a date in YYYY-MM-DD format")
	}
	toDay, err := time.Parse(validation.DateLayout, to)
	if err != nil {
		return nil, apperrors.InvalidInput("to must be a date in YYYY-MM-DD format")
	}
	if toDay.Before(fromDay) {
		return nil, apperrors.InvalidInput("to must not be before from")
	}
	if days := daysBetween(fromDay, toDay) + 1; days > c.cfg.MaxAvailabilityRangeDays {
		return nil, apperrors.InvalidInput("date range too large").
			WithDetail("max_days", c.cfg.MaxAvailabilityRangeDays)
	}

	todayDay, _ := time.Parse(validation.DateLayout, today)
	lastBookable := todayDay.AddDate(0, 0, c.cfg.AdvanceBookingDays)
	if fromDay.Before(todayDay) {
		fromDay = todayDay
	}
	if toDay.After(lastBookable) {
		toDay = lastBookable
	}
	if toDay.Before(fromDay) {
		return []model.AvailableSlot{}, nil
	}

	start, end := fromDay.Format(validation.DateLayout), toDay.Format(validation.DateLayout)
	occupied, err := c.occupied(ctx, turf.ID, start, end, now)
	if err != nil {
		return nil, err
	}

	slots := orderedSlots(turf.Slots)
	available := []model.AvailableSlot{}
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		date := day.Format(validation.DateLayout)
		for _, slot := range slots {
			if !c.bookable(turf, slot, date, occupied, now, loc) {
				continue
			}
			available = append(available, model.AvailableSlot{
				Date:      date,
				SlotID:    slot.ID,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Price:     turf.PriceFor(slot),
			})
		}
	}

	return available, nil
}

func (c *catalog) IsFree(ctx context.Context, turfID, slotID, date string) (bool, error) {
	turf, err := c.loadTurf(ctx, turfID)
	if err != nil {
		return false, err
	}
	slot, ok := turf.Slot(slotID)
	if !ok {
		return false, apperrors.NotFoundWithID("Slot", slotID)
	}
	day, err := time.Parse(validation.DateLayout, date)
	if err != nil {
		return false, apperrors.InvalidInput("date must be a date in YYYY-MM-DD format")
	}

	loc := TurfLocation(turf, c.cfg.Location())
	now := c.clock.Now().In(loc)
	todayDay, _ := time.Parse(validation.DateLayout, now.Format(validation.DateLayout))
	if day.After(todayDay.AddDate(0, 0, c.cfg.AdvanceBookingDays)) {
		return false, nil
	}

	occupied, err := c.occupied(ctx, turfID, date, date, now)
	if err != nil {
		return false, err
	}
	return c.bookable(turf, slot, date, occupied, now, loc), nil
}

// NextAvailable returns the first free slot on date that starts after
// afterSlotID, or nil when the rest of the day is full.
func (c *catalog) NextAvailable(ctx context.Context, turfID, date, afterSlotID string) (*model.AvailableSlot, error) {
	turf, err := c.loadTurf(ctx, turfID)
	if err != nil {
		return nil, err
	}
	available, err := c.list(ctx, turf, date, date)
	if err != nil {
		return nil, err
	}

	after := ""
	if slot, ok := turf.Slot(afterSlotID); ok {
		after = slot.StartTime
	}

	for i := range available {
		if available[i].StartTime > after {
			return &available[i], nil
		}
	}
	return nil, nil
}

func (c *catalog) loadTurf(ctx context.Context, turfID string) (*model.Turf, error) {
	turf, err := c.turfs.FindByID(ctx, turfID)
	if err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) || errors.Is(err, turfserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Turf", turfID)
		}
		c.cfg.Log.Error("Failed to load turf for catalog", "turf_id", turfID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve turf", err)
	}
	if turf.Deleted() {
		return nil, apperrors.NotFoundWithID("Turf", turfID)
	}
	return turf, nil
}

func (c *catalog) occupied(ctx context.Context, turfID, from, to string, now time.Time) (map[slotKey]bool, error) {
	bookings, err := c.bookings.FindActiveByTurf(ctx, turfID, from, to)
	if err != nil {
		c.cfg.Log.Error("Failed to load active bookings",
			"turf_id", turfID,
			"from", from,
			"to", to,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	occupied := make(map[slotKey]bool, len(bookings))
	for _, b := range bookings {
		if b.HoldsSlot(now) {
			occupied[slotKey{date: b.Date, slotID: b.SlotID}] = true
		}
	}
	return occupied, nil
}

func (c *catalog) bookable(turf *model.Turf, slot model.SlotTemplate, date string, occupied map[slotKey]bool, now time.Time, loc *time.Location) bool {
	if turf.IsBlocked(date, slot.ID) || occupied[slotKey{date: date, slotID: slot.ID}] {
		return false
	}
	start, err := SlotStart(date, slot, loc)
	if err != nil {
		return false
	}
	return start.After(now)
}

type slotKey struct {
	date   string
	slotID string
}

// TurfLocation resolves the turf's time zone, falling back when it is unset
// or unknown.
func TurfLocation(turf *model.Turf, fallback *time.Location) *time.Location {
	if turf.TimeZone != "" {
		if loc, err := time.LoadLocation(turf.TimeZone); err == nil {
			return loc
		}
	}
	return fallback
}

// SlotStart is the instant the slot begins on date in loc.
func SlotStart(date string, slot model.SlotTemplate, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(validation.DateLayout+" 15:04", date+" "+slot.StartTime, loc)
}

func orderedSlots(slots []model.SlotTemplate) []model.SlotTemplate {
	ordered := make([]model.SlotTemplate, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartTime < ordered[j].StartTime })
	return ordered
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
