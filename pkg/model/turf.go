package model

import (
	"math"
	"time"
)

// SlotTemplate is one bookable window of a turf, repeated every day.
type SlotTemplate struct {
	ID        string `json:"id" bson:"id" validate:"omitempty,slot_id"`
	StartTime string `json:"start_time" bson:"start_time" validate:"required,time_of_day"`
	EndTime   string `json:"end_time" bson:"end_time" validate:"required,time_of_day"`
}

// Minutes is the slot length; 0 when the times do not parse.
func (s SlotTemplate) Minutes() int {
	start, err1 := time.Parse("15:04", s.StartTime)
	end, err2 := time.Parse("15:04", s.EndTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

// SlotBlock closes a single slot on a single date (maintenance, private event).
type SlotBlock struct {
	Date   string `json:"date" bson:"date"`
	SlotID string `json:"slot_id" bson:"slot_id"`
}

type Turf struct {
	ID           string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OwnerID      string         `json:"owner_id" bson:"owner_id" validate:"required,mongodb"`
	Name         string         `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description  string         `json:"description,omitempty" bson:"description" validate:"omitempty,max=1000"`
	City         string         `json:"city" bson:"city" validate:"required,min=2,max=50"`
	Address      string         `json:"address" bson:"address" validate:"required,min=2,max=200"`
	Category     string         `json:"category,omitempty" bson:"category" validate:"omitempty,max=50"`
	Amenities    []string       `json:"amenities,omitempty" bson:"amenities" validate:"omitempty,max=30,dive,min=1,max=50"`
	PricePerHour float64        `json:"price_per_hour" bson:"price_per_hour" validate:"gte=0,lte=100000"`
	MaxPlayers   int            `json:"max_players" bson:"max_players" validate:"omitempty,min=1,max=100"`
	TimeZone     string         `json:"time_zone,omitempty" bson:"time_zone" validate:"omitempty,timezone"`
	Slots        []SlotTemplate `json:"slots" bson:"slots" validate:"omitempty,max=48,dive,required"`
	BlockedSlots []SlotBlock    `json:"blocked_slots,omitempty" bson:"blocked_slots,omitempty" validate:"-"`
	DeletedAt    *time.Time     `json:"deleted_at,omitempty" bson:"deleted_at,omitempty" validate:"-"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at" validate:"-"`
	UpdatedAt    time.Time      `json:"updated_at" bson:"updated_at" validate:"-"`
}

func (t *Turf) Slot(id string) (SlotTemplate, bool) {
	for _, s := range t.Slots {
		if s.ID == id {
			return s, true
		}
	}
	return SlotTemplate{}, false
}

func (t *Turf) IsBlocked(date, slotID string) bool {
	for _, b := range t.BlockedSlots {
		if b.Date == date && b.SlotID == slotID {
			return true
		}
	}
	return false
}

func (t *Turf) Deleted() bool {
	return t.DeletedAt != nil
}

// PriceFor returns the price of the slot, pro-rated from the hourly rate.
func (t *Turf) PriceFor(slot SlotTemplate) float64 {
	cents := int64(math.Round(t.PricePerHour*100)) * int64(slot.Minutes()) / 60
	return float64(cents) / 100
}

type TurfUpdate struct {
	Name         string          `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description  *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	City         string          `json:"city,omitempty" validate:"omitempty,min=2,max=50"`
	Address      string          `json:"address,omitempty" validate:"omitempty,min=2,max=200"`
	Category     *string         `json:"category,omitempty" validate:"omitempty,max=50"`
	Amenities    *[]string       `json:"amenities,omitempty" validate:"omitempty,max=30,dive,min=1,max=50"`
	PricePerHour *float64        `json:"price_per_hour,omitempty" validate:"omitempty,gte=0,lte=100000"`
	MaxPlayers   *int            `json:"max_players,omitempty" validate:"omitempty,min=1,max=100"`
	TimeZone     string          `json:"time_zone,omitempty" validate:"omitempty,timezone"`
	Slots        *[]SlotTemplate `json:"slots,omitempty" validate:"omitempty,max=48,dive,required"`
}

type SlotBlockRequest struct {
	Date   string `json:"date" validate:"required,booking_date"`
	SlotID string `json:"slot_id" validate:"required,slot_id"`
}

// AvailableSlot is a free (date, slot) pair in the catalog.
type AvailableSlot struct {
	Date      string  `json:"date"`
	SlotID    string  `json:"slot_id"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Price     float64 `json:"price"`
}

type SlotStatus struct {
	TurfID string `json:"turf_id"`
	SlotID string `json:"slot_id"`
	Date   string `json:"date"`
	Free   bool   `json:"free"`
}
