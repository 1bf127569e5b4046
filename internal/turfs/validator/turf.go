package validator

import (
	"fmt"
	"sort"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"
	"turfbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type TurfValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTurfValidator(log *logger.Logger) *TurfValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize turf validator", "error", err)
	}

	return &TurfValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks field constraints and then the slot layout. Slots must
// already carry their IDs (see AssignSlotIDs).
func (v *TurfValidator) Validate(turf *model.Turf) error {
	if err := validation.Struct(v.validate, turf); err != nil {
		return err
	}
	return v.validateSlots(turf.Slots)
}

func (v *TurfValidator) ValidateUpdate(update *model.TurfUpdate) error {
	return validation.Struct(v.validate, update)
}

func (v *TurfValidator) ValidateBlock(req *model.SlotBlockRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *TurfValidator) validateSlots(slots []model.SlotTemplate) error {
	if len(slots) == 0 {
		return validation.ValidationErrors{{Field: "slots", Message: "slots must contain at least one slot"}}
	}

	var errs validation.ValidationErrors
	seen := make(map[string]bool, len(slots))
	for i, slot := range slots {
		field := fmt.Sprintf("slots[%d]", i)
		if seen[slot.ID] {
			errs = append(errs, validation.ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate slot id %q", slot.ID)})
		}
		seen[slot.ID] = true

		if slot.Minutes() <= 0 {
			errs = append(errs, validation.ValidationError{Field: field + ".end_time", Message: "end_time must be after start_time"})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	ordered := make([]model.SlotTemplate, len(slots))
	copy(ordered, slots)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartTime < ordered[j].StartTime })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].StartTime < ordered[i-1].EndTime {
			errs = append(errs, validation.ValidationError{
				Field:   "slots",
				Message: fmt.Sprintf("slot %s overlaps slot %s", ordered[i].ID, ordered[i-1].ID),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AssignSlotIDs gives unnamed slots a "HH:MM-HH:MM" id.
func AssignSlotIDs(slots []model.SlotTemplate) {
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = slots[i].StartTime + "-" + slots[i].EndTime
		}
	}
}
