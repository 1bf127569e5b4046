package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	apperrors "turfbook/pkg/errors"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

var (
	timeOfDayRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	slotIDRegex    = regexp.MustCompile(`^[A-Za-z0-9:_-]{1,32}$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors for an AppError details map.
func (v ValidationErrors) Details() map[string]any {
	fields := make([]map[string]string, 0, len(v))
	for _, err := range v {
		fields = append(fields, map[string]string{"field": err.Field, "message": err.Message})
	}
	return map[string]any{"fields": fields}
}

// New returns a validator with the booking rules registered and field names
// reported by their JSON tag.
func New() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"booking_date": validateDate,
		"time_of_day":  validateTimeOfDay,
		"slot_id":      validateSlotID,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register %q validator: %w", tag, err)
		}
	}
	return v, nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	return timeOfDayRegex.MatchString(fl.Field().String())
}

func validateSlotID(fl validator.FieldLevel) bool {
	return slotIDRegex.MatchString(fl.Field().String())
}

// Struct validates s and translates go-playground errors into ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Translate(validationErrs)
	}
	return err
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min", "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max", "lte":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "booking_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "time_of_day":
			message = fmt.Sprintf("%s must be in HH:MM format (00:00-23:59)", err.Field())
		case "slot_id":
			message = fmt.Sprintf("%s must be 1-32 letters, digits, ':', '_' or '-'", err.Field())
		case "timezone":
			message = fmt.Sprintf("%s must be a valid IANA time zone", err.Field())
		}

		out = append(out, ValidationError{
			Field:   err.Namespace(),
			Message: message,
		})
	}

	return out
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, loc)
}

// ToAppError wraps a validation failure into a 400 AppError, keeping the
// per-field messages in its details.
func ToAppError(message string, err error) *apperrors.AppError {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
