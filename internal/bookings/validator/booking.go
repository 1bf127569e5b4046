package validator

import (
	"turfbook/pkg/logger"
	"turfbook/pkg/model"
	"turfbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v, err := validation.New()
	if err != nil {
		log.Fatal("Failed to initialize booking validator", "error", err)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func (v *BookingValidator) ValidateReserve(req *model.ReserveRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *BookingValidator) ValidateConfirm(req *model.ConfirmRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *BookingValidator) ValidateCancel(req *model.CancelRequest) error {
	return validation.Struct(v.validate, req)
}
