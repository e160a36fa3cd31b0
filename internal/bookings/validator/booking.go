package validator

import (
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
	"gigmarket/pkg/validation"
)

type BookingValidator struct {
	v *validation.Validator
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{v: validation.New(log)}
}

// MissingFields lists the required booking fields left empty, in request order
func (bv *BookingValidator) MissingFields(b *model.Booking) []string {
	return validation.Missing(
		validation.Required("performer_id", b.PerformerID == ""),
		validation.Required("customer_id", b.CustomerID == ""),
		validation.Required("event_date", b.EventDate.IsZero()),
		validation.Required("total_amount", b.TotalAmount == 0),
		validation.Required("title", b.Title == ""),
		validation.Required("location", b.Location == ""),
	)
}

func (bv *BookingValidator) Validate(b *model.Booking) error {
	return bv.v.Struct(b)
}

func (bv *BookingValidator) ValidateCancel(req *model.CancelRequest) error {
	return bv.v.Struct(req)
}
