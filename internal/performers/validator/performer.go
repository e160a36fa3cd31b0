package validator

import (
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
	"gigmarket/pkg/validation"
)

type PerformerValidator struct {
	v *validation.Validator
}

func NewPerformerValidator(log *logger.Logger) *PerformerValidator {
	return &PerformerValidator{v: validation.New(log)}
}

// MissingFields lists the required registration fields left empty
func (pv *PerformerValidator) MissingFields(p *model.Performer) []string {
	return validation.Missing(
		validation.Required("account_id", p.AccountID == ""),
		validation.Required("display_name", p.DisplayName == ""),
		validation.Required("hourly_rate", p.HourlyRate == 0),
		validation.Required("deposit_percentage", p.DepositPercentage == 0),
	)
}

func (pv *PerformerValidator) Validate(p *model.Performer) error {
	return pv.v.Struct(p)
}

func (pv *PerformerValidator) ValidateUpdate(u *model.PerformerUpdate) error {
	return pv.v.Struct(u)
}
