package validator

import (
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
	"gigmarket/pkg/validation"
)

type MarketValidator struct {
	v *validation.Validator
}

func NewMarketValidator(log *logger.Logger) *MarketValidator {
	return &MarketValidator{v: validation.New(log)}
}

func (mv *MarketValidator) MissingEventFields(e *model.MarketEvent) []string {
	return validation.Missing(
		validation.Required("customer_id", e.CustomerID == ""),
		validation.Required("title", e.Title == ""),
		validation.Required("description", e.Description == ""),
		validation.Required("event_date", e.EventDate.IsZero()),
	)
}

func (mv *MarketValidator) ValidateEvent(e *model.MarketEvent) error {
	return mv.v.Struct(e)
}

func (mv *MarketValidator) MissingBidFields(b *model.Bid) []string {
	return validation.Missing(
		validation.Required("performer_id", b.PerformerID == ""),
		validation.Required("bid_amount", b.BidAmount == 0),
	)
}

func (mv *MarketValidator) ValidateBid(b *model.Bid) error {
	return mv.v.Struct(b)
}
