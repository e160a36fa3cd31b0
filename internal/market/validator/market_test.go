package validator

import (
	"strings"
	"testing"
	"time"

	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
	"gigmarket/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingEventFields(t *testing.T) {
	mv := NewMarketValidator(logger.Discard())

	assert.Equal(t, []string{"customer_id", "title", "description", "event_date"}, mv.MissingEventFields(&model.MarketEvent{}))
	assert.Empty(t, mv.MissingEventFields(&model.MarketEvent{
		CustomerID:  "cust-1",
		Title:       "Corporate mixer",
		Description: "Jazz trio for two hours",
		EventDate:   time.Now().AddDate(0, 2, 0),
	}))
}

func TestValidateEvent(t *testing.T) {
	mv := NewMarketValidator(logger.Discard())
	e := &model.MarketEvent{
		CustomerID:  "cust-1",
		Title:       "Corporate mixer",
		Description: strings.Repeat("d", 5001),
		EventDate:   time.Now().AddDate(0, 2, 0),
		BudgetMin:   -1,
	}

	var verrs validation.ValidationErrors
	require.ErrorAs(t, mv.ValidateEvent(e), &verrs)
	assert.ElementsMatch(t, []string{"description", "budget_min"}, verrs.Fields())
}

func TestBidFields(t *testing.T) {
	mv := NewMarketValidator(logger.Discard())

	assert.Equal(t, []string{"performer_id", "bid_amount"}, mv.MissingBidFields(&model.Bid{}))

	bid := &model.Bid{
		EventID:     "65a1b2c3d4e5f60718293a4b",
		PerformerID: "65a1b2c3d4e5f60718293a4c",
		BidAmount:   -20,
	}
	var verrs validation.ValidationErrors
	require.ErrorAs(t, mv.ValidateBid(bid), &verrs)
	assert.Equal(t, []string{"bid_amount"}, verrs.Fields())

	bid.BidAmount = 750
	assert.NoError(t, mv.ValidateBid(bid))
}
