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

func validBooking() *model.Booking {
	return &model.Booking{
		PerformerID: "65a1b2c3d4e5f60718293a4b",
		CustomerID:  "cust-1",
		Title:       "Wedding reception",
		Location:    "Harbour Hall",
		EventDate:   time.Now().AddDate(0, 1, 0),
		EventTime:   "19:30",
		TotalAmount: 400,
	}
}

func TestMissingFields(t *testing.T) {
	bv := NewBookingValidator(logger.Discard())

	assert.Empty(t, bv.MissingFields(validBooking()))
	assert.Equal(t,
		[]string{"performer_id", "customer_id", "event_date", "total_amount", "title", "location"},
		bv.MissingFields(&model.Booking{}),
	)

	b := validBooking()
	b.Location = ""
	b.TotalAmount = 0
	assert.Equal(t, []string{"total_amount", "location"}, bv.MissingFields(b))
}

func TestValidate(t *testing.T) {
	bv := NewBookingValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(b *model.Booking)
		wantField string
	}{
		{name: "valid", mutate: func(b *model.Booking) {}},
		{name: "bad performer id", mutate: func(b *model.Booking) { b.PerformerID = "nope" }, wantField: "performer_id"},
		{name: "negative total", mutate: func(b *model.Booking) { b.TotalAmount = -5 }, wantField: "total_amount"},
		{name: "bad time", mutate: func(b *model.Booking) { b.EventTime = "7pm" }, wantField: "event_time"},
		{name: "short title", mutate: func(b *model.Booking) { b.Title = "x" }, wantField: "title"},
		{name: "bad source", mutate: func(b *model.Booking) { b.Source = "walk-in" }, wantField: "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(b)
			err := bv.Validate(b)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validation.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Fields(), tt.wantField)
		})
	}
}

func TestValidateCancel(t *testing.T) {
	bv := NewBookingValidator(logger.Discard())

	assert.NoError(t, bv.ValidateCancel(&model.CancelRequest{Reason: "venue closed"}))
	assert.Error(t, bv.ValidateCancel(&model.CancelRequest{Reason: strings.Repeat("x", 501)}))
}
