package validator

import (
	"testing"

	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
	"gigmarket/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPerformer() *model.Performer {
	return &model.Performer{
		AccountID:         "acc-1",
		DisplayName:       "The Jazz Trio",
		HourlyRate:        100,
		DepositPercentage: 25,
		Tier:              model.TierFree,
		Status:            model.PerformerPending,
	}
}

func TestPerformerValidator_Validate(t *testing.T) {
	v := NewPerformerValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(p *model.Performer)
		wantField string
	}{
		{"valid", func(p *model.Performer) {}, ""},
		{"deposit too low", func(p *model.Performer) { p.DepositPercentage = 5 }, "deposit_percentage"},
		{"deposit too high", func(p *model.Performer) { p.DepositPercentage = 101 }, "deposit_percentage"},
		{"negative rate", func(p *model.Performer) { p.HourlyRate = -1 }, "hourly_rate"},
		{"short name", func(p *model.Performer) { p.DisplayName = "A" }, "display_name"},
		{"unknown tier", func(p *model.Performer) { p.Tier = "gold" }, "tier"},
		{"rating out of range", func(p *model.Performer) { p.Rating = 6 }, "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPerformer()
			tt.mutate(p)
			err := v.Validate(p)
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

func TestPerformerValidator_MissingFields(t *testing.T) {
	v := NewPerformerValidator(logger.Discard())

	assert.Empty(t, v.MissingFields(validPerformer()))
	assert.Equal(t,
		[]string{"display_name", "hourly_rate", "deposit_percentage"},
		v.MissingFields(&model.Performer{AccountID: "acc-1"}),
	)
}

func TestPerformerValidator_ValidateUpdate(t *testing.T) {
	v := NewPerformerValidator(logger.Discard())
	pct := 5
	assert.Error(t, v.ValidateUpdate(&model.PerformerUpdate{DepositPercentage: &pct}))
	assert.NoError(t, v.ValidateUpdate(&model.PerformerUpdate{DisplayName: "New Name"}))
}
