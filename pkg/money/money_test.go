package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name           string
		total          float64
		rate           float64
		deposit        int
		wantCommission float64
		wantPayout     float64
		wantDeposit    float64
	}{
		{"free tier 400 at 25 percent deposit", 400, 15, 25, 60, 340, 100},
		{"pro tier", 1000, 10, 50, 100, 900, 500},
		{"featured tier", 250, 8, 10, 20, 230, 25},
		{"odd cents", 333.33, 15, 33, 50, 283.33, 110},
		{"full deposit", 99.99, 15, 100, 15, 84.99, 99.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.total, tt.rate, tt.deposit)
			assert.Equal(t, tt.wantCommission, s.Commission)
			assert.Equal(t, tt.wantPayout, s.Payout)
			assert.Equal(t, tt.wantDeposit, s.Deposit)
			assert.True(t, Balanced(s.Total, s.Commission, s.Payout))
		})
	}
}

func TestComputeAlwaysBalanced(t *testing.T) {
	for cents := 1; cents < 50000; cents += 37 {
		total := float64(cents) / 100
		for _, rate := range []float64{8, 10, 15} {
			s := Compute(total, rate, 25)
			if !Balanced(total, s.Commission, s.Payout) {
				t.Fatalf("total %.2f rate %.0f: %.2f + %.2f does not balance", total, rate, s.Commission, s.Payout)
			}
		}
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 10.13, Round(10.125))
	assert.Equal(t, 10.12, Round(10.1249))
	assert.Equal(t, 0.0, Round(0))
}
