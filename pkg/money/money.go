// Package money holds the booking amount arithmetic. Amounts are carried as
// float64 in storage and computed in decimal so splits stay exact to the cent.
package money

import "github.com/shopspring/decimal"

const places = 2

// Split is the breakdown of a booking total.
type Split struct {
	Total      float64
	Rate       float64
	Commission float64
	Payout     float64
	Deposit    float64
}

// Compute splits total by a commission rate in percent and a deposit
// percentage. Payout is derived from the rounded commission so that
// Commission + Payout always equals the rounded Total.
func Compute(total, commissionRatePercent float64, depositPercent int) Split {
	t := decimal.NewFromFloat(total).Round(places)
	rate := decimal.NewFromFloat(commissionRatePercent).Div(decimal.NewFromInt(100))

	commission := t.Mul(rate).Round(places)
	payout := t.Sub(commission)
	deposit := t.Mul(decimal.NewFromInt(int64(depositPercent))).Div(decimal.NewFromInt(100)).Round(places)

	return Split{
		Total:      t.InexactFloat64(),
		Rate:       commissionRatePercent,
		Commission: commission.InexactFloat64(),
		Payout:     payout.InexactFloat64(),
		Deposit:    deposit.InexactFloat64(),
	}
}

// Round rounds an amount to cents.
func Round(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(places).InexactFloat64()
}

// Balanced reports whether commission and payout add up to total at cent precision.
func Balanced(total, commission, payout float64) bool {
	sum := decimal.NewFromFloat(commission).Add(decimal.NewFromFloat(payout)).Round(places)
	return sum.Equal(decimal.NewFromFloat(total).Round(places))
}
