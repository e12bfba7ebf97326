// Package pricing computes margins and derives selling prices from a margin policy.
//
// All results are rounded to two decimal places. Malformed input never produces
// an error: it yields a zero margin or no derived price.
package pricing

import (
	"math"

	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds v half away from zero to two decimal places.
func Round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// MarginPercent returns (mrp - selling) / mrp * 100.
// It returns 0 when mrp is not positive, selling is negative, or either value is
// not a finite number. A zero selling price is a 100% margin.
func MarginPercent(mrp, selling float64) float64 {
	if !finite(mrp) || !finite(selling) || mrp <= 0 || selling < 0 {
		return 0
	}
	m := decimal.NewFromFloat(mrp)
	s := decimal.NewFromFloat(selling)
	return m.Sub(s).Div(m).Mul(hundred).Round(2).InexactFloat64()
}

// DerivedSellingPrice applies policy to mrp. The second result is false when
// mrp is not a positive finite number and no price can be derived.
func DerivedSellingPrice(mrp float64, policy model.MarginPolicy) (float64, bool) {
	if !finite(mrp) || mrp <= 0 {
		return 0, false
	}
	m := decimal.NewFromFloat(mrp)

	if policy.Type == model.MarginTypeFixed {
		price := m.Sub(decimal.NewFromFloat(orZero(policy.FixedMargin)))
		if price.IsNegative() {
			price = decimal.Zero
		}
		return price.Round(2).InexactFloat64(), true
	}

	pct := decimal.NewFromFloat(orZero(policy.PercentageMargin))
	factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
	return m.Mul(factor).Round(2).InexactFloat64(), true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func orZero(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}
