// Package currency holds denomination tables and the conversion engine that
// pays exact amounts out of a ledger of coins.
//
// All amounts are expressed in reference units (weight 1). Weights and
// costs are decimals so decomposition never depends on float rounding.
package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

var (
	one = decimal.NewFromInt(1)
	ten = decimal.NewFromInt(10)
)

// maxScaleSteps bounds Scale; a decimal with more fractional digits than
// this is not a coin amount.
const maxScaleSteps = 18

type Denomination struct {
	Symbol string          `json:"symbol"`
	Weight decimal.Decimal `json:"weight"`
}

// Rates is ordered from the highest weight to the lowest.
type Rates []Denomination

func DefaultRates() Rates {
	return Rates{
		{Symbol: "pp", Weight: decimal.NewFromInt(10)},
		{Symbol: "gp", Weight: one},
		{Symbol: "sp", Weight: decimal.New(1, -1)},
		{Symbol: "cp", Weight: decimal.New(1, -2)},
	}
}

func (r Rates) Clone() Rates {
	return append(Rates(nil), r...)
}

func (r Rates) Weight(symbol string) (decimal.Decimal, bool) {
	for _, d := range r {
		if d.Symbol == symbol {
			return d.Weight, true
		}
	}
	return decimal.Zero, false
}

// Validate checks the table shape the conversion engine relies on: weights
// strictly descending and positive, and every sub-unit weight an exact
// divisor of the reference unit so change can always be paid back.
func (r Rates) Validate() error {
	if len(r) == 0 {
		return errors.New("rates: empty table")
	}
	seen := make(map[string]struct{}, len(r))
	for i, d := range r {
		if d.Symbol == "" {
			return fmt.Errorf("rates: entry %d has no symbol", i)
		}
		if _, dup := seen[d.Symbol]; dup {
			return fmt.Errorf("rates: duplicate symbol %q", d.Symbol)
		}
		seen[d.Symbol] = struct{}{}
		if !d.Weight.IsPositive() {
			return fmt.Errorf("rates: %s weight must be positive", d.Symbol)
		}
		if i > 0 && !d.Weight.LessThan(r[i-1].Weight) {
			return fmt.Errorf("rates: %s must weigh less than %s", d.Symbol, r[i-1].Symbol)
		}
		if d.Weight.LessThan(one) {
			if !one.Mod(d.Weight).IsZero() {
				return fmt.Errorf("rates: %s weight %s does not divide 1", d.Symbol, d.Weight)
			}
		} else if !d.Weight.IsInteger() {
			return fmt.Errorf("rates: %s weight %s must be whole", d.Symbol, d.Weight)
		}
	}
	return nil
}

// Value is the exact reference-unit worth of a ledger. Symbols missing from
// the table are worth nothing.
func Value(l domain.Ledger, r Rates) decimal.Decimal {
	total := decimal.Zero
	for _, d := range r {
		total = total.Add(decimal.NewFromInt(l.Get(d.Symbol)).Mul(d.Weight))
	}
	return total
}

// SpendingPower is what a ledger can pay: each denomination counts only for
// the whole reference units it covers.
func SpendingPower(l domain.Ledger, r Rates) decimal.Decimal {
	total := decimal.Zero
	for _, d := range r {
		total = total.Add(decimal.NewFromInt(l.Get(d.Symbol)).Mul(d.Weight).Floor())
	}
	return total
}

// Scale multiplies cost and a private copy of every weight by ten until cost
// is a whole number. It returns the scaled cost, the scaled table and the
// factor applied.
func Scale(cost decimal.Decimal, r Rates) (decimal.Decimal, Rates, decimal.Decimal, error) {
	scaled := r.Clone()
	factor := one
	for steps := 0; !cost.IsInteger(); steps++ {
		if steps == maxScaleSteps {
			return decimal.Zero, nil, decimal.Zero, fmt.Errorf("rates: cost %s has too many fractional digits", cost)
		}
		cost = cost.Mul(ten)
		factor = factor.Mul(ten)
		for i := range scaled {
			scaled[i].Weight = scaled[i].Weight.Mul(ten)
		}
	}
	return cost, scaled, factor, nil
}
