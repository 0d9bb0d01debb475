package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

// ErrConversion is matched by every ConversionError.
var ErrConversion = errors.New("currency conversion failed")

// ConversionError reports an amount the engine could not take out of (or
// hand back to) a ledger. The attempted ledger is discarded.
type ConversionError struct {
	Cost      decimal.Decimal
	Unpaid    decimal.Decimal
	ChangeDue decimal.Decimal
}

func (e *ConversionError) Error() string {
	if e.Unpaid.IsPositive() {
		return fmt.Sprintf("currency conversion failed: %s of %s left unpaid", e.Unpaid, e.Cost)
	}
	return fmt.Sprintf("currency conversion failed: %s change could not be returned", e.ChangeDue)
}

func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// RemoveCost takes exactly cost reference units out of a copy of funds and
// returns the copy. funds is never modified.
//
// Coins are spent from the lowest weight up. A coin worth more than what is
// still owed is spent whole and the difference is handed back as change,
// from the highest weight down. Either step failing to balance exactly is a
// ConversionError.
func RemoveCost(funds domain.Ledger, cost decimal.Decimal, rates Rates) (domain.Ledger, error) {
	if cost.IsNegative() {
		return nil, fmt.Errorf("currency: negative cost %s", cost)
	}
	original := cost
	cost, rates, factor, err := Scale(cost, rates)
	if err != nil {
		return nil, err
	}

	out := funds.Clone()
	remaining := cost
	change := decimal.Zero

	for i := len(rates) - 1; i >= 0 && remaining.IsPositive(); i-- {
		d := rates[i]
		held := decimal.NewFromInt(out.Get(d.Symbol))
		if !held.IsPositive() {
			continue
		}
		if d.Weight.LessThan(one) {
			ratio := one.Div(d.Weight)
			value := decimal.Min(remaining, held.Div(ratio).Floor())
			remaining = remaining.Sub(value)
			out[d.Symbol] -= value.Mul(ratio).IntPart()
			continue
		}
		value := decimal.Min(remaining, held.Mul(d.Weight).Floor())
		if !value.IsPositive() {
			continue
		}
		remaining = remaining.Sub(value)
		lost := value.Div(d.Weight).Ceil()
		out[d.Symbol] -= lost.IntPart()
		change = change.Add(lost.Mul(d.Weight).Sub(value))
	}

	if remaining.IsPositive() {
		return nil, &ConversionError{Cost: original, Unpaid: remaining.Div(factor)}
	}

	owed, err := giveChange(out, change, rates)
	if err != nil {
		return nil, err
	}
	if owed.IsPositive() {
		return nil, &ConversionError{Cost: original, ChangeDue: owed.Div(factor)}
	}
	return out, nil
}

// giveChange credits amount into l from the highest weight down and returns
// what could not be represented.
func giveChange(l domain.Ledger, amount decimal.Decimal, rates Rates) (decimal.Decimal, error) {
	for _, d := range rates {
		if !amount.IsPositive() {
			break
		}
		if d.Weight.GreaterThan(amount) {
			continue
		}
		coins := amount.Div(d.Weight).Floor()
		if !coins.IsInteger() {
			return decimal.Zero, fmt.Errorf("currency: %s coins for %s", coins, d.Symbol)
		}
		l[d.Symbol] += coins.IntPart()
		amount = amount.Mod(d.Weight)
	}
	return amount, nil
}

// Spread credits amount into a copy of funds, largest denomination first.
// Whatever is worth less than the smallest coin is returned as remainder and
// not credited.
func Spread(amount decimal.Decimal, funds domain.Ledger, rates Rates) (domain.Ledger, decimal.Decimal, error) {
	if amount.IsNegative() {
		return nil, decimal.Zero, fmt.Errorf("currency: negative amount %s", amount)
	}
	out := funds.Clone()
	remainder, err := giveChange(out, amount, rates)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return out, remainder, nil
}
