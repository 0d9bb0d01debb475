package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

type Summary struct {
	TotalItems    int             `json:"totalItems"`
	TotalWeight   decimal.Decimal `json:"totalWeight"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	AdjustedPrice decimal.Decimal `json:"adjustedPrice"`
}

// Summarize totals a sheet's stacks. AdjustedPrice is what the whole sheet
// sells for at saleValuePercent.
func Summarize(items []domain.Item, saleValuePercent int) Summary {
	ratio := PercentRatio(saleValuePercent)
	var s Summary
	weight := decimal.Zero
	for i := range items {
		it := &items[i]
		qty := decimal.NewFromInt(int64(it.Quantity))
		s.TotalItems += it.Quantity
		weight = weight.Add(qty.Mul(it.Weight))
		s.TotalPrice = s.TotalPrice.Add(qty.Mul(DisplayCost(it)))
		s.AdjustedPrice = s.AdjustedPrice.Add(qty.Mul(SaleValue(it, ratio)))
	}
	s.TotalWeight = weight.Ceil()
	return s
}

type ItemView struct {
	domain.Item
	DisplayName string          `json:"displayName"`
	DisplayCost decimal.Decimal `json:"displayCost"`
}

// Visible returns the stacks a viewer may see. Secret items are hidden from
// everyone but the authority; infinite stacks show a quantity of one. The
// authority always sees true names and prices.
func Visible(items []domain.Item, isAuthority bool) []ItemView {
	out := make([]ItemView, 0, len(items))
	for i := range items {
		it := items[i]
		if it.Flags.Secret && !isAuthority {
			continue
		}
		if it.Flags.Infinite {
			it.Quantity = 1
		}
		v := ItemView{Item: it, DisplayName: it.Name, DisplayCost: it.Price}
		if !isAuthority {
			v.DisplayName = DisplayName(&it)
			v.DisplayCost = DisplayCost(&it)
		}
		out = append(out, v)
	}
	return out
}
