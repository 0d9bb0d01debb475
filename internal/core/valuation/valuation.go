// Package valuation computes what players see for an item and what it sells for.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

// DisplayName returns the unidentified name when the item is not identified
// and a non-empty override exists.
func DisplayName(item *domain.Item) string {
	if item == nil {
		return ""
	}
	if !item.Identified && item.UnidentifiedName != "" {
		return item.UnidentifiedName
	}
	return item.Name
}

// DisplayCost returns the unidentified price when the item is not identified
// and an override exists, the base price otherwise.
func DisplayCost(item *domain.Item) decimal.Decimal {
	if item == nil {
		return decimal.Zero
	}
	if item.Identified || item.UnidentifiedPrice == nil {
		return item.Price
	}
	return *item.UnidentifiedPrice
}

// SaleValue is the unit value an item fetches when sold at ratio (0.5 for
// half price). Trade goods ignore the ratio. Containers add the sale value
// of everything inside them.
func SaleValue(item *domain.Item, ratio decimal.Decimal) decimal.Decimal {
	if item == nil {
		return decimal.Zero
	}
	switch item.Kind {
	case domain.ItemKindContainer:
		total := DisplayCost(item).Mul(ratio)
		for i := range item.Contents {
			total = total.Add(SaleValue(&item.Contents[i], ratio))
		}
		return total
	case domain.ItemKindWeapon, domain.ItemKindEquipment, domain.ItemKindConsumable,
		domain.ItemKindTool, domain.ItemKindLoot:
		if item.SubKind == domain.SubKindTradeGoods {
			return DisplayCost(item)
		}
		return DisplayCost(item).Mul(ratio)
	}
	return decimal.Zero
}

// SellPrice is what a merchant pays per unit when an item is dropped on it:
// half the display cost, full cost for trade goods.
func SellPrice(item *domain.Item) decimal.Decimal {
	cost := DisplayCost(item)
	if item != nil && item.SubKind == domain.SubKindTradeGoods {
		return cost
	}
	return cost.Div(decimal.NewFromInt(2))
}

// PercentRatio turns a whole percentage into a ratio.
func PercentRatio(percent int) decimal.Decimal {
	return decimal.New(int64(percent), -2)
}
