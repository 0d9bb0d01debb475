package domain

import "github.com/shopspring/decimal"

type SheetType string

const (
	SheetTypeLoot     SheetType = "loot"
	SheetTypeMerchant SheetType = "merchant"
)

const DefaultSaleValuePercent = 50

type PartyFlags struct {
	SheetType        SheetType       `json:"sheetType,omitempty"`
	PriceModifier    decimal.Decimal `json:"priceModifier"`
	SaleValuePercent int             `json:"saleValuePercent,omitempty"`
}

type Party struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Currency    Ledger     `json:"currency"`
	AltCurrency Ledger     `json:"altCurrency"`
	Inventory   []Item     `json:"inventory"`
	Flags       PartyFlags `json:"flags"`
	// Owners are the actor ids that share the sheet's coins.
	Owners []string `json:"owners,omitempty"`
}

func (p *Party) Item(itemID string) (Item, bool) {
	for _, it := range p.Inventory {
		if it.ID == itemID {
			return it, true
		}
	}
	return Item{}, false
}

func (p *Party) Ledger(name LedgerName) Ledger {
	if name == LedgerAlt {
		return p.AltCurrency
	}
	return p.Currency
}

func (p *Party) IsMerchant() bool {
	return p.Flags.SheetType == SheetTypeMerchant
}

// PriceModifier is the multiplier applied when this party sells; unset means 1.
func (p *Party) PriceModifier() decimal.Decimal {
	if p.Flags.PriceModifier.IsZero() {
		return decimal.NewFromInt(1)
	}
	return p.Flags.PriceModifier
}

func (p *Party) SaleValuePercent() int {
	switch {
	case p.Flags.SaleValuePercent < 0:
		return 0
	case p.Flags.SaleValuePercent == 0:
		return DefaultSaleValuePercent
	default:
		return p.Flags.SaleValuePercent
	}
}

func (p Party) Clone() Party {
	out := p
	out.Currency = p.Currency.Clone()
	out.AltCurrency = p.AltCurrency.Clone()
	out.Inventory = make([]Item, len(p.Inventory))
	for i, it := range p.Inventory {
		out.Inventory[i] = it.Clone()
	}
	out.Owners = append([]string(nil), p.Owners...)
	return out
}
