package domain

import "github.com/shopspring/decimal"

type ItemKind string

const (
	ItemKindWeapon     ItemKind = "weapon"
	ItemKindEquipment  ItemKind = "equipment"
	ItemKindConsumable ItemKind = "consumable"
	ItemKindTool       ItemKind = "tool"
	ItemKindLoot       ItemKind = "loot"
	ItemKindContainer  ItemKind = "container"
)

// SubKindTradeGoods items sell at full price.
const SubKindTradeGoods = "tradeGoods"

// ItemFlags are the sheet-private markers an item carries while it sits in a
// loot sheet. They are stripped when the item moves to another party.
type ItemFlags struct {
	Infinite bool `json:"infinite,omitempty"`
	Secret   bool `json:"secret,omitempty"`
}

type Item struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Kind              ItemKind         `json:"kind"`
	SubKind           string           `json:"subKind,omitempty"`
	Quantity          int              `json:"quantity"`
	Weight            decimal.Decimal  `json:"weight"`
	Price             decimal.Decimal  `json:"price"`
	Identified        bool             `json:"identified"`
	UnidentifiedName  string           `json:"unidentifiedName,omitempty"`
	UnidentifiedPrice *decimal.Decimal `json:"unidentifiedPrice,omitempty"`
	Flags             ItemFlags        `json:"flags"`
	Contents          []Item           `json:"contents,omitempty"`
}

// Clone returns a deep copy of the item, contents included.
func (i Item) Clone() Item {
	out := i
	if i.UnidentifiedPrice != nil {
		p := *i.UnidentifiedPrice
		out.UnidentifiedPrice = &p
	}
	if i.Contents != nil {
		out.Contents = make([]Item, len(i.Contents))
		for k, c := range i.Contents {
			out.Contents[k] = c.Clone()
		}
	}
	return out
}

type TransferResult struct {
	Item        Item            `json:"item"`
	DisplayName string          `json:"displayName"`
	DisplayCost decimal.Decimal `json:"displayCost"`
	Quantity    int             `json:"quantity"`
	// Coin is set instead of Item for coin moves.
	Coin string `json:"coin,omitempty"`
}
