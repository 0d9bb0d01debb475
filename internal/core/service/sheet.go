package service

import (
	"context"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/valuation"
)

// SheetView is what a viewer sees when opening a party's sheet.
type SheetView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	SheetType   domain.SheetType     `json:"sheetType,omitempty"`
	Currency    domain.Ledger        `json:"currency"`
	AltCurrency domain.Ledger        `json:"altCurrency"`
	Items       []valuation.ItemView `json:"items"`
	Summary     valuation.Summary    `json:"summary"`
}

// Sheet reads a party's sheet for a viewer. Only the authority sees secret
// stacks and true names.
func (s *LootService) Sheet(ctx context.Context, partyID string, isAuthority bool) (*SheetView, error) {
	p, err := loadParty(ctx, s.store, partyID)
	if err != nil {
		return nil, err
	}
	views := valuation.Visible(p.Inventory, isAuthority)
	shown := make([]domain.Item, len(views))
	for i, v := range views {
		shown[i] = v.Item
	}
	return &SheetView{
		ID:          p.ID,
		Name:        p.Name,
		SheetType:   p.Flags.SheetType,
		Currency:    p.Currency,
		AltCurrency: p.AltCurrency,
		Items:       views,
		Summary:     valuation.Summarize(shown, p.SaleValuePercent()),
	}, nil
}
