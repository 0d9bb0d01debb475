package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/currency"
	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/valuation"
	"github.com/rl1809/lootsheet/internal/port"
)

// Purchase sells up to quantity of a seller's stack to the buyer. The buyer
// pays from the primary ledger first and covers any shortfall from the
// alternate one. Funds, both ledgers and both inventories change together or
// not at all.
func (s *LootService) Purchase(ctx context.Context, exec ExecutionContext, sellerID, buyerID, itemID string, quantity int) (*Receipt, error) {
	var (
		receipt *Receipt
		buyer   *domain.Party
	)
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		seller, err := loadParty(ctx, tx, sellerID)
		if err != nil {
			return err
		}
		buyer, err = loadParty(ctx, tx, buyerID)
		if err != nil {
			return err
		}
		item, ok := seller.Item(itemID)
		if !ok {
			return NewError(ErrNotFound, buyerID, fmt.Sprintf("item %s is not for sale by %s", itemID, seller.Name), nil)
		}
		if item.Quantity <= 0 {
			return NewError(ErrNotFound, buyerID, fmt.Sprintf("%s is sold out", valuation.DisplayName(&item)), nil)
		}
		if quantity <= 0 || quantity > item.Quantity {
			quantity = item.Quantity
		}

		rates := exec.Settings.rates()
		cost := valuation.DisplayCost(&item).
			Mul(seller.PriceModifier()).
			Mul(decimal.NewFromInt(int64(quantity)))

		patch, err := payFrom(buyer, cost, rates)
		if err != nil {
			return err
		}
		if !patch.Empty() {
			if err := tx.UpdateLedger(ctx, buyerID, patch); err != nil {
				return fmt.Errorf("commit buyer funds: %w", err)
			}
		}

		moved, err := s.moveItem(ctx, tx, exec, sellerID, buyerID, itemID, quantity)
		if err != nil {
			return err
		}
		receipt = &Receipt{TransferResult: *moved, Cost: cost}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "purchase", attributeTo(err, buyerID))
	}

	s.logger.Info("purchase applied",
		zap.String("seller", sellerID),
		zap.String("buyer", buyerID),
		zap.String("item", itemID),
		zap.Int("quantity", receipt.Quantity),
		zap.String("cost", receipt.Cost.String()),
	)
	s.chat(ctx, exec, buyerID,
		fmt.Sprintf("%s bought %d x %s for %s gp", buyer.Name, receipt.Quantity, receipt.DisplayName, receipt.Cost.String()),
		&receipt.TransferResult)
	return receipt, nil
}

// payFrom works out the buyer's ledgers after paying cost. It never touches
// the buyer; the caller commits the returned patch.
func payFrom(buyer *domain.Party, cost decimal.Decimal, rates currency.Rates) (domain.LedgerPatch, error) {
	var patch domain.LedgerPatch
	if !cost.IsPositive() {
		return patch, nil
	}

	primary := currency.SpendingPower(buyer.Currency, rates)
	alt := currency.SpendingPower(buyer.AltCurrency, rates)
	if cost.GreaterThan(primary.Add(alt)) {
		return patch, NewError(ErrInsufficientFunds, buyer.ID,
			fmt.Sprintf("%s cannot afford %s gp (has %s gp)", buyer.Name, cost.String(), primary.Add(alt).String()), nil)
	}

	fromPrimary := decimal.Min(cost, primary)
	var err error
	if patch.Currency, err = currency.RemoveCost(buyer.Currency, fromPrimary, rates); err != nil {
		return patch, NewError(ErrConversionFailure, buyer.ID, "could not pay from currency", err)
	}
	if rest := cost.Sub(fromPrimary); rest.IsPositive() {
		if patch.AltCurrency, err = currency.RemoveCost(buyer.AltCurrency, rest, rates); err != nil {
			return patch, NewError(ErrConversionFailure, buyer.ID, "could not pay from weightless currency", err)
		}
	}
	return patch, nil
}
