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

// DropOrSell moves a giver's whole stack into a container. Merchants pay for
// it at half price (full price for trade goods), credited to the giver's
// primary ledger; any other container takes it as a donation.
func (s *LootService) DropOrSell(ctx context.Context, exec ExecutionContext, containerID, giverID, itemID string) (*Receipt, error) {
	var (
		receipt   *Receipt
		container *domain.Party
		giver     *domain.Party
	)
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		var err error
		if container, err = loadParty(ctx, tx, containerID); err != nil {
			return err
		}
		if giver, err = loadParty(ctx, tx, giverID); err != nil {
			return err
		}
		moved, err := s.moveItem(ctx, tx, exec, giverID, containerID, itemID, 0)
		if err != nil {
			return err
		}
		receipt = &Receipt{TransferResult: *moved, Cost: decimal.Zero}
		if !container.IsMerchant() {
			return nil
		}

		receipt.Cost = valuation.SellPrice(&moved.Item).Mul(decimal.NewFromInt(int64(moved.Quantity)))
		if !receipt.Cost.IsPositive() {
			return nil
		}
		funds, remainder, err := currency.Spread(receipt.Cost, giver.Currency, exec.Settings.rates())
		if err != nil {
			return NewError(ErrConversionFailure, giverID, "could not pay out sale proceeds", err)
		}
		if remainder.IsPositive() {
			s.logger.Debug("sale remainder dropped", zap.String("giver", giverID), zap.String("remainder", remainder.String()))
		}
		if err := tx.UpdateLedger(ctx, giverID, domain.LedgerPatch{Currency: funds}); err != nil {
			return fmt.Errorf("credit seller funds: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "drop_or_sell", err)
	}

	var msg string
	if container.IsMerchant() {
		msg = fmt.Sprintf("%s sold %d x %s to %s for %s gp", giver.Name, receipt.Quantity, receipt.DisplayName, container.Name, receipt.Cost.String())
	} else {
		msg = fmt.Sprintf("%s dropped %d x %s into %s", giver.Name, receipt.Quantity, receipt.DisplayName, container.Name)
	}
	s.logger.Info("drop applied", zap.String("container", containerID), zap.String("giver", giverID),
		zap.String("item", itemID), zap.Bool("sold", container.IsMerchant()))
	s.chat(ctx, exec, giverID, msg, &receipt.TransferResult)
	return receipt, nil
}

type ConversionResult struct {
	ItemsSold int             `json:"itemsSold"`
	Proceeds  decimal.Decimal `json:"proceeds"`
	Remainder decimal.Decimal `json:"remainder"`
}

// ConvertLoot sells everything in a container at its sale value and keeps
// the coins in the container's primary ledger. The items are removed.
func (s *LootService) ConvertLoot(ctx context.Context, exec ExecutionContext, containerID string) (*ConversionResult, error) {
	var res *ConversionResult
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		container, err := loadParty(ctx, tx, containerID)
		if err != nil {
			return err
		}
		summary := valuation.Summarize(container.Inventory, container.SaleValuePercent())
		funds, remainder, err := currency.Spread(summary.AdjustedPrice, container.Currency, exec.Settings.rates())
		if err != nil {
			return NewError(ErrConversionFailure, containerID, "could not convert loot to coins", err)
		}
		if err := tx.UpdateLedger(ctx, containerID, domain.LedgerPatch{Currency: funds}); err != nil {
			return fmt.Errorf("credit container funds: %w", err)
		}
		for _, it := range container.Inventory {
			if err := tx.DeleteItem(ctx, containerID, it.ID); err != nil {
				return fmt.Errorf("delete %s: %w", it.ID, err)
			}
		}
		res = &ConversionResult{
			ItemsSold: len(container.Inventory),
			Proceeds:  summary.AdjustedPrice,
			Remainder: remainder,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "convert_loot", err)
	}
	s.logger.Info("loot converted", zap.String("container", containerID),
		zap.Int("items", res.ItemsSold), zap.String("proceeds", res.Proceeds.String()))
	return res, nil
}
