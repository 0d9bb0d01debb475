package service

import (
	"context"
	"fmt"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/valuation"
	"github.com/rl1809/lootsheet/internal/port"
)

// MoveItem moves up to quantity of a stack from source to destination. A
// quantity of zero or less moves the whole stack.
func (s *LootService) MoveItem(ctx context.Context, exec ExecutionContext, sourceID, destID, itemID string, quantity int) (*domain.TransferResult, error) {
	var res *domain.TransferResult
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		if _, err := loadParty(ctx, tx, destID); err != nil {
			return err
		}
		var err error
		res, err = s.moveItem(ctx, tx, exec, sourceID, destID, itemID, quantity)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "move_item", err)
	}
	return res, nil
}

func (s *LootService) moveItem(ctx context.Context, tx port.StoreTx, exec ExecutionContext, sourceID, destID, itemID string, quantity int) (*domain.TransferResult, error) {
	if sourceID == destID {
		return nil, NewError(ErrInvalidRequest, sourceID, "cannot move an item to the party holding it", nil)
	}
	item, err := tx.GetItem(ctx, sourceID, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, NewError(ErrNotFound, sourceID, fmt.Sprintf("item %s is no longer held by %s", itemID, sourceID), nil)
	}

	if quantity <= 0 || quantity > item.Quantity {
		quantity = item.Quantity
	}

	moved := item.Clone()
	moved.ID = s.newID()
	moved.Flags = domain.ItemFlags{}
	moved.Quantity = quantity

	if !item.Flags.Infinite {
		item.Quantity -= quantity
		if item.Quantity == 0 && exec.Settings.RemoveEmptyStacks {
			err = tx.DeleteItem(ctx, sourceID, itemID)
		} else {
			err = tx.UpsertItem(ctx, sourceID, *item)
		}
		if err != nil {
			return nil, fmt.Errorf("update source stack: %w", err)
		}
	}

	if err := tx.UpsertItem(ctx, destID, moved); err != nil {
		return nil, fmt.Errorf("insert moved stack: %w", err)
	}

	return &domain.TransferResult{
		Item:        moved,
		DisplayName: valuation.DisplayName(&moved),
		DisplayCost: valuation.DisplayCost(&moved),
		Quantity:    quantity,
	}, nil
}

// MoveCoins moves up to quantity coins of one denomination. coinID selects
// the ledger: "gp" is primary, "wl_gp" alternate. Nothing moves, and nil is
// returned, when the clamped amount is zero.
func (s *LootService) MoveCoins(ctx context.Context, exec ExecutionContext, sourceID, destID, coinID string, quantity int64) (*domain.TransferResult, error) {
	var res *domain.TransferResult
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		var err error
		res, err = s.moveCoins(ctx, tx, sourceID, destID, coinID, quantity)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "move_coins", err)
	}
	return res, nil
}

func (s *LootService) moveCoins(ctx context.Context, tx port.StoreTx, sourceID, destID, coinID string, quantity int64) (*domain.TransferResult, error) {
	if sourceID == destID {
		return nil, NewError(ErrInvalidRequest, sourceID, "cannot move coins to the party holding them", nil)
	}
	source, err := loadParty(ctx, tx, sourceID)
	if err != nil {
		return nil, err
	}
	dest, err := loadParty(ctx, tx, destID)
	if err != nil {
		return nil, err
	}

	name, symbol := domain.ParseCoinID(coinID)
	srcLedger := source.Ledger(name).Clone()
	if held := srcLedger.Get(symbol); quantity > held {
		quantity = held
	}
	if quantity <= 0 {
		return nil, nil
	}
	dstLedger := dest.Ledger(name).Clone()
	srcLedger[symbol] -= quantity
	dstLedger[symbol] += quantity

	if err := tx.UpdateLedger(ctx, sourceID, ledgerPatch(name, srcLedger)); err != nil {
		return nil, fmt.Errorf("debit %s: %w", sourceID, err)
	}
	if err := tx.UpdateLedger(ctx, destID, ledgerPatch(name, dstLedger)); err != nil {
		return nil, fmt.Errorf("credit %s: %w", destID, err)
	}
	return &domain.TransferResult{Coin: coinID, Quantity: int(quantity)}, nil
}

func ledgerPatch(name domain.LedgerName, l domain.Ledger) domain.LedgerPatch {
	if name == domain.LedgerAlt {
		return domain.LedgerPatch{AltCurrency: l}
	}
	return domain.LedgerPatch{Currency: l}
}
