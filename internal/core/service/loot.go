package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/port"
)

// Loot lets a looter take items or coins out of a container. Coin ids (see
// domain.IsCoinID) move coins; anything else moves an item stack. A
// quantity of zero or less takes everything. A nil result means nothing was
// there to take.
func (s *LootService) Loot(ctx context.Context, exec ExecutionContext, containerID, looterID, itemID string, quantity int) (*domain.TransferResult, error) {
	var (
		res    *domain.TransferResult
		looter *domain.Party
	)
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		var err error
		if looter, err = loadParty(ctx, tx, looterID); err != nil {
			return err
		}
		if domain.IsCoinID(itemID) {
			n := int64(quantity)
			if n <= 0 {
				n = math.MaxInt64 // the whole pile
			}
			res, err = s.moveCoins(ctx, tx, containerID, looterID, itemID, n)
			return err
		}
		res, err = s.moveItem(ctx, tx, exec, containerID, looterID, itemID, quantity)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "loot", attributeTo(err, looterID))
	}
	if res == nil {
		return nil, nil
	}

	s.logger.Info("loot applied", zap.String("container", containerID), zap.String("looter", looterID),
		zap.String("item", itemID), zap.Int("quantity", res.Quantity))
	if res.Coin != "" {
		s.chat(ctx, exec, looterID, fmt.Sprintf("%s looted %d %s", looter.Name, res.Quantity, res.Coin), res)
	} else {
		s.chat(ctx, exec, looterID, fmt.Sprintf("%s looted %d x %s", looter.Name, res.Quantity, res.DisplayName), res)
	}
	return res, nil
}

// Give hands part of a stack from one actor to another. A non-positive
// quantity does nothing.
func (s *LootService) Give(ctx context.Context, exec ExecutionContext, giverID, receiverID, itemID string, quantity int) (*domain.TransferResult, error) {
	if quantity <= 0 {
		return nil, nil
	}
	var (
		res             *domain.TransferResult
		giver, receiver *domain.Party
	)
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		var err error
		if giver, err = loadParty(ctx, tx, giverID); err != nil {
			return err
		}
		if receiver, err = loadParty(ctx, tx, receiverID); err != nil {
			return err
		}
		res, err = s.moveItem(ctx, tx, exec, giverID, receiverID, itemID, quantity)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "give", err)
	}
	s.chat(ctx, exec, receiverID,
		fmt.Sprintf("%s gave %d x %s to %s", giver.Name, res.Quantity, res.DisplayName, receiver.Name), res)
	return res, nil
}

type Share struct {
	PartyID     string        `json:"partyId"`
	Currency    domain.Ledger `json:"currency"`
	AltCurrency domain.Ledger `json:"altCurrency"`
}

// DistributeCoins splits a container's coins evenly between its owners.
// Each denomination is divided separately; what does not divide stays in the
// container.
func (s *LootService) DistributeCoins(ctx context.Context, exec ExecutionContext, containerID string) ([]Share, error) {
	var (
		shares []Share
		names  = map[string]string{}
	)
	err := s.store.InTx(ctx, func(tx port.StoreTx) error {
		container, err := loadParty(ctx, tx, containerID)
		if err != nil {
			return err
		}
		var owners []*domain.Party
		seen := map[string]bool{}
		for _, id := range container.Owners {
			if seen[id] {
				continue
			}
			seen[id] = true
			p, err := tx.GetParty(ctx, id)
			if err != nil {
				return fmt.Errorf("get owner %s: %w", id, err)
			}
			if p != nil && p.ID != containerID {
				owners = append(owners, p)
			}
		}
		if len(owners) == 0 {
			return nil
		}

		split, keep := splitLedger(container.Currency, len(owners))
		altSplit, altKeep := splitLedger(container.AltCurrency, len(owners))

		for _, owner := range owners {
			cur := owner.Currency.Clone()
			alt := owner.AltCurrency.Clone()
			for sym, n := range split {
				cur[sym] += n
			}
			for sym, n := range altSplit {
				alt[sym] += n
			}
			if err := tx.UpdateLedger(ctx, owner.ID, domain.LedgerPatch{Currency: cur, AltCurrency: alt}); err != nil {
				return fmt.Errorf("credit owner %s: %w", owner.ID, err)
			}
			names[owner.ID] = owner.Name
			shares = append(shares, Share{PartyID: owner.ID, Currency: split.Clone(), AltCurrency: altSplit.Clone()})
		}
		if err := tx.UpdateLedger(ctx, containerID, domain.LedgerPatch{Currency: keep, AltCurrency: altKeep}); err != nil {
			return fmt.Errorf("debit container: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "distribute_coins", err)
	}

	for _, sh := range shares {
		if msg := describeShare(sh); msg != "" {
			s.chat(ctx, exec, sh.PartyID, fmt.Sprintf("%s receives: %s", names[sh.PartyID], msg), nil)
		}
	}
	return shares, nil
}

func splitLedger(l domain.Ledger, n int) (split, keep domain.Ledger) {
	split = domain.Ledger{}
	keep = domain.Ledger{}
	for sym, count := range l {
		each := count / int64(n)
		split[sym] = each
		keep[sym] = count - each*int64(n)
	}
	return split, keep
}

func describeShare(sh Share) string {
	var parts []string
	for _, sym := range sortedSymbols(sh.Currency) {
		if n := sh.Currency[sym]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sym))
		}
	}
	for _, sym := range sortedSymbols(sh.AltCurrency) {
		if n := sh.AltCurrency[sym]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s%s", n, domain.AltCoinPrefix, sym))
		}
	}
	return strings.Join(parts, ", ")
}

func sortedSymbols(l domain.Ledger) []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
