package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/lootsheet/internal/core/currency"
	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/port"
)

type Settings struct {
	Rates             currency.Rates
	RemoveEmptyStacks bool
	// BuyChat enables chat entries for completed transfers.
	BuyChat bool
}

func (s Settings) rates() currency.Rates {
	if len(s.Rates) == 0 {
		return currency.DefaultRates()
	}
	return s.Rates
}

// ExecutionContext carries who is running an operation and under which
// settings. Speaker is credited on chat entries.
type ExecutionContext struct {
	CallingUser string
	Speaker     string
	Settings    Settings
}

// Receipt is a transfer plus the money that changed hands for it.
type Receipt struct {
	domain.TransferResult
	Cost decimal.Decimal `json:"cost"`
}

type LootService struct {
	store    port.Store
	notifier port.Notifier
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewLootService(store port.Store, notifier port.Notifier, logger *zap.Logger) *LootService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LootService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// fail surfaces a failure to the party it concerns and hands it back.
func (s *LootService) fail(ctx context.Context, op string, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		s.logger.Error("operation failed", zap.String("op", op), zap.Error(err))
		return err
	}
	switch e.Code {
	case CodeNotFound:
		s.logger.Warn("operation skipped", zap.String("op", op), zap.String("party", e.PartyID), zap.String("reason", e.Reason))
		s.notifier.ReportWarning(ctx, e.PartyID, e.Reason)
	case CodeConversionFailure:
		s.logger.Error("currency conversion failed", zap.String("op", op), zap.String("party", e.PartyID), zap.Error(e.Cause))
		s.notifier.ReportError(ctx, e.PartyID, e.Reason)
	default:
		s.logger.Info("operation rejected", zap.String("op", op), zap.String("party", e.PartyID), zap.String("reason", e.Reason))
		s.notifier.ReportError(ctx, e.PartyID, e.Reason)
	}
	return err
}

// attributeTo readdresses a not-found failure to the party that asked for
// the transfer, which is the one that has to hear about it.
func attributeTo(err error, actorID string) error {
	var e *Error
	if errors.As(err, &e) && e.Code == CodeNotFound {
		e.PartyID = actorID
	}
	return err
}

func (s *LootService) chat(ctx context.Context, exec ExecutionContext, ownerID, message string, item *domain.TransferResult) {
	if !exec.Settings.BuyChat {
		return
	}
	entry := domain.ChatEntry{
		SpeakerID: exec.Speaker,
		OwnerID:   ownerID,
		Message:   message,
		CreatedAt: s.now(),
	}
	if item != nil && item.Coin == "" {
		entry.ItemID = item.Item.ID
		entry.ItemName = item.DisplayName
	}
	s.notifier.ReportInfo(ctx, entry)
}

func loadParty(ctx context.Context, tx port.StoreTx, partyID string) (*domain.Party, error) {
	p, err := tx.GetParty(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("get party %s: %w", partyID, err)
	}
	if p == nil {
		return nil, NewError(ErrNotFound, partyID, fmt.Sprintf("party %s not found", partyID), nil)
	}
	return p, nil
}
