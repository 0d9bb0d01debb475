package port

import (
	"context"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

// Store is the persistence boundary for parties, their inventories and
// ledgers.
type Store interface {
	StoreTx

	// InTx runs fn against a transactional view of the store. Nothing fn
	// writes is visible unless fn returns nil.
	InTx(ctx context.Context, fn func(tx StoreTx) error) error
}

type StoreTx interface {
	// GetParty returns the party with its inventory, or nil if it does not exist.
	GetParty(ctx context.Context, partyID string) (*domain.Party, error)

	// GetItem returns one inventory entry, or nil if it does not exist.
	GetItem(ctx context.Context, partyID, itemID string) (*domain.Item, error)

	// UpsertItem inserts the item into the party's inventory or replaces the
	// entry with the same id.
	UpsertItem(ctx context.Context, partyID string, item domain.Item) error

	DeleteItem(ctx context.Context, partyID, itemID string) error

	// UpdateLedger replaces the ledgers set in patch.
	UpdateLedger(ctx context.Context, partyID string, patch domain.LedgerPatch) error
}
