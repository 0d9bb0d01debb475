package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/port"
)

// Mock Store
type mockStore struct {
	mu      sync.Mutex
	parties map[string]*domain.Party
	// failUpsertInto makes every UpsertItem into that party fail.
	failUpsertInto string
}

var errInjected = errors.New("injected failure")

func newMockStore(parties ...domain.Party) *mockStore {
	m := &mockStore{parties: make(map[string]*domain.Party)}
	for _, p := range parties {
		p := p.Clone()
		m.parties[p.ID] = &p
	}
	return m
}

func (m *mockStore) party(id string) domain.Party {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parties[id].Clone()
}

func (m *mockStore) InTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := &mockTx{store: m, parties: make(map[string]*domain.Party, len(m.parties))}
	for id, p := range m.parties {
		c := p.Clone()
		view.parties[id] = &c
	}
	if err := fn(view); err != nil {
		return err
	}
	m.parties = view.parties
	return nil
}

func (m *mockStore) GetParty(ctx context.Context, partyID string) (*domain.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&mockTx{store: m, parties: m.parties}).GetParty(ctx, partyID)
}

func (m *mockStore) GetItem(ctx context.Context, partyID, itemID string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&mockTx{store: m, parties: m.parties}).GetItem(ctx, partyID, itemID)
}

func (m *mockStore) UpsertItem(ctx context.Context, partyID string, item domain.Item) error {
	return m.InTx(ctx, func(tx port.StoreTx) error { return tx.UpsertItem(ctx, partyID, item) })
}

func (m *mockStore) DeleteItem(ctx context.Context, partyID, itemID string) error {
	return m.InTx(ctx, func(tx port.StoreTx) error { return tx.DeleteItem(ctx, partyID, itemID) })
}

func (m *mockStore) UpdateLedger(ctx context.Context, partyID string, patch domain.LedgerPatch) error {
	return m.InTx(ctx, func(tx port.StoreTx) error { return tx.UpdateLedger(ctx, partyID, patch) })
}

type mockTx struct {
	store   *mockStore
	parties map[string]*domain.Party
}

func (t *mockTx) GetParty(ctx context.Context, partyID string) (*domain.Party, error) {
	p, ok := t.parties[partyID]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (t *mockTx) GetItem(ctx context.Context, partyID, itemID string) (*domain.Item, error) {
	p, ok := t.parties[partyID]
	if !ok {
		return nil, nil
	}
	it, ok := p.Item(itemID)
	if !ok {
		return nil, nil
	}
	c := it.Clone()
	return &c, nil
}

func (t *mockTx) UpsertItem(ctx context.Context, partyID string, item domain.Item) error {
	if partyID == t.store.failUpsertInto {
		return errInjected
	}
	p, ok := t.parties[partyID]
	if !ok {
		return errors.New("no such party")
	}
	for i := range p.Inventory {
		if p.Inventory[i].ID == item.ID {
			p.Inventory[i] = item.Clone()
			return nil
		}
	}
	p.Inventory = append(p.Inventory, item.Clone())
	return nil
}

func (t *mockTx) DeleteItem(ctx context.Context, partyID, itemID string) error {
	p, ok := t.parties[partyID]
	if !ok {
		return nil
	}
	for i := range p.Inventory {
		if p.Inventory[i].ID == itemID {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return nil
		}
	}
	return nil
}

func (t *mockTx) UpdateLedger(ctx context.Context, partyID string, patch domain.LedgerPatch) error {
	p, ok := t.parties[partyID]
	if !ok {
		return errors.New("no such party")
	}
	if patch.Currency != nil {
		p.Currency = patch.Currency.Clone()
	}
	if patch.AltCurrency != nil {
		p.AltCurrency = patch.AltCurrency.Clone()
	}
	return nil
}

// Mock Notifier
type mockNotifier struct {
	mu       sync.Mutex
	errors   []string
	warnings []string
	chat     []domain.ChatEntry
}

func (n *mockNotifier) ReportError(ctx context.Context, target, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, target+": "+msg)
}

func (n *mockNotifier) ReportWarning(ctx context.Context, target, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, target+": "+msg)
}

func (n *mockNotifier) ReportInfo(ctx context.Context, entry domain.ChatEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chat = append(n.chat, entry)
}
