package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

func item(id, name string, kind domain.ItemKind, price string, qty int) domain.Item {
	return domain.Item{
		ID:         id,
		Name:       name,
		Kind:       kind,
		Quantity:   qty,
		Weight:     decimal.NewFromInt(1),
		Price:      decimal.RequireFromString(price),
		Identified: true,
	}
}

func newTestService(parties ...domain.Party) (*LootService, *mockStore, *mockNotifier) {
	store := newMockStore(parties...)
	notifier := &mockNotifier{}
	svc := NewLootService(store, notifier, nil)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
	return svc, store, notifier
}

func exec(chat bool) ExecutionContext {
	return ExecutionContext{CallingUser: "gm", Speaker: "gm", Settings: Settings{BuyChat: chat}}
}

func merchant(items ...domain.Item) domain.Party {
	return domain.Party{
		ID:        "merchant",
		Name:      "Merchant",
		Currency:  domain.Ledger{},
		Inventory: items,
		Flags:     domain.PartyFlags{SheetType: domain.SheetTypeMerchant},
	}
}

func actor(id, name string, currency domain.Ledger) domain.Party {
	return domain.Party{ID: id, Name: name, Currency: currency, AltCurrency: domain.Ledger{}}
}

func TestPurchase_ExactPayment(t *testing.T) {
	svc, store, notifier := newTestService(
		merchant(item("torch", "Torch", domain.ItemKindConsumable, "1.00", 10)),
		actor("alice", "Alice", domain.Ledger{"gp": 5}),
	)

	receipt, err := svc.Purchase(context.Background(), exec(true), "merchant", "alice", "torch", 3)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !receipt.Cost.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected cost 3, got %s", receipt.Cost)
	}
	if receipt.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", receipt.Quantity)
	}

	alice := store.party("alice")
	if alice.Currency.Get("gp") != 2 {
		t.Errorf("expected 2 gp left, got %v", alice.Currency)
	}
	if len(alice.Inventory) != 1 || alice.Inventory[0].Quantity != 3 {
		t.Errorf("expected one stack of 3 torches, got %+v", alice.Inventory)
	}
	m := store.party("merchant")
	if it, _ := m.Item("torch"); it.Quantity != 7 {
		t.Errorf("expected 7 torches left, got %d", it.Quantity)
	}

	if len(notifier.chat) != 1 || !strings.Contains(notifier.chat[0].Message, "Alice bought 3 x Torch") {
		t.Errorf("unexpected chat: %+v", notifier.chat)
	}
	if notifier.chat[0].ItemName != "Torch" || notifier.chat[0].SpeakerID != "gm" {
		t.Errorf("unexpected chat entry: %+v", notifier.chat[0])
	}
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	svc, store, notifier := newTestService(
		merchant(item("torch", "Torch", domain.ItemKindConsumable, "1.00", 10)),
		actor("alice", "Alice", domain.Ledger{"gp": 2}),
	)

	_, err := svc.Purchase(context.Background(), exec(true), "merchant", "alice", "torch", 3)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if GetCode(err) != CodeInsufficientFunds {
		t.Errorf("expected code %s, got %s", CodeInsufficientFunds, GetCode(err))
	}

	if got := store.party("alice").Currency.Get("gp"); got != 2 {
		t.Errorf("expected ledger untouched, got %d gp", got)
	}
	m := store.party("merchant")
	if it, _ := m.Item("torch"); it.Quantity != 10 {
		t.Errorf("expected stock untouched, got %d", it.Quantity)
	}
	if len(notifier.errors) != 1 || !strings.HasPrefix(notifier.errors[0], "alice:") {
		t.Errorf("expected one error for alice, got %v", notifier.errors)
	}
	if len(notifier.chat) != 0 {
		t.Errorf("expected no chat, got %+v", notifier.chat)
	}
}

func TestPurchase_AltLedgerCoversShortfall(t *testing.T) {
	buyer := actor("alice", "Alice", domain.Ledger{"gp": 2})
	buyer.AltCurrency = domain.Ledger{"gp": 5}
	svc, store, _ := newTestService(
		merchant(item("torch", "Torch", domain.ItemKindConsumable, "1.00", 10)),
		buyer,
	)

	if _, err := svc.Purchase(context.Background(), exec(false), "merchant", "alice", "torch", 3); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	alice := store.party("alice")
	if alice.Currency.Get("gp") != 0 {
		t.Errorf("expected primary drained, got %v", alice.Currency)
	}
	if alice.AltCurrency.Get("gp") != 4 {
		t.Errorf("expected 4 alt gp left, got %v", alice.AltCurrency)
	}
}

func TestPurchase_PriceModifierAndChange(t *testing.T) {
	m := merchant(item("rope", "Rope", domain.ItemKindEquipment, "0.75", 2))
	m.Flags.PriceModifier = decimal.NewFromInt(2)
	svc, store, _ := newTestService(m, actor("alice", "Alice", domain.Ledger{"pp": 1}))

	receipt, err := svc.Purchase(context.Background(), exec(false), "merchant", "alice", "rope", 1)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !receipt.Cost.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected cost 1.5, got %s", receipt.Cost)
	}
	alice := store.party("alice")
	want := domain.Ledger{"pp": 0, "gp": 8, "sp": 5}
	for sym, n := range want {
		if alice.Currency.Get(sym) != n {
			t.Errorf("expected %d %s, got %v", n, sym, alice.Currency)
		}
	}
}

func TestPurchase_ClampsToStock(t *testing.T) {
	svc, store, _ := newTestService(
		merchant(item("torch", "Torch", domain.ItemKindConsumable, "1", 2)),
		actor("alice", "Alice", domain.Ledger{"gp": 10}),
	)

	receipt, err := svc.Purchase(context.Background(), exec(false), "merchant", "alice", "torch", 5)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if receipt.Quantity != 2 || !receipt.Cost.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected 2 torches for 2 gp, got %d for %s", receipt.Quantity, receipt.Cost)
	}
	if got := store.party("alice").Currency.Get("gp"); got != 8 {
		t.Errorf("expected 8 gp left, got %d", got)
	}
}

func TestPurchase_SoldOutAndMissing(t *testing.T) {
	svc, store, notifier := newTestService(
		merchant(item("torch", "Torch", domain.ItemKindConsumable, "1", 0)),
		actor("alice", "Alice", domain.Ledger{"gp": 10}),
	)
	ctx := context.Background()

	if _, err := svc.Purchase(ctx, exec(false), "merchant", "alice", "torch", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for sold out stack, got %v", err)
	}
	if _, err := svc.Purchase(ctx, exec(false), "merchant", "alice", "ghost", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}
	if got := store.party("alice").Currency.Get("gp"); got != 10 {
		t.Errorf("expected ledger untouched, got %d", got)
	}
	if len(notifier.warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", notifier.warnings)
	}
}

func TestPurchase_RollsBackWhenTransferFails(t *testing.T) {
	svc, store, _ := newTestService(
		merchant(item("torch", "Torch", domain.ItemKindConsumable, "1", 10)),
		actor("alice", "Alice", domain.Ledger{"gp": 5}),
	)
	store.failUpsertInto = "alice"

	_, err := svc.Purchase(context.Background(), exec(false), "merchant", "alice", "torch", 3)
	if !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if got := store.party("alice").Currency.Get("gp"); got != 5 {
		t.Errorf("expected funds restored, got %d gp", got)
	}
	m := store.party("merchant")
	if it, _ := m.Item("torch"); it.Quantity != 10 {
		t.Errorf("expected stock restored, got %d", it.Quantity)
	}
}

func lootSheet(items ...domain.Item) domain.Party {
	return domain.Party{
		ID:        "chest",
		Name:      "Chest",
		Currency:  domain.Ledger{},
		Inventory: items,
		Flags:     domain.PartyFlags{SheetType: domain.SheetTypeLoot},
	}
}

func TestLoot_InfiniteStackNeverDepletes(t *testing.T) {
	arrows := item("arrows", "Arrow", domain.ItemKindConsumable, "0.05", 1)
	arrows.Flags = domain.ItemFlags{Infinite: true, Secret: true}
	svc, store, _ := newTestService(lootSheet(arrows), actor("bob", "Bob", domain.Ledger{}))

	for i := 0; i < 100; i++ {
		if _, err := svc.Loot(context.Background(), exec(false), "chest", "bob", "arrows", 1); err != nil {
			t.Fatalf("loot %d: %v", i, err)
		}
	}

	chest := store.party("chest")
	if it, _ := chest.Item("arrows"); it.Quantity != 1 || !it.Flags.Infinite {
		t.Errorf("expected infinite stack untouched, got %+v", it)
	}
	bob := store.party("bob")
	if len(bob.Inventory) != 100 {
		t.Fatalf("expected 100 stacks, got %d", len(bob.Inventory))
	}
	if bob.Inventory[0].Flags != (domain.ItemFlags{}) {
		t.Errorf("expected flags stripped, got %+v", bob.Inventory[0].Flags)
	}
}

func TestLoot_ClampsAndConserves(t *testing.T) {
	svc, store, _ := newTestService(
		lootSheet(item("gem", "Gem", domain.ItemKindLoot, "10", 5)),
		actor("bob", "Bob", domain.Ledger{}),
	)

	res, err := svc.Loot(context.Background(), exec(false), "chest", "bob", "gem", 50)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res.Quantity != 5 {
		t.Errorf("expected 5 gems, got %d", res.Quantity)
	}
	chest := store.party("chest")
	it, ok := chest.Item("gem")
	if !ok || it.Quantity != 0 {
		t.Errorf("expected empty stack kept, got %+v (present=%v)", it, ok)
	}
	bob := store.party("bob")
	if len(bob.Inventory) != 1 || bob.Inventory[0].Quantity != 5 {
		t.Errorf("expected 5 gems on bob, got %+v", bob.Inventory)
	}
}

func TestLoot_RemoveEmptyStacks(t *testing.T) {
	svc, store, notifier := newTestService(
		lootSheet(item("gem", "Gem", domain.ItemKindLoot, "10", 2)),
		actor("bob", "Bob", domain.Ledger{}),
	)
	ex := exec(false)
	ex.Settings.RemoveEmptyStacks = true
	ctx := context.Background()

	if _, err := svc.Loot(ctx, ex, "chest", "bob", "gem", 0); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	chest := store.party("chest")
	if _, ok := chest.Item("gem"); ok {
		t.Errorf("expected empty stack removed")
	}

	// a second claim on the same stack finds nothing and changes nothing
	if _, err := svc.Loot(ctx, ex, "chest", "bob", "gem", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := store.party("bob").Inventory[0].Quantity; got != 2 {
		t.Errorf("expected bob to keep 2 gems, got %d", got)
	}
	if len(notifier.warnings) != 1 {
		t.Errorf("expected one warning, got %v", notifier.warnings)
	}
}

func TestLoot_Coins(t *testing.T) {
	chest := lootSheet()
	chest.Currency = domain.Ledger{"gp": 4}
	chest.AltCurrency = domain.Ledger{"sp": 3}
	svc, store, notifier := newTestService(chest, actor("bob", "Bob", domain.Ledger{"gp": 1}))
	ctx := context.Background()

	res, err := svc.Loot(ctx, exec(true), "chest", "bob", "gp", 10)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res.Quantity != 4 || res.Coin != "gp" {
		t.Errorf("expected 4 gp, got %+v", res)
	}
	if _, err := svc.Loot(ctx, exec(true), "chest", "bob", "wl_sp", 2); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	c := store.party("chest")
	b := store.party("bob")
	if c.Currency.Get("gp") != 0 || b.Currency.Get("gp") != 5 {
		t.Errorf("unexpected gp: chest %v bob %v", c.Currency, b.Currency)
	}
	if c.AltCurrency.Get("sp") != 1 || b.AltCurrency.Get("sp") != 2 {
		t.Errorf("unexpected alt sp: chest %v bob %v", c.AltCurrency, b.AltCurrency)
	}

	// nothing left to take
	res, err = svc.Loot(ctx, exec(true), "chest", "bob", "gp", 1)
	if err != nil || res != nil {
		t.Errorf("expected no-op, got %+v, %v", res, err)
	}
	if len(notifier.chat) != 2 || notifier.chat[0].Message != "Bob looted 4 gp" {
		t.Errorf("unexpected chat: %+v", notifier.chat)
	}
}

func TestMoveItem_SameParty(t *testing.T) {
	svc, _, _ := newTestService(lootSheet(item("gem", "Gem", domain.ItemKindLoot, "10", 2)))

	_, err := svc.MoveItem(context.Background(), exec(false), "chest", "chest", "gem", 1)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestMoveItem_MissingDestination(t *testing.T) {
	svc, store, _ := newTestService(lootSheet(item("gem", "Gem", domain.ItemKindLoot, "10", 2)))

	_, err := svc.MoveItem(context.Background(), exec(false), "chest", "nobody", "gem", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	chest := store.party("chest")
	if it, _ := chest.Item("gem"); it.Quantity != 2 {
		t.Errorf("expected stack untouched, got %d", it.Quantity)
	}
}

func TestDropOrSell(t *testing.T) {
	silk := item("silk", "Silk", domain.ItemKindLoot, "4", 2)
	silk.SubKind = domain.SubKindTradeGoods
	sword := item("sword", "Sword", domain.ItemKindWeapon, "3", 1)

	tests := []struct {
		name     string
		dest     domain.Party
		itemID   string
		wantCost string
		wantFund domain.Ledger
	}{
		{"trade goods sell at full price", merchant(), "silk", "8", domain.Ledger{"gp": 8}},
		{"others sell at half price", merchant(), "sword", "1.5", domain.Ledger{"gp": 1, "sp": 5}},
		{"loot sheet takes a donation", lootSheet(), "silk", "0", domain.Ledger{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			giver := actor("carol", "Carol", domain.Ledger{})
			giver.Inventory = []domain.Item{silk, sword}
			svc, store, _ := newTestService(tt.dest, giver)

			receipt, err := svc.DropOrSell(context.Background(), exec(false), tt.dest.ID, "carol", tt.itemID)
			if err != nil {
				t.Fatalf("expected success, got error: %v", err)
			}
			if !receipt.Cost.Equal(decimal.RequireFromString(tt.wantCost)) {
				t.Errorf("expected cost %s, got %s", tt.wantCost, receipt.Cost)
			}
			carol := store.party("carol")
			for _, sym := range []string{"pp", "gp", "sp", "cp"} {
				if carol.Currency.Get(sym) != tt.wantFund.Get(sym) {
					t.Errorf("expected funds %v, got %v", tt.wantFund, carol.Currency)
					break
				}
			}
			dest := store.party(tt.dest.ID)
			if len(dest.Inventory) != 1 {
				t.Errorf("expected stack in %s, got %+v", tt.dest.ID, dest.Inventory)
			}
		})
	}
}

func TestGive(t *testing.T) {
	giver := actor("carol", "Carol", domain.Ledger{})
	giver.Inventory = []domain.Item{item("potion", "Potion", domain.ItemKindConsumable, "50", 5)}
	svc, store, notifier := newTestService(giver, actor("dave", "Dave", domain.Ledger{}))
	ctx := context.Background()

	res, err := svc.Give(ctx, exec(true), "carol", "dave", "potion", 0)
	if err != nil || res != nil {
		t.Fatalf("expected no-op, got %+v, %v", res, err)
	}

	if _, err := svc.Give(ctx, exec(true), "carol", "dave", "potion", 2); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	carol := store.party("carol")
	if it, _ := carol.Item("potion"); it.Quantity != 3 {
		t.Errorf("expected 3 potions left, got %d", it.Quantity)
	}
	if dave := store.party("dave"); len(dave.Inventory) != 1 || dave.Inventory[0].Quantity != 2 {
		t.Errorf("expected 2 potions on dave, got %+v", dave.Inventory)
	}
	if len(notifier.chat) != 1 || notifier.chat[0].Message != "Carol gave 2 x Potion to Dave" {
		t.Errorf("unexpected chat: %+v", notifier.chat)
	}
}

func TestConvertLoot(t *testing.T) {
	gems := item("gems", "Gems", domain.ItemKindLoot, "5", 2)
	gems.SubKind = domain.SubKindTradeGoods
	chest := lootSheet(item("sword", "Sword", domain.ItemKindWeapon, "10", 1), gems)
	svc, store, _ := newTestService(chest)

	res, err := svc.ConvertLoot(context.Background(), exec(false), "chest")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res.ItemsSold != 2 || !res.Proceeds.Equal(decimal.NewFromInt(15)) {
		t.Errorf("unexpected result: %+v", res)
	}
	c := store.party("chest")
	if len(c.Inventory) != 0 {
		t.Errorf("expected empty inventory, got %+v", c.Inventory)
	}
	if c.Currency.Get("pp") != 1 || c.Currency.Get("gp") != 5 {
		t.Errorf("expected 1 pp 5 gp, got %v", c.Currency)
	}
}

func TestDistributeCoins(t *testing.T) {
	chest := lootSheet()
	chest.Currency = domain.Ledger{"gp": 10, "sp": 3}
	chest.AltCurrency = domain.Ledger{"gp": 5}
	chest.Owners = []string{"alice", "bob", "ghost"}
	svc, store, notifier := newTestService(chest,
		actor("alice", "Alice", domain.Ledger{"gp": 1}),
		actor("bob", "Bob", domain.Ledger{}),
	)

	shares, err := svc.DistributeCoins(context.Background(), exec(true), "chest")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}

	alice := store.party("alice")
	if alice.Currency.Get("gp") != 6 || alice.Currency.Get("sp") != 1 || alice.AltCurrency.Get("gp") != 2 {
		t.Errorf("unexpected alice funds: %v / %v", alice.Currency, alice.AltCurrency)
	}
	c := store.party("chest")
	if c.Currency.Get("gp") != 0 || c.Currency.Get("sp") != 1 || c.AltCurrency.Get("gp") != 1 {
		t.Errorf("unexpected remainder: %v / %v", c.Currency, c.AltCurrency)
	}
	if len(notifier.chat) != 2 || notifier.chat[0].Message != "Alice receives: 5 gp, 1 sp, 2 wl_gp" {
		t.Errorf("unexpected chat: %+v", notifier.chat)
	}
}

func TestSheet_HidesSecretsFromPlayers(t *testing.T) {
	secret := item("idol", "Golden Idol", domain.ItemKindLoot, "100", 1)
	secret.Flags.Secret = true
	ring := item("ring", "Ring of Warmth", domain.ItemKindEquipment, "500", 1)
	ring.Identified = false
	ring.UnidentifiedName = "Plain Ring"
	cheap := decimal.NewFromInt(5)
	ring.UnidentifiedPrice = &cheap
	svc, _, _ := newTestService(lootSheet(secret, ring))
	ctx := context.Background()

	player, err := svc.Sheet(ctx, "chest", false)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(player.Items) != 1 || player.Items[0].DisplayName != "Plain Ring" {
		t.Errorf("unexpected player view: %+v", player.Items)
	}
	if player.Summary.TotalItems != 1 {
		t.Errorf("expected secret excluded from summary, got %+v", player.Summary)
	}

	gm, err := svc.Sheet(ctx, "chest", true)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(gm.Items) != 2 || gm.Items[1].DisplayName != "Ring of Warmth" {
		t.Errorf("unexpected authority view: %+v", gm.Items)
	}

	if _, err := svc.Sheet(ctx, "nowhere", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestError_CodesAndChain(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrConversionFailure, "alice", "could not pay", cause)

	if !errors.Is(err, ErrConversionFailure) || !errors.Is(err, cause) {
		t.Errorf("expected sentinel and cause in chain: %v", err)
	}
	if err.Error() != "alice: could not pay" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if GetCode(fmt.Errorf("wrapped: %w", err)) != CodeConversionFailure {
		t.Errorf("expected code to survive wrapping")
	}
	if GetCode(ErrNoActiveAuthority) != CodeNoActiveAuthority {
		t.Errorf("expected bare sentinel to map")
	}
	if GetCode(cause) != CodeUnknown {
		t.Errorf("expected unknown for foreign error")
	}
}

func TestDistributeCoins_RepeatedOwnerGetsOneShare(t *testing.T) {
	chest := lootSheet()
	chest.Currency = domain.Ledger{"gp": 10}
	chest.Owners = []string{"alice", "alice", "bob"}
	svc, store, _ := newTestService(chest,
		actor("alice", "Alice", domain.Ledger{}),
		actor("bob", "Bob", domain.Ledger{}),
	)

	shares, err := svc.DistributeCoins(context.Background(), exec(false), "chest")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %+v", shares)
	}

	alice := store.party("alice").Currency.Get("gp")
	bob := store.party("bob").Currency.Get("gp")
	left := store.party("chest").Currency.Get("gp")
	if alice != 5 || bob != 5 || left != 0 {
		t.Errorf("expected 5/5/0, got alice %d bob %d chest %d", alice, bob, left)
	}
	if alice+bob+left != 10 {
		t.Errorf("coins not conserved: %d", alice+bob+left)
	}
}

func TestMissingItem_WarnsTheActingParty(t *testing.T) {
	svc, _, notifier := newTestService(
		merchant(item("torch", "Torch", domain.ItemKindConsumable, "1", 3)),
		lootSheet(),
		actor("alice", "Alice", domain.Ledger{"gp": 10}),
	)
	ctx := context.Background()

	if _, err := svc.Purchase(ctx, exec(false), "merchant", "alice", "ghost", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from purchase, got %v", err)
	}
	if _, err := svc.Loot(ctx, exec(false), "chest", "alice", "ghost", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from loot, got %v", err)
	}
	if len(notifier.warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", notifier.warnings)
	}
	for _, w := range notifier.warnings {
		if !strings.HasPrefix(w, "alice: ") {
			t.Errorf("expected warning addressed to alice, got %q", w)
		}
	}
}

func TestLoot_CoinsWithoutQuantityTakesAll(t *testing.T) {
	chest := lootSheet()
	chest.Currency = domain.Ledger{"gp": 7}
	svc, store, _ := newTestService(chest, actor("bob", "Bob", domain.Ledger{}))

	res, err := svc.Loot(context.Background(), exec(false), "chest", "bob", "gp", 0)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res == nil || res.Quantity != 7 {
		t.Fatalf("expected 7 gp looted, got %+v", res)
	}
	if store.party("chest").Currency.Get("gp") != 0 || store.party("bob").Currency.Get("gp") != 7 {
		t.Errorf("unexpected ledgers: chest %v bob %v", store.party("chest").Currency, store.party("bob").Currency)
	}
}

func TestSheet_SummaryMatchesShownStacks(t *testing.T) {
	arrows := item("arrows", "Arrows", domain.ItemKindConsumable, "1", 50)
	arrows.Flags.Infinite = true
	rope := item("rope", "Rope", domain.ItemKindEquipment, "2", 3)
	svc, _, _ := newTestService(lootSheet(arrows, rope))

	view, err := svc.Sheet(context.Background(), "chest", false)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	shown := 0
	for _, it := range view.Items {
		shown += it.Quantity
	}
	if view.Summary.TotalItems != shown || shown != 4 {
		t.Errorf("expected summary of 4 shown items, got %d (shown %d)", view.Summary.TotalItems, shown)
	}
	if !view.Summary.TotalPrice.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected total price 7, got %s", view.Summary.TotalPrice)
	}
}
