package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/port"
)

// The statements below are accepted by both MySQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS parties (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		sheet_type VARCHAR(16) NOT NULL DEFAULT '',
		price_modifier VARCHAR(32) NOT NULL DEFAULT '0',
		sale_value_percent INT NOT NULL DEFAULT 0,
		owners TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledgers (
		party_id VARCHAR(64) NOT NULL,
		ledger VARCHAR(16) NOT NULL,
		denom VARCHAR(16) NOT NULL,
		amount BIGINT NOT NULL,
		PRIMARY KEY (party_id, ledger, denom)
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		party_id VARCHAR(64) NOT NULL,
		id VARCHAR(64) NOT NULL,
		seq BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		sub_kind VARCHAR(32) NOT NULL DEFAULT '',
		quantity BIGINT NOT NULL,
		weight VARCHAR(32) NOT NULL,
		price VARCHAR(32) NOT NULL,
		identified BOOLEAN NOT NULL,
		unidentified_name VARCHAR(255) NOT NULL DEFAULT '',
		unidentified_price VARCHAR(32) NULL,
		infinite BOOLEAN NOT NULL DEFAULT FALSE,
		secret BOOLEAN NOT NULL DEFAULT FALSE,
		contents TEXT NOT NULL,
		PRIMARY KEY (party_id, id)
	)`,
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore keeps parties in MySQL or SQLite.
type SQLStore struct {
	sqlTx
	db *sql.DB
	// lockRows takes row locks on every party read inside InTx. SQLite runs
	// on one connection and needs none.
	lockRows bool
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{sqlTx: sqlTx{q: db}, db: db}
}

// OpenSQLStore opens driver ("mysql" or "sqlite") at dsn and creates the
// tables.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := NewSQLStore(db)
	s.lockRows = driver == "mysql"
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) InTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{q: tx, lock: s.lockRows}); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveParty writes a whole party, replacing any stored party with the same id.
func (s *SQLStore) SaveParty(ctx context.Context, p domain.Party) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := (&sqlTx{q: tx}).saveParty(ctx, p); err != nil {
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	q    queryer
	lock bool
}

func (t *sqlTx) forUpdate() string {
	if t.lock {
		return " FOR UPDATE"
	}
	return ""
}

// lockParty holds the party row until the transaction ends, so concurrent
// read-modify-write cycles on one party run one after the other.
func (t *sqlTx) lockParty(ctx context.Context, partyID string) error {
	if !t.lock {
		return nil
	}
	var id string
	err := t.q.QueryRowContext(ctx, `SELECT id FROM parties WHERE id = ? FOR UPDATE`, partyID).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock party %s: %w", partyID, err)
	}
	return nil
}

func (t *sqlTx) GetParty(ctx context.Context, partyID string) (*domain.Party, error) {
	var (
		p      domain.Party
		mod    string
		owners string
	)
	err := t.q.QueryRowContext(ctx, `
		SELECT id, name, sheet_type, price_modifier, sale_value_percent, owners
		FROM parties WHERE id = ?`+t.forUpdate(), partyID,
	).Scan(&p.ID, &p.Name, &p.Flags.SheetType, &mod, &p.Flags.SaleValuePercent, &owners)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query party: %w", err)
	}
	if p.Flags.PriceModifier, err = decimal.NewFromString(mod); err != nil {
		return nil, fmt.Errorf("party %s price modifier: %w", partyID, err)
	}
	if err := json.Unmarshal([]byte(owners), &p.Owners); err != nil {
		return nil, fmt.Errorf("party %s owners: %w", partyID, err)
	}

	if p.Currency, p.AltCurrency, err = t.ledgers(ctx, partyID); err != nil {
		return nil, err
	}
	if p.Inventory, err = t.items(ctx, partyID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *sqlTx) ledgers(ctx context.Context, partyID string) (domain.Ledger, domain.Ledger, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT ledger, denom, amount FROM ledgers WHERE party_id = ?`, partyID)
	if err != nil {
		return nil, nil, fmt.Errorf("query ledgers: %w", err)
	}
	defer rows.Close()

	cur, alt := domain.Ledger{}, domain.Ledger{}
	for rows.Next() {
		var (
			name  string
			denom string
			count int64
		)
		if err := rows.Scan(&name, &denom, &count); err != nil {
			return nil, nil, fmt.Errorf("scan ledger: %w", err)
		}
		if domain.LedgerName(name) == domain.LedgerAlt {
			alt[denom] = count
		} else {
			cur[denom] = count
		}
	}
	return cur, alt, rows.Err()
}

const itemColumns = `id, name, kind, sub_kind, quantity, weight, price, identified,
	unidentified_name, unidentified_price, infinite, secret, contents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		it            domain.Item
		weight, price string
		unidPrice     sql.NullString
		contents      string
	)
	err := row.Scan(&it.ID, &it.Name, &it.Kind, &it.SubKind, &it.Quantity, &weight, &price, &it.Identified,
		&it.UnidentifiedName, &unidPrice, &it.Flags.Infinite, &it.Flags.Secret, &contents)
	if err != nil {
		return it, err
	}
	if it.Weight, err = decimal.NewFromString(weight); err != nil {
		return it, fmt.Errorf("item %s weight: %w", it.ID, err)
	}
	if it.Price, err = decimal.NewFromString(price); err != nil {
		return it, fmt.Errorf("item %s price: %w", it.ID, err)
	}
	if unidPrice.Valid {
		d, err := decimal.NewFromString(unidPrice.String)
		if err != nil {
			return it, fmt.Errorf("item %s unidentified price: %w", it.ID, err)
		}
		it.UnidentifiedPrice = &d
	}
	if contents != "" && contents != "null" {
		if err := json.Unmarshal([]byte(contents), &it.Contents); err != nil {
			return it, fmt.Errorf("item %s contents: %w", it.ID, err)
		}
	}
	return it, nil
}

func (t *sqlTx) items(ctx context.Context, partyID string) ([]domain.Item, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE party_id = ? ORDER BY seq`, partyID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *sqlTx) GetItem(ctx context.Context, partyID, itemID string) (*domain.Item, error) {
	if err := t.lockParty(ctx, partyID); err != nil {
		return nil, err
	}
	it, err := scanItem(t.q.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE party_id = ? AND id = ?`, partyID, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &it, nil
}

func (t *sqlTx) UpsertItem(ctx context.Context, partyID string, item domain.Item) error {
	contents, err := json.Marshal(item.Contents)
	if err != nil {
		return fmt.Errorf("encode contents: %w", err)
	}
	var unidPrice sql.NullString
	if item.UnidentifiedPrice != nil {
		unidPrice = sql.NullString{String: item.UnidentifiedPrice.String(), Valid: true}
	}

	var seq int64
	err = t.q.QueryRowContext(ctx, `
		SELECT seq FROM items WHERE party_id = ? AND id = ?`, partyID, item.ID,
	).Scan(&seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := t.q.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(seq), 0) + 1 FROM items WHERE party_id = ?`, partyID,
		).Scan(&seq); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}
		_, err = t.q.ExecContext(ctx, `
			INSERT INTO items (party_id, seq, `+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			partyID, seq, item.ID, item.Name, item.Kind, item.SubKind, item.Quantity,
			item.Weight.String(), item.Price.String(), item.Identified, item.UnidentifiedName, unidPrice,
			item.Flags.Infinite, item.Flags.Secret, string(contents),
		)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("query item seq: %w", err)
	}

	_, err = t.q.ExecContext(ctx, `
		UPDATE items
		SET name = ?, kind = ?, sub_kind = ?, quantity = ?, weight = ?, price = ?, identified = ?,
			unidentified_name = ?, unidentified_price = ?, infinite = ?, secret = ?, contents = ?
		WHERE party_id = ? AND id = ?`,
		item.Name, item.Kind, item.SubKind, item.Quantity, item.Weight.String(), item.Price.String(),
		item.Identified, item.UnidentifiedName, unidPrice, item.Flags.Infinite, item.Flags.Secret,
		string(contents), partyID, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteItem(ctx context.Context, partyID, itemID string) error {
	if _, err := t.q.ExecContext(ctx, `
		DELETE FROM items WHERE party_id = ? AND id = ?`, partyID, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateLedger(ctx context.Context, partyID string, patch domain.LedgerPatch) error {
	if patch.Currency != nil {
		if err := t.replaceLedger(ctx, partyID, domain.LedgerPrimary, patch.Currency); err != nil {
			return err
		}
	}
	if patch.AltCurrency != nil {
		if err := t.replaceLedger(ctx, partyID, domain.LedgerAlt, patch.AltCurrency); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) replaceLedger(ctx context.Context, partyID string, name domain.LedgerName, l domain.Ledger) error {
	if _, err := t.q.ExecContext(ctx, `
		DELETE FROM ledgers WHERE party_id = ? AND ledger = ?`, partyID, string(name)); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	for denom, count := range l {
		if _, err := t.q.ExecContext(ctx, `
			INSERT INTO ledgers (party_id, ledger, denom, amount) VALUES (?, ?, ?, ?)`,
			partyID, string(name), denom, count); err != nil {
			return fmt.Errorf("write %s %s: %w", name, denom, err)
		}
	}
	return nil
}

func (t *sqlTx) saveParty(ctx context.Context, p domain.Party) error {
	owners, err := json.Marshal(p.Owners)
	if err != nil {
		return fmt.Errorf("encode owners: %w", err)
	}
	if owners == nil || string(owners) == "null" {
		owners = []byte("[]")
	}
	for _, stmt := range []string{
		`DELETE FROM parties WHERE id = ?`,
		`DELETE FROM items WHERE party_id = ?`,
		`DELETE FROM ledgers WHERE party_id = ?`,
	} {
		if _, err := t.q.ExecContext(ctx, stmt, p.ID); err != nil {
			return fmt.Errorf("clear party %s: %w", p.ID, err)
		}
	}
	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO parties (id, name, sheet_type, price_modifier, sale_value_percent, owners)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Flags.SheetType), p.Flags.PriceModifier.String(), p.Flags.SaleValuePercent, string(owners),
	); err != nil {
		return fmt.Errorf("insert party: %w", err)
	}
	if err := t.UpdateLedger(ctx, p.ID, domain.LedgerPatch{Currency: p.Currency.Clone(), AltCurrency: p.AltCurrency.Clone()}); err != nil {
		return err
	}
	for _, it := range p.Inventory {
		if err := t.UpsertItem(ctx, p.ID, it); err != nil {
			return err
		}
	}
	return nil
}
