package domain

import "strings"

type LedgerName string

const (
	LedgerPrimary LedgerName = "currency"
	LedgerAlt     LedgerName = "altCurrency"
)

// AltCoinPrefix marks coin ids that address the alternate (weightless) ledger.
const AltCoinPrefix = "wl_"

// Ledger maps a denomination symbol to a held count.
type Ledger map[string]int64

func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

func (l Ledger) Get(symbol string) int64 {
	if l == nil {
		return 0
	}
	return l[symbol]
}

func (l Ledger) Total() int64 {
	var n int64
	for _, v := range l {
		n += v
	}
	return n
}

// LedgerPatch carries replacement ledgers for one party. A nil field leaves
// that ledger untouched.
type LedgerPatch struct {
	Currency    Ledger
	AltCurrency Ledger
}

func (p LedgerPatch) Empty() bool {
	return p.Currency == nil && p.AltCurrency == nil
}

// IsCoinID reports whether an inventory id addresses a coin pile rather than
// an item: two-letter symbols for the primary ledger, wl_ symbols for the
// alternate one.
func IsCoinID(id string) bool {
	return len(id) == 2 || strings.HasPrefix(id, AltCoinPrefix)
}

// ParseCoinID splits a coin id into its ledger and denomination symbol.
func ParseCoinID(id string) (LedgerName, string) {
	if strings.HasPrefix(id, AltCoinPrefix) {
		return LedgerAlt, strings.TrimPrefix(id, AltCoinPrefix)
	}
	return LedgerPrimary, id
}
