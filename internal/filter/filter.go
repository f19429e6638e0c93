// Package filter narrows a transaction list by account, free-text search,
// type and date range. All predicates are pure; the source slice is never
// mutated and input order is preserved.
package filter

import (
	"strings"
	"time"

	"bloombook/internal/core"
)

// TypeAll disables the type predicate.
const TypeAll = "all"

// Filter is the full set of predicates. Zero values impose no constraint.
type Filter struct {
	// Account limits results to one payment method when viewing a
	// specific account. Empty means both.
	Account core.PaymentMethod

	// Query is a case-insensitive substring match on the description.
	// Arabic-Indic and Extended Arabic-Indic digits are normalized to
	// ASCII on both sides, so digit script never affects matching.
	Query string

	// Type is "INCOME", "EXPENSE", or "all"/empty for no constraint.
	Type string

	// From and To bound the date portion of the transaction timestamp,
	// inclusive on both ends. Zero values are unconstrained.
	From time.Time
	To   time.Time
}

// Apply evaluates the predicates in fixed order: account, search, type,
// date range. A transaction must pass all of them.
func (f Filter) Apply(txns []core.Transaction) []core.Transaction {
	query := strings.ToLower(NormalizeDigits(strings.TrimSpace(f.Query)))

	out := make([]core.Transaction, 0, len(txns))
	for _, tx := range txns {
		if f.Account != "" && tx.Method != f.Account {
			continue
		}
		if query != "" {
			desc := strings.ToLower(NormalizeDigits(tx.Description))
			if !strings.Contains(desc, query) {
				continue
			}
		}
		if f.Type != "" && f.Type != TypeAll && string(tx.Type) != f.Type {
			continue
		}
		if !f.inDateRange(tx.Date) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func (f Filter) inDateRange(ts time.Time) bool {
	day := truncateToDay(ts)
	if !f.From.IsZero() && day.Before(truncateToDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(truncateToDay(f.To)) {
		return false
	}
	return true
}

// truncateToDay drops the time-of-day, keeping the local calendar date.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NormalizeDigits maps Arabic-Indic (U+0660..U+0669) and Extended
// Arabic-Indic (U+06F0..U+06F9) digits to their ASCII equivalents. Other
// runes pass through unchanged.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0x0660 && r <= 0x0669:
			b.WriteRune('0' + (r - 0x0660))
		case r >= 0x06F0 && r <= 0x06F9:
			b.WriteRune('0' + (r - 0x06F0))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
