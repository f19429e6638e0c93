// Package ledger owns the two collections — transactions and debts — and
// exposes the only mutators. Every mutation persists the full collection to
// the durable store and, when a publisher is configured, emits a change
// event for downstream mirroring.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bloombook/internal/core"
)

// Fixed durable-store keys, one JSON array per collection.
const (
	KeyTransactions = "flowershop.transactions"
	KeyDebts        = "flowershop.debts"
)

// Change event operations published after committed mutations.
const (
	OpTransactionCreated = "transaction.created"
	OpTransactionDeleted = "transaction.deleted"
	OpDebtSettled        = "debt.settled"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateID    = errors.New("duplicate id")
	ErrAlreadySettled = errors.New("debt already settled")

	// ErrRestricted is returned by capability-gated mutators (delete,
	// settle) when the ledger runs in restricted mode.
	ErrRestricted = errors.New("operation not allowed in restricted mode")
)

type (
	// Store is the durable key-value port. Get returns nil for a missing
	// key; Set replaces the value wholesale.
	Store interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Set(ctx context.Context, key string, value []byte) error
	}

	// Publisher receives change events after a mutation commits. Publish
	// failures never fail the mutation; they are logged and dropped.
	Publisher interface {
		PublishLedgerEvent(ctx context.Context, op, id string) error
	}

	// Ledger holds both collections in memory and mirrors every mutation
	// to the store. A single mutex makes each mutator atomic; the rest of
	// the system only ever sees committed states.
	Ledger struct {
		mu         sync.Mutex
		store      Store
		pub        Publisher
		restricted bool

		txns  []core.Transaction
		debts []core.Debt
	}

	// Option configures a Ledger at construction time.
	Option func(*Ledger)
)

// WithPublisher attaches a change-event publisher.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.pub = p }
}

// WithRestrictedMode gates delete and settle operations.
func WithRestrictedMode(on bool) Option {
	return func(l *Ledger) { l.restricted = on }
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load rehydrates both collections from the durable store. A failed read or
// unparseable value degrades to an empty collection with an error log; the
// tool must stay usable no matter what is on disk. Transactions persisted
// before the payment-method field existed default to CASH.
func (l *Ledger) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txns, err := LoadTransactions(ctx, l.store)
	if err != nil {
		slog.ErrorContext(ctx, "Stored transactions unreadable, starting empty", "error", err, "key", KeyTransactions)
		txns = nil
	}
	debts, err := LoadDebts(ctx, l.store)
	if err != nil {
		slog.ErrorContext(ctx, "Stored debts unreadable, starting empty", "error", err, "key", KeyDebts)
		debts = nil
	}

	l.txns = txns
	l.debts = debts
	slog.InfoContext(ctx, "Ledger loaded", "transactions", len(l.txns), "debts", len(l.debts))
}

// LoadTransactions reads and decodes the transaction collection directly
// from a store. The sync worker and CLI use it for read-only access without
// constructing a full Ledger.
func LoadTransactions(ctx context.Context, store Store) ([]core.Transaction, error) {
	raw, err := store.Get(ctx, KeyTransactions)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", KeyTransactions, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var txns []core.Transaction
	if err := json.Unmarshal(raw, &txns); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyTransactions, err)
	}
	// Shape migration: records written before the paymentMethod field
	// existed default to CASH.
	for i := range txns {
		if txns[i].Method == "" {
			txns[i].Method = core.Cash
		}
	}
	return txns, nil
}

// LoadDebts reads and decodes the debt collection directly from a store.
func LoadDebts(ctx context.Context, store Store) ([]core.Debt, error) {
	raw, err := store.Get(ctx, KeyDebts)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", KeyDebts, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var debts []core.Debt
	if err := json.Unmarshal(raw, &debts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyDebts, err)
	}
	return debts, nil
}

// Transactions returns a copy of the current transaction list.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Transaction, len(l.txns))
	copy(out, l.txns)
	return out
}

// Debts returns a copy of the current debt list.
func (l *Ledger) Debts() []core.Debt {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Debt, len(l.debts))
	copy(out, l.debts)
	return out
}

// AddTransaction validates and appends a transaction. A blank ID gets a
// generated one and a zero date gets the current time; both are then
// immutable.
func (l *Ledger) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if strings.TrimSpace(tx.ID) == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	for _, existing := range l.txns {
		if existing.ID == tx.ID {
			l.mu.Unlock()
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, ErrDuplicateID)
		}
	}
	l.txns = append([]core.Transaction{tx}, l.txns...)
	l.persistTransactions(ctx)
	l.mu.Unlock()

	l.publish(ctx, OpTransactionCreated, tx.ID)
	return tx, nil
}

// DeleteTransaction removes a transaction by id. Capability-gated.
func (l *Ledger) DeleteTransaction(ctx context.Context, id string) error {
	if l.restricted {
		return ErrRestricted
	}

	l.mu.Lock()
	idx := -1
	for i, tx := range l.txns {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	l.txns = append(l.txns[:idx], l.txns[idx+1:]...)
	l.persistTransactions(ctx)
	l.mu.Unlock()

	l.publish(ctx, OpTransactionDeleted, id)
	return nil
}

// AddDebt validates and appends a new UNPAID debt.
func (l *Ledger) AddDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	if strings.TrimSpace(d.ID) == "" {
		d.ID = uuid.NewString()
	}
	if d.Date.IsZero() {
		d.Date = time.Now()
	}
	if d.Status == "" {
		d.Status = core.Unpaid
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.debts {
		if existing.ID == d.ID {
			return core.Debt{}, fmt.Errorf("debt %s: %w", d.ID, ErrDuplicateID)
		}
	}
	l.debts = append([]core.Debt{d}, l.debts...)
	l.persistDebts(ctx)
	return d, nil
}

// DeleteDebt removes a debt by id. No cascading: an income transaction
// created by an earlier settlement survives. Capability-gated.
func (l *Ledger) DeleteDebt(ctx context.Context, id string) error {
	if l.restricted {
		return ErrRestricted
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, d := range l.debts {
		if d.ID == id {
			l.debts = append(l.debts[:i], l.debts[i+1:]...)
			l.persistDebts(ctx)
			return nil
		}
	}
	return fmt.Errorf("debt %s: %w", id, ErrNotFound)
}

// SettleDebt marks an UNPAID debt PAID and records the matching INCOME
// transaction under the chosen payment method. Both effects commit
// together; on any error neither happens. Capability-gated.
func (l *Ledger) SettleDebt(ctx context.Context, id string, method core.PaymentMethod) (core.Transaction, error) {
	if l.restricted {
		return core.Transaction{}, ErrRestricted
	}
	if !method.Valid() {
		return core.Transaction{}, core.ErrInvalidMethod
	}

	l.mu.Lock()
	idx := -1
	for i, d := range l.debts {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	if l.debts[idx].Status == core.Paid {
		l.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("debt %s: %w", id, ErrAlreadySettled)
	}

	debt := l.debts[idx]
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Description: fmt.Sprintf("Debt payment from %s: %s", debt.ClientName, debt.Description),
		Amount:      debt.Amount,
		Type:        core.Income,
		Method:      method,
		Date:        time.Now(),
	}

	l.debts[idx].Status = core.Paid
	l.txns = append([]core.Transaction{tx}, l.txns...)
	l.persistDebts(ctx)
	l.persistTransactions(ctx)
	l.mu.Unlock()

	slog.InfoContext(ctx, "Debt settled",
		"debt_id", debt.ID,
		"client", debt.ClientName,
		"amount", debt.Amount.String(),
		"method", string(method),
		"transaction_id", tx.ID)
	l.publish(ctx, OpDebtSettled, debt.ID)
	l.publish(ctx, OpTransactionCreated, tx.ID)
	return tx, nil
}

// ImportTransactions merges parsed rows into the collection: rows whose id
// already exists are discarded, survivors are prepended in their input
// order. Returns the number of transactions actually imported.
func (l *Ledger) ImportTransactions(ctx context.Context, incoming []core.Transaction) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := make(map[string]bool, len(l.txns))
	for _, tx := range l.txns {
		existing[tx.ID] = true
	}

	var fresh []core.Transaction
	for _, tx := range incoming {
		if existing[tx.ID] {
			slog.InfoContext(ctx, "Skipping already-imported transaction", "id", tx.ID)
			continue
		}
		existing[tx.ID] = true
		fresh = append(fresh, tx)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	l.txns = append(fresh, l.txns...)
	l.persistTransactions(ctx)
	return len(fresh), nil
}

// persistTransactions writes the full collection under its key. Write
// failures are logged and dropped; in-memory state stays authoritative for
// the session. Callers must hold the mutex.
func (l *Ledger) persistTransactions(ctx context.Context) {
	raw, err := json.Marshal(l.txns)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode transactions", "error", err)
		return
	}
	if err := l.store.Set(ctx, KeyTransactions, raw); err != nil {
		slog.ErrorContext(ctx, "Failed to persist transactions", "error", err, "key", KeyTransactions)
	}
}

func (l *Ledger) persistDebts(ctx context.Context) {
	raw, err := json.Marshal(l.debts)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode debts", "error", err)
		return
	}
	if err := l.store.Set(ctx, KeyDebts, raw); err != nil {
		slog.ErrorContext(ctx, "Failed to persist debts", "error", err, "key", KeyDebts)
	}
}

func (l *Ledger) publish(ctx context.Context, op, id string) {
	if l.pub == nil {
		return
	}
	if err := l.pub.PublishLedgerEvent(ctx, op, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event", "error", err, "op", op, "id", id)
	}
}
