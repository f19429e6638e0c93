package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bloombook/internal/amqp"
	"bloombook/internal/core"
	"bloombook/internal/ledger"
	"bloombook/internal/sheets"
)

// SyncWorker mirrors committed ledger changes into the configured sheet.
// It reads current state from the durable store on every event, so replayed
// or out-of-order deliveries converge on the same result.
type SyncWorker struct {
	store   ledger.Store
	writer  sheets.TransactionWriter
	remover sheets.TransactionRemover

	mirrored map[string]bool
}

func NewSyncWorker(store ledger.Store, writer sheets.TransactionWriter, remover sheets.TransactionRemover) *SyncWorker {
	return &SyncWorker{
		store:    store,
		writer:   writer,
		remover:  remover,
		mirrored: make(map[string]bool),
	}
}

// Seed marks the given transaction ids as already mirrored. Worker mains
// call this at startup with the ids read back from the sheet so restarts
// do not duplicate rows.
func (w *SyncWorker) Seed(ids []string) {
	for _, id := range ids {
		w.mirrored[id] = true
	}
}

// HandleEvent processes one ledger change event.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event", "op", msg.Op, "id", msg.ID)

	switch msg.Op {
	case ledger.OpTransactionCreated:
		return w.mirrorTransaction(ctx, msg.ID)
	case ledger.OpTransactionDeleted:
		return w.removeTransaction(ctx, msg.ID)
	case ledger.OpDebtSettled:
		// The settlement income arrives as its own transaction.created
		// event; the debt itself is not mirrored.
		return nil
	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, id string) error {
	tx, err := w.findTransaction(ctx, id)
	if err != nil {
		return err
	}
	if tx == nil {
		// Deleted before we got here; nothing to mirror.
		slog.WarnContext(ctx, "Transaction vanished before mirroring", "id", id)
		return nil
	}
	if w.mirrored[id] {
		slog.InfoContext(ctx, "Transaction already mirrored, skipping", "id", id)
		return nil
	}

	ref, err := w.writer.AppendTransaction(ctx, *tx)
	if err != nil {
		return fmt.Errorf("mirror transaction %s: %w", id, err)
	}
	w.mirrored[id] = true
	slog.InfoContext(ctx, "Transaction mirrored", "id", id, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) removeTransaction(ctx context.Context, id string) error {
	if w.remover == nil {
		slog.WarnContext(ctx, "No remover configured, skipping delete mirror", "id", id)
		return nil
	}
	if err := w.remover.RemoveTransaction(ctx, id); err != nil {
		return fmt.Errorf("remove mirrored transaction %s: %w", id, err)
	}
	delete(w.mirrored, id)
	return nil
}

func (w *SyncWorker) findTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	txns, err := ledger.LoadTransactions(ctx, w.store)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	for i := range txns {
		if txns[i].ID == id {
			return &txns[i], nil
		}
	}
	return nil, nil
}

// Resync mirrors every transaction that has not been mirrored in this
// worker's lifetime. Run periodically to heal missed events.
func (w *SyncWorker) Resync(ctx context.Context) error {
	txns, err := ledger.LoadTransactions(ctx, w.store)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	synced := 0
	for _, tx := range txns {
		if w.mirrored[tx.ID] {
			continue
		}
		if _, err := w.writer.AppendTransaction(ctx, tx); err != nil {
			return fmt.Errorf("resync transaction %s: %w", tx.ID, err)
		}
		w.mirrored[tx.ID] = true
		synced++
	}
	if synced > 0 {
		slog.InfoContext(ctx, "Resync complete", "mirrored", synced, "total", len(txns))
	}
	return nil
}
