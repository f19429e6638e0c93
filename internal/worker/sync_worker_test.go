package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bloombook/internal/amqp"
	"bloombook/internal/core"
	"bloombook/internal/ledger"
	"bloombook/internal/storage"
)

type fakeMirror struct {
	appended []string
	removed  []string
}

func (f *fakeMirror) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	f.appended = append(f.appended, tx.ID)
	return "Ledger!A2:F2", nil
}

func (f *fakeMirror) RemoveTransaction(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

func seedStore(t *testing.T, txns []core.Transaction) *storage.Memory {
	t.Helper()
	store := storage.NewMemory()
	raw, err := json.Marshal(txns)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Set(context.Background(), ledger.KeyTransactions, raw); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Description: "tx " + id,
		Amount:      decimal.NewFromInt(10),
		Type:        core.Income,
		Method:      core.Cash,
		Date:        time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandleEventMirrorsCreated(t *testing.T) {
	store := seedStore(t, []core.Transaction{sampleTx("a"), sampleTx("b")})
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, mirror)

	msg := amqp.NewLedgerEventMessage(ledger.OpTransactionCreated, "a")
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(mirror.appended) != 1 || mirror.appended[0] != "a" {
		t.Fatalf("expected [a], got %v", mirror.appended)
	}

	// Redelivery is idempotent.
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(mirror.appended) != 1 {
		t.Fatalf("redelivery must not append again, got %v", mirror.appended)
	}
}

func TestHandleEventVanishedTransaction(t *testing.T) {
	store := seedStore(t, nil)
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, mirror)

	msg := amqp.NewLedgerEventMessage(ledger.OpTransactionCreated, "gone")
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("vanished transaction should not error: %v", err)
	}
	if len(mirror.appended) != 0 {
		t.Fatalf("nothing should be mirrored, got %v", mirror.appended)
	}
}

func TestHandleEventDelete(t *testing.T) {
	store := seedStore(t, nil)
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, mirror)

	msg := amqp.NewLedgerEventMessage(ledger.OpTransactionDeleted, "x")
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(mirror.removed) != 1 || mirror.removed[0] != "x" {
		t.Fatalf("expected removed [x], got %v", mirror.removed)
	}
}

func TestResyncSkipsSeeded(t *testing.T) {
	store := seedStore(t, []core.Transaction{sampleTx("a"), sampleTx("b"), sampleTx("c")})
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, mirror)
	w.Seed([]string{"a"})

	if err := w.Resync(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(mirror.appended) != 2 {
		t.Fatalf("expected 2 mirrored, got %v", mirror.appended)
	}

	// A second resync mirrors nothing new.
	if err := w.Resync(context.Background()); err != nil {
		t.Fatalf("second resync: %v", err)
	}
	if len(mirror.appended) != 2 {
		t.Fatalf("second resync should be a no-op, got %v", mirror.appended)
	}
}
