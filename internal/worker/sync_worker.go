// Package worker pushes bills written locally to the remote record store.
// The app process persists to SQLite and publishes ids; the worker owns
// every remote write so the UI path never blocks on the remote API.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/store"
)

// LocalStore is the local source of truth the worker reads from and where
// it records sync progress.
type LocalStore interface {
	GetBill(ctx context.Context, id string) (core.Bill, error)
	ListPendingSync(ctx context.Context, limit int) ([]string, error)
	MarkSynced(ctx context.Context, id string) error
}

// RemoteStore is the subset of store ports the worker drives.
type RemoteStore interface {
	store.BillWriter
	store.BillUpdater
	store.BillDeleter
}

type SyncWorker struct {
	local     LocalStore
	remote    RemoteStore
	batchSize int
}

func NewSyncWorker(local LocalStore, remote RemoteStore, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SyncWorker{local: local, remote: remote, batchSize: batchSize}
}

// HandleSyncMessage upserts one bill remotely: the current protocol state
// is patched onto the remote record, and an unknown id falls back to
// creating the record. Reading the row at handling time (not publish time)
// means redeliveries always push the latest state.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BillSyncMessage) error {
	return w.syncBill(ctx, msg.ID)
}

func (w *SyncWorker) syncBill(ctx context.Context, id string) error {
	bill, err := w.local.GetBill(ctx, id)
	if core.IsNotFound(err) {
		// Deleted locally between publish and handling; the delete
		// message will follow.
		slog.WarnContext(ctx, "Bill gone from local store, skipping sync", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read bill %s: %w", id, err)
	}

	patch := store.BillPatch{
		IsProtocoled:  &bill.IsProtocoled,
		InvoiceNumber: &bill.InvoiceNumber,
		BoletoNumber:  &bill.BoletoNumber,
	}
	if !bill.ProtocoledAt.IsZero() {
		at := bill.ProtocoledAt
		patch.ProtocoledAt = &at
	}

	err = w.remote.UpdateBill(ctx, bill.ID, patch)
	if core.IsNotFound(err) {
		if err := w.remote.CreateBills(ctx, []core.Bill{bill}); err != nil {
			return fmt.Errorf("create bill %s remotely: %w", bill.ID, err)
		}
		w.markSynced(ctx, bill.ID)
		slog.InfoContext(ctx, "Bill created remotely", "id", bill.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("update bill %s remotely: %w", bill.ID, err)
	}

	w.markSynced(ctx, bill.ID)
	slog.InfoContext(ctx, "Bill synced remotely", "id", bill.ID)
	return nil
}

func (w *SyncWorker) markSynced(ctx context.Context, id string) {
	if err := w.local.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark bill synced", "id", id, "error", err)
	}
}

// ProcessPending mirrors bills whose sync message never arrived, one batch
// per call. This is the backup path for messages lost while the broker or
// the worker was down; per-bill failures are logged and retried on the
// next sweep.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.local.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending bills: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending bills", "count", len(ids))
	for _, id := range ids {
		if err := w.syncBill(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending bill", "id", id, "error", err)
		}
	}
	return nil
}

// StartupCheck drains a larger pending batch once at worker start, covering
// bills written while the worker was not running.
func (w *SyncWorker) StartupCheck(ctx context.Context) error {
	ids, err := w.local.ListPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending bills for startup check: %w", err)
	}
	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending bills found on startup")
		return nil
	}

	synced := 0
	failed := 0
	for _, id := range ids {
		if err := w.syncBill(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to sync bill during startup", "id", id, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(ids),
		"synced", synced,
		"errors", failed)
	return nil
}

// HandleDeleteMessage removes one bill remotely. An id the remote does not
// know is treated as done.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.BillDeleteMessage) error {
	err := w.remote.DeleteBill(ctx, msg.ID)
	if core.IsNotFound(err) {
		slog.WarnContext(ctx, "Bill already gone remotely", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete bill %s remotely: %w", msg.ID, err)
	}

	slog.InfoContext(ctx, "Bill deleted remotely", "id", msg.ID)
	return nil
}
