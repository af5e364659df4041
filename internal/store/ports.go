// Package store defines the ports every backing store adapter implements.
// The repository talks to exactly one Store; there is no runtime capability
// probing.
package store

import (
	"context"
	"time"

	"contas/internal/core"
)

// BillPatch is a partial update. Nil fields keep the stored value, which is
// how reference numbers survive a protocol action that omits them.
type BillPatch struct {
	IsProtocoled  *bool
	ProtocoledAt  *time.Time
	InvoiceNumber *string
	BoletoNumber  *string
}

// Ports for outbound adapters.
type (
	BillLister interface {
		ListBills(ctx context.Context) ([]core.Bill, error)
	}

	BillWriter interface {
		// CreateBills persists a batch atomically from the caller's point of
		// view: a recurrence expansion is stored as one request.
		CreateBills(ctx context.Context, bills []core.Bill) error
	}

	BillUpdater interface {
		UpdateBill(ctx context.Context, id string, patch BillPatch) error
	}

	BillDeleter interface {
		DeleteBill(ctx context.Context, id string) error
	}

	// Linker is implemented by record-and-link stores. Re-linking an
	// already-linked pair is a no-op, not an error.
	Linker interface {
		LinkEntities(ctx context.Context, parentID, relation string, childIDs []string) error
	}
)

// Store is the full capability set the bill repository requires.
type Store interface {
	BillLister
	BillWriter
	BillUpdater
	BillDeleter
}
