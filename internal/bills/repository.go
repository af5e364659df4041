// Package bills owns the canonical bill list and every mutation on it:
// creation (single or recurring), the one-way protocol flip and deletion.
// Mutations update memory synchronously and write through to the backing
// store; a store failure is surfaced but never rolls the memory state back.
package bills

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"contas/internal/core"
	"contas/internal/store"

	"github.com/google/uuid"
)

// Clock supplies "now"; injected so status math is testable.
type Clock func() time.Time

// Publisher is the optional async sync channel (AMQP in production). A nil
// publisher disables sync messages; publish failures never fail the caller.
type Publisher interface {
	PublishBillSync(ctx context.Context, id string) error
	PublishBillDelete(ctx context.Context, id string) error
}

// Stats is the dashboard header summary, recomputed on every read.
type Stats struct {
	Total       int
	Pending     int
	DueSoon     int
	Overdue     int
	Protocoled  int
	Outstanding core.Money
}

type Repository struct {
	mu    sync.Mutex
	store store.Store
	clock Clock
	pub   Publisher
	bills []core.Bill
}

func NewRepository(st store.Store, clock Clock, pub Publisher) *Repository {
	if clock == nil {
		clock = time.Now
	}
	return &Repository{store: st, clock: clock, pub: pub}
}

// Load replaces the in-memory list with the store's current contents. Reads
// after a failed Load keep serving the last good snapshot.
func (r *Repository) Load(ctx context.Context) error {
	bills, err := r.store.ListBills(ctx)
	if err != nil {
		return core.NewStoreError("list", core.StoreUnavailable, err)
	}
	r.mu.Lock()
	r.bills = bills
	r.mu.Unlock()
	slog.InfoContext(ctx, "Loaded bills from store", "count", len(bills))
	return nil
}

// Snapshot returns a copy of the current list for query and analytics
// consumers. Read-your-writes: it reflects every completed mutation even if
// its persistence failed.
func (r *Repository) Snapshot() []core.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Bill(nil), r.bills...)
}

// Add validates the draft and creates one bill, or a whole series when rec
// is non-nil. Every bill of a series shares name, amount, references and
// CreatedAt, differing only in id and due date. The created bills are
// returned even when persistence fails, together with the store error.
func (r *Repository) Add(ctx context.Context, draft core.BillDraft, rec *core.Recurrence) ([]core.Bill, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	recurrence := core.Recurrence{IntervalMonths: 1, Count: 1}
	if rec != nil {
		recurrence = *rec
	}
	dates, err := core.DueDates(draft.DueDate, recurrence)
	if err != nil {
		return nil, err
	}

	now := r.clock()
	created := make([]core.Bill, len(dates))
	for i, due := range dates {
		created[i] = core.Bill{
			ID:            uuid.NewString(),
			Name:          draft.Name,
			Description:   draft.Description,
			Amount:        draft.Amount,
			DueDate:       due,
			Category:      draft.Category,
			Company:       draft.Company,
			InvoiceNumber: draft.InvoiceNumber,
			BoletoNumber:  draft.BoletoNumber,
			CreatedAt:     now,
		}
	}

	r.mu.Lock()
	r.bills = append(r.bills, created...)
	r.mu.Unlock()

	if err := r.store.CreateBills(ctx, created); err != nil {
		return created, core.NewStoreError("create", core.StoreUnavailable, err)
	}

	for _, b := range created {
		r.publishSync(ctx, b.ID)
	}
	slog.InfoContext(ctx, "Bills created",
		"count", len(created),
		"name", draft.Name,
		"recurring", rec != nil)
	return created, nil
}

// MarkProtocoled flips the bill into its terminal protocoled state. The
// flip is one-way: ProtocoledAt is set on the first call and never cleared
// or moved. Reference numbers merge, they never erase: an empty payload
// field keeps whatever is stored.
func (r *Repository) MarkProtocoled(ctx context.Context, id string, payload *core.ProtocolPayload) (core.Bill, error) {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return core.Bill{}, &core.NotFoundError{ID: id}
	}

	b := &r.bills[idx]
	patch := store.BillPatch{}
	if !b.IsProtocoled {
		b.IsProtocoled = true
		b.ProtocoledAt = r.clock()
		yes := true
		patch.IsProtocoled = &yes
		at := b.ProtocoledAt
		patch.ProtocoledAt = &at
	}
	if payload != nil {
		if v := trimmed(payload.InvoiceNumber); v != "" {
			b.InvoiceNumber = v
			patch.InvoiceNumber = &v
		}
		if v := trimmed(payload.BoletoNumber); v != "" {
			b.BoletoNumber = v
			patch.BoletoNumber = &v
		}
	}
	updated := *b
	r.mu.Unlock()

	if err := r.store.UpdateBill(ctx, id, patch); err != nil {
		if core.IsNotFound(err) {
			return updated, err
		}
		return updated, core.NewStoreError("update", core.StoreUnavailable, err)
	}
	r.publishSync(ctx, id)
	slog.InfoContext(ctx, "Bill protocoled", "id", id)
	return updated, nil
}

// Remove deletes the bill unconditionally. No soft delete.
func (r *Repository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		return &core.NotFoundError{ID: id}
	}
	r.bills = append(r.bills[:idx], r.bills[idx+1:]...)
	r.mu.Unlock()

	if err := r.store.DeleteBill(ctx, id); err != nil && !core.IsNotFound(err) {
		return core.NewStoreError("delete", core.StoreUnavailable, err)
	}
	if r.pub != nil {
		if err := r.pub.PublishBillDelete(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
		}
	}
	slog.InfoContext(ctx, "Bill removed", "id", id)
	return nil
}

// Stats derives the header counters from the current list.
func (r *Repository) Stats() Stats {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Total: len(r.bills)}
	for _, b := range r.bills {
		switch core.Status(b, now) {
		case core.StatusProtocoled:
			s.Protocoled++
		case core.StatusPending:
			s.Pending++
		case core.StatusDueSoon:
			s.DueSoon++
		case core.StatusOverdue:
			s.Overdue++
		}
		if !b.IsProtocoled {
			s.Outstanding = s.Outstanding.Add(b.Amount)
		}
	}
	return s
}

// Get returns the bill with the given id.
func (r *Repository) Get(id string) (core.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		return r.bills[idx], nil
	}
	return core.Bill{}, &core.NotFoundError{ID: id}
}

func (r *Repository) indexOf(id string) int {
	for i := range r.bills {
		if r.bills[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) publishSync(ctx context.Context, id string) {
	if r.pub == nil {
		return
	}
	if err := r.pub.PublishBillSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
