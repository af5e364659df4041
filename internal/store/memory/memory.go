// Package memory implements the bill store in process memory, optionally
// mirrored to the local key-value store. It is the fallback data layer when
// no remote backend is configured, and the test double everywhere else.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"contas/internal/core"
	"contas/internal/kv"
	"contas/internal/store"
)

const billsKey = "contas/bills"

type Store struct {
	mu    sync.Mutex
	items []core.Bill
	local kv.Store // nil when persistence is off
}

func New() *Store {
	return &Store{}
}

// NewPersistent loads any previously saved list from local and mirrors
// every mutation back to it.
func NewPersistent(local kv.Store) (*Store, error) {
	s := &Store{local: local}
	raw, ok, err := local.Get(billsKey)
	if err != nil {
		return nil, fmt.Errorf("load local bills: %w", err)
	}
	if ok && raw != "" {
		items, err := decodeBills(raw)
		if err != nil {
			return nil, fmt.Errorf("decode local bills: %w", err)
		}
		s.items = items
	}
	return s, nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill(nil), s.items...), nil
}

func (s *Store) CreateBills(_ context.Context, bills []core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, bills...)
	return s.persist("create")
}

func (s *Store) UpdateBill(_ context.Context, id string, patch store.BillPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		applyPatch(&s.items[i], patch)
		return s.persist("update")
	}
	return &core.NotFoundError{ID: id}
}

func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return s.persist("delete")
		}
	}
	return &core.NotFoundError{ID: id}
}

func applyPatch(b *core.Bill, patch store.BillPatch) {
	if patch.IsProtocoled != nil {
		b.IsProtocoled = *patch.IsProtocoled
	}
	if patch.ProtocoledAt != nil {
		b.ProtocoledAt = *patch.ProtocoledAt
	}
	if patch.InvoiceNumber != nil {
		b.InvoiceNumber = *patch.InvoiceNumber
	}
	if patch.BoletoNumber != nil {
		b.BoletoNumber = *patch.BoletoNumber
	}
}

func (s *Store) persist(op string) error {
	if s.local == nil {
		return nil
	}
	raw, err := encodeBills(s.items)
	if err != nil {
		return core.NewStoreError(op, core.StoreRejected, err)
	}
	if err := s.local.Set(billsKey, raw); err != nil {
		return core.NewStoreError(op, core.StoreUnavailable, err)
	}
	return nil
}

// billRecord is the local persistence shape: dates as plain strings so the
// file never carries timezone offsets.
type billRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	AmountCents   int64     `json:"amountCents"`
	DueDate       string    `json:"dueDate"`
	Category      string    `json:"category,omitempty"`
	Company       string    `json:"company,omitempty"`
	IsProtocoled  bool      `json:"isProtocoled"`
	ProtocoledAt  time.Time `json:"protocoledAt"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	BoletoNumber  string    `json:"boletoNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func encodeBills(bills []core.Bill) (string, error) {
	records := make([]billRecord, len(bills))
	for i, b := range bills {
		records[i] = billRecord{
			ID:            b.ID,
			Name:          b.Name,
			Description:   b.Description,
			AmountCents:   b.Amount.Cents,
			DueDate:       b.DueDate.String(),
			Category:      string(b.Category),
			Company:       b.Company,
			IsProtocoled:  b.IsProtocoled,
			ProtocoledAt:  b.ProtocoledAt,
			InvoiceNumber: b.InvoiceNumber,
			BoletoNumber:  b.BoletoNumber,
			CreatedAt:     b.CreatedAt,
		}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeBills(raw string) ([]core.Bill, error) {
	var records []billRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, err
	}
	bills := make([]core.Bill, len(records))
	for i, r := range records {
		var due core.Date
		if r.DueDate != "" {
			d, err := core.ParseLocalDate(r.DueDate)
			if err == nil {
				due = d
			}
			// A malformed stored date degrades to the zero sentinel.
		}
		bills[i] = core.Bill{
			ID:            r.ID,
			Name:          r.Name,
			Description:   r.Description,
			Amount:        core.Money{Cents: r.AmountCents},
			DueDate:       due,
			Category:      core.Category(r.Category),
			Company:       r.Company,
			IsProtocoled:  r.IsProtocoled,
			ProtocoledAt:  r.ProtocoledAt,
			InvoiceNumber: r.InvoiceNumber,
			BoletoNumber:  r.BoletoNumber,
			CreatedAt:     r.CreatedAt,
		}
	}
	return bills, nil
}
