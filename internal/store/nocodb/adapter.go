package nocodb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/core"
	"contas/internal/kv"
	"contas/internal/store"
)

// Tables holds the remote table ids the adapter touches.
type Tables struct {
	Sectors     string
	Bills       string
	Companies   string
	Categories  string
	Generations string
}

// Links holds the link-field ids between the tables.
type Links struct {
	SectorBills     string
	BillSector      string
	BillCompany     string
	BillCategory    string
	BillGenerations string
}

const (
	sectorIDKey = "nc_setor_id"

	labelCacheSize = 512
	labelCacheTTL  = 10 * time.Minute

	// Link label fetches per listing run in parallel, bounded so a big
	// sector does not flood the server.
	linkFetchConcurrency = 4
)

// Scope pins every operation to the sector record matching the configured
// email. The resolved id is cached in the local kv store across restarts.
type Scope struct {
	client *Client
	tables Tables
	fields FieldMap
	email  string
	local  kv.Store

	mu sync.Mutex
	id string
}

func NewScope(client *Client, tables Tables, fields FieldMap, email string, local kv.Store) *Scope {
	return &Scope{client: client, tables: tables, fields: fields, email: email, local: local}
}

// Resolve returns the sector record id, looking it up remotely on first
// use.
func (s *Scope) Resolve(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return s.id, nil
	}
	if s.local != nil {
		if cached, ok, err := s.local.Get(sectorIDKey); err == nil && ok && cached != "" {
			s.id = cached
			return cached, nil
		}
	}

	records, err := s.client.ListRecords(ctx, s.tables.Sectors, ListParams{
		Where:    fmt.Sprintf("(%s,eq,%s)", column(s.fields.Email), s.email),
		PageSize: 1,
	})
	if err != nil {
		return "", fmt.Errorf("resolve sector: %w", err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("resolve sector: no record for email %s", s.email)
	}

	s.id = string(records[0].ID)
	if s.local != nil {
		if err := s.local.Set(sectorIDKey, s.id); err != nil {
			slog.WarnContext(ctx, "Failed to cache sector id", "error", err)
		}
	}
	return s.id, nil
}

// Invalidate drops the cached sector id, forcing the next call to resolve
// again. Used when the remote rejects the id as stale.
func (s *Scope) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	if s.local != nil {
		if err := s.local.Delete(sectorIDKey); err != nil {
			slog.Warn("Failed to drop cached sector id", "error", err)
		}
	}
}

// Adapter implements the bill store ports against a record-and-link
// backend.
type Adapter struct {
	client *Client
	tables Tables
	links  Links
	fields FieldMap
	scope  *Scope
	labels *kv.TTLCache[string]
}

func NewAdapter(client *Client, tables Tables, links Links, fields FieldMap, scope *Scope) *Adapter {
	return &Adapter{
		client: client,
		tables: tables,
		links:  links,
		fields: fields,
		scope:  scope,
		labels: kv.NewTTLCache[string](labelCacheSize, labelCacheTTL),
	}
}

// ListBills loads every bill linked to the sector. A record with a due
// date yields one bill; a recurring record without one yields one bill
// per linked competency generation, reattempting the record's due day in
// each competency month.
func (a *Adapter) ListBills(ctx context.Context) ([]core.Bill, error) {
	sectorID, err := a.scope.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	records, err := a.client.ListLinks(ctx, a.tables.Sectors, a.links.SectorBills, sectorID)
	if err != nil {
		return nil, fmt.Errorf("list sector bills: %w", err)
	}

	results := make([][]core.Bill, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(linkFetchConcurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			bills, err := a.expandRecord(gctx, rec)
			if err != nil {
				return err
			}
			results[i] = bills
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var bills []core.Bill
	for _, batch := range results {
		bills = append(bills, batch...)
	}
	return bills, nil
}

func (a *Adapter) expandRecord(ctx context.Context, rec Record) ([]core.Bill, error) {
	recID := string(rec.ID)
	f := rec.Fields

	base := core.Bill{
		ID:            recID,
		Name:          fieldString(f, a.fields.Name...),
		Description:   fieldString(f, a.fields.Description...),
		Company:       a.linkedLabel(ctx, recID, a.links.BillCompany, a.fields.Company),
		Category:      core.Category(core.NormalizeKey(a.linkedLabel(ctx, recID, a.links.BillCategory, a.fields.Category))),
		IsProtocoled:  fieldBool(f, a.fields.Protocoled...),
		InvoiceNumber: fieldString(f, a.fields.Invoice...),
		BoletoNumber:  fieldString(f, a.fields.Boleto...),
	}

	if raw, ok := fieldValue(f, a.fields.Amount...); ok {
		amount, err := core.ParseMoney(stringify(raw))
		if err != nil {
			slog.WarnContext(ctx, "Unparseable bill amount", "record", recID, "value", raw)
		} else {
			base.Amount = amount
		}
	}

	// A concrete due date means a single bill, no expansion.
	if raw := fieldString(f, a.fields.DueDate...); raw != "" {
		if d, err := core.ParseExternalDate(raw); err == nil {
			base.DueDate = d
		} else {
			slog.WarnContext(ctx, "Unparseable due date", "record", recID, "value", raw)
		}
		return []core.Bill{base}, nil
	}

	generations, err := a.client.ListLinks(ctx, a.tables.Bills, a.links.BillGenerations, recID)
	if err != nil {
		return nil, fmt.Errorf("list generations for %s: %w", recID, err)
	}

	dueDay := fieldInt(f, 1, a.fields.DueDay...)
	var bills []core.Bill
	for _, gen := range generations {
		comp := fieldString(gen.Fields, a.fields.Competency...)
		basis, err := core.ParseCompetency(comp)
		if err != nil {
			continue
		}
		b := base
		b.ID = string(gen.ID)
		b.DueDate = core.ClampedDateForDay(basis.Year(), int(basis.Month()), dueDay)
		bills = append(bills, b)
	}
	return bills, nil
}

// linkedLabel resolves the label of the first record linked through the
// given field, with a TTL cache so repeated listings skip the extra round
// trips. Label failures degrade to an empty label rather than failing the
// listing.
func (a *Adapter) linkedLabel(ctx context.Context, recordID, linkFieldID string, labelField []string) string {
	cacheKey := linkFieldID + "/" + recordID
	if label, ok := a.labels.Get(cacheKey); ok {
		return label
	}

	linked, err := a.client.ListLinks(ctx, a.tables.Bills, linkFieldID, recordID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve linked label", "record", recordID, "error", err)
		return ""
	}
	label := ""
	if len(linked) > 0 {
		label = fieldString(linked[0].Fields, labelField...)
	}
	a.labels.Set(cacheKey, label)
	return label
}

// CreateBills creates one record per bill and links each to the sector.
func (a *Adapter) CreateBills(ctx context.Context, bills []core.Bill) error {
	if len(bills) == 0 {
		return nil
	}
	sectorID, err := a.scope.Resolve(ctx)
	if err != nil {
		return err
	}

	fields := make([]map[string]any, len(bills))
	for i, b := range bills {
		fields[i] = map[string]any{
			column(a.fields.Name):        b.Name,
			column(a.fields.Description): b.Description,
			column(a.fields.Amount):      b.Amount.Reais(),
			column(a.fields.DueDay):      b.DueDate.Day(),
			column(a.fields.DueDate):     b.DueDate.String(),
		}
	}

	created, err := a.client.CreateRecords(ctx, a.tables.Bills, fields)
	if err != nil {
		return fmt.Errorf("create bills: %w", err)
	}

	for _, rec := range created {
		if err := a.client.LinkRecords(ctx, a.tables.Bills, a.links.BillSector, string(rec.ID), []string{sectorID}); err != nil {
			return fmt.Errorf("link bill %s to sector: %w", rec.ID, err)
		}
	}
	return nil
}

// UpdateBill patches the protocol fields on a record. Nil patch fields
// are not sent.
func (a *Adapter) UpdateBill(ctx context.Context, id string, patch store.BillPatch) error {
	fields := map[string]any{}
	if patch.IsProtocoled != nil {
		fields[column(a.fields.Protocoled)] = *patch.IsProtocoled
	}
	if patch.ProtocoledAt != nil {
		fields[column(a.fields.ProtocoledAt)] = patch.ProtocoledAt.Format(time.RFC3339)
	}
	if patch.InvoiceNumber != nil {
		fields[column(a.fields.Invoice)] = *patch.InvoiceNumber
	}
	if patch.BoletoNumber != nil {
		fields[column(a.fields.Boleto)] = *patch.BoletoNumber
	}
	if len(fields) == 0 {
		return nil
	}

	err := a.client.UpdateRecord(ctx, a.tables.Bills, id, fields)
	if ae, ok := err.(*APIError); ok && ae.Status == 404 {
		return &core.NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("update bill %s: %w", id, err)
	}
	return nil
}

// DeleteBill removes a record.
func (a *Adapter) DeleteBill(ctx context.Context, id string) error {
	err := a.client.DeleteRecord(ctx, a.tables.Bills, id)
	if ae, ok := err.(*APIError); ok && ae.Status == 404 {
		return &core.NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	return nil
}

// LinkEntities implements the generic linker port. relation is a link
// field id.
func (a *Adapter) LinkEntities(ctx context.Context, parentID, relation string, childIDs []string) error {
	if err := a.client.LinkRecords(ctx, a.tables.Bills, relation, parentID, childIDs); err != nil {
		return fmt.Errorf("link %s via %s: %w", parentID, relation, err)
	}
	return nil
}

var (
	_ store.Store  = (*Adapter)(nil)
	_ store.Linker = (*Adapter)(nil)
)
