// Package storage is the SQLite implementation of the bill store ports,
// backed by modernc.org/sqlite and golang-migrate.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"contas/internal/core"
	"contas/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const billColumns = `id, name, description, amount_cents, due_date, category, company,
	is_protocoled, protocoled_at, invoice_number, boleto_number, created_at`

// ListBills implements store.BillLister.
func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills ORDER BY due_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// CreateBills implements store.BillWriter. The batch goes into a single
// transaction so a recurrence expansion is stored all or nothing.
func (r *SQLiteRepository) CreateBills(ctx context.Context, bills []core.Bill) error {
	if len(bills) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create bills: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare create bills: %w", err)
	}
	defer stmt.Close()

	for _, b := range bills {
		var protocoledAt any
		if !b.ProtocoledAt.IsZero() {
			protocoledAt = b.ProtocoledAt
		}
		if _, err := stmt.ExecContext(ctx,
			b.ID, b.Name, b.Description, b.Amount.Cents, b.DueDate.String(),
			string(b.Category), b.Company, b.IsProtocoled, protocoledAt,
			b.InvoiceNumber, b.BoletoNumber, b.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert bill %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create bills: %w", err)
	}

	slog.InfoContext(ctx, "Bills saved to SQLite", "count", len(bills))
	return nil
}

// UpdateBill implements store.BillUpdater. Nil patch fields are left out of
// the SET clause entirely.
func (r *SQLiteRepository) UpdateBill(ctx context.Context, id string, patch store.BillPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.IsProtocoled != nil {
		sets = append(sets, "is_protocoled = ?")
		args = append(args, *patch.IsProtocoled)
	}
	if patch.ProtocoledAt != nil {
		sets = append(sets, "protocoled_at = ?")
		args = append(args, *patch.ProtocoledAt)
	}
	if patch.InvoiceNumber != nil {
		sets = append(sets, "invoice_number = ?")
		args = append(args, *patch.InvoiceNumber)
	}
	if patch.BoletoNumber != nil {
		sets = append(sets, "boleto_number = ?")
		args = append(args, *patch.BoletoNumber)
	}
	if len(sets) == 0 {
		return nil
	}
	// Any local change makes the row pending again so the periodic sweep
	// re-mirrors it even if the sync message is lost.
	sets = append(sets, "synced_at = NULL")
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE bills SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update bill %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bill %s: %w", id, err)
	}
	if affected == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// DeleteBill implements store.BillDeleter.
func (r *SQLiteRepository) DeleteBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	if affected == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// ListPendingSync returns the ids of bills not yet mirrored to the remote
// store, oldest first. The sync worker sweeps these periodically to recover
// from lost messages.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM bills WHERE synced_at IS NULL ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending sync id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	return ids, nil
}

// MarkSynced records that the bill's current state reached the remote store.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bills SET synced_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark bill %s synced: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark bill %s synced: %w", id, err)
	}
	if affected == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// GetBill returns a single bill by id, used by the sync worker.
func (r *SQLiteRepository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, &core.NotFoundError{ID: id}
	}
	return b, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (core.Bill, error) {
	var (
		b            core.Bill
		dueDate      string
		category     string
		protocoledAt sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.Amount.Cents, &dueDate, &category,
		&b.Company, &b.IsProtocoled, &protocoledAt, &b.InvoiceNumber,
		&b.BoletoNumber, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Bill{}, err
		}
		return core.Bill{}, fmt.Errorf("scan bill: %w", err)
	}
	b.Category = core.Category(category)
	if protocoledAt.Valid {
		b.ProtocoledAt = protocoledAt.Time
	}
	// A malformed stored date degrades to the zero sentinel instead of
	// failing the whole listing.
	if d, err := core.ParseLocalDate(dueDate); err == nil {
		b.DueDate = d
	}
	return b, nil
}

var _ store.Store = (*SQLiteRepository)(nil)
