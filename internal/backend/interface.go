// Package backend selects and wires a bill store implementation from
// configuration.
package backend

import (
	"context"

	"contas/internal/store"
)

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function.
type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// NocoDB specific
	NocoDBBaseURL   string
	NocoDBToken     string
	NocoDBProjectID string
	SectorEmail     string
	Tables          TableIDs
	Links           LinkIDs

	// Memory backend specific
	DataDirectory string
	SeedDemoData  bool
}

// TableIDs carries the remote table ids for the nocodb backend.
type TableIDs struct {
	Sectors     string
	Bills       string
	Companies   string
	Categories  string
	Generations string
}

// LinkIDs carries the remote link-field ids for the nocodb backend.
type LinkIDs struct {
	SectorBills     string
	BillSector      string
	BillCompany     string
	BillCategory    string
	BillGenerations string
}

// Type represents the kind of backing store.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	NocoDBBackend Type = "nocodb"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, NocoDBBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
