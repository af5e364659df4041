package backend

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"contas/internal/kv"
	"contas/internal/storage"
	"contas/internal/store/memory"
	"contas/internal/store/nocodb"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case NocoDBBackend:
		return f.createNocoDBBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createNocoDBBackend(config Config) (*Result, error) {
	client := nocodb.NewClient(config.NocoDBBaseURL, config.NocoDBToken, config.NocoDBProjectID)

	tables := nocodb.Tables{
		Sectors:     config.Tables.Sectors,
		Bills:       config.Tables.Bills,
		Companies:   config.Tables.Companies,
		Categories:  config.Tables.Categories,
		Generations: config.Tables.Generations,
	}
	links := nocodb.Links{
		SectorBills:     config.Links.SectorBills,
		BillSector:      config.Links.BillSector,
		BillCompany:     config.Links.BillCompany,
		BillCategory:    config.Links.BillCategory,
		BillGenerations: config.Links.BillGenerations,
	}

	// The sector id cache survives restarts; a failure here only costs one
	// extra lookup.
	var local kv.Store
	if config.DataDirectory != "" {
		fileStore, err := kv.NewFileStore(filepath.Join(config.DataDirectory, "state.json"))
		if err != nil {
			f.logger.Warn("Failed to open local state store, continuing without cache", "error", err)
		} else {
			local = fileStore
		}
	}

	fields := nocodb.DefaultFieldMap()
	scope := nocodb.NewScope(client, tables, fields, config.SectorEmail, local)
	adapter := nocodb.NewAdapter(client, tables, links, fields, scope)

	f.logger.Info("Initialized NocoDB backend",
		"base_url", config.NocoDBBaseURL,
		"project", config.NocoDBProjectID)

	return &Result{Store: adapter, Cleanup: nil}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	local, err := kv.NewFileStore(filepath.Join(dataDir, "bills.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}

	st, err := memory.NewPersistent(local)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored bills: %w", err)
	}
	if config.SeedDemoData {
		st.Seed(time.Now())
	}

	f.logger.Info("Initialized memory backend",
		"data_directory", dataDir,
		"seeded", config.SeedDemoData)

	return &Result{Store: st, Cleanup: nil}, nil
}
