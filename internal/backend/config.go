package backend

import (
	"fmt"

	"contas/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		NocoDBBaseURL:   appConfig.NocoDBBaseURL,
		NocoDBToken:     appConfig.NocoDBToken,
		NocoDBProjectID: appConfig.NocoDBProjectID,
		SectorEmail:     appConfig.SectorEmail,
		Tables: TableIDs{
			Sectors:     appConfig.NocoDBTableSectors,
			Bills:       appConfig.NocoDBTableBills,
			Companies:   appConfig.NocoDBTableCompanies,
			Categories:  appConfig.NocoDBTableCategories,
			Generations: appConfig.NocoDBTableGenerations,
		},
		Links: LinkIDs{
			SectorBills:     appConfig.NocoDBLinkSectorBills,
			BillSector:      appConfig.NocoDBLinkBillSector,
			BillCompany:     appConfig.NocoDBLinkBillCompany,
			BillCategory:    appConfig.NocoDBLinkBillCategory,
			BillGenerations: appConfig.NocoDBLinkBillGenerations,
		},

		DataDirectory: appConfig.DataDir,
		SeedDemoData:  appConfig.SeedDemoData,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case NocoDBBackend:
		if c.NocoDBBaseURL == "" || c.NocoDBToken == "" || c.NocoDBProjectID == "" {
			return fmt.Errorf("NocoDB base URL, token and project id are required for nocodb backend")
		}
		if c.SectorEmail == "" {
			return fmt.Errorf("sector email is required for nocodb backend")
		}
		if c.Tables.Sectors == "" || c.Tables.Bills == "" {
			return fmt.Errorf("NocoDB sector and bill table ids are required for nocodb backend")
		}
		if c.Links.SectorBills == "" || c.Links.BillSector == "" {
			return fmt.Errorf("NocoDB sector-bill link ids are required for nocodb backend")
		}

	case MemoryBackend:
		// DataDirectory defaults to "data" if empty.
	}

	return nil
}
