package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dbjohnson/polestar-log-viewer/internal/config"
	"github.com/dbjohnson/polestar-log-viewer/internal/ingest"
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(cfg, store)
}

// executeWithStore runs the import against a provided store (for testing).
func (c *ImportCommand) executeWithStore(cfg *config.Config, store storage.Store) error {
	f, err := os.Open(c.Args.File)
	if err != nil {
		return fmt.Errorf("open trip log: %w", err)
	}
	defer f.Close()

	res, err := ingest.Import(context.Background(), store, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", c.Args.File, err)
	}

	// Align the display preference with the data just imported, so a
	// metric export shows up in metric by default.
	if !c.KeepUnits {
		switch res.Dialect {
		case ingest.DialectMetric:
			cfg.SetUnitSystem(units.Metric)
		case ingest.DialectImperial:
			cfg.SetUnitSystem(units.Imperial)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"file":     c.Args.File,
			"accepted": res.Accepted,
			"dialect":  string(res.Dialect),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Imported %d trips from %s (%s dialect)\n", res.Accepted, c.Args.File, res.Dialect)
	if !c.KeepUnits {
		fmt.Printf("Display units set to %s\n", cfg.Settings.UnitSystem)
	}

	return nil
}
