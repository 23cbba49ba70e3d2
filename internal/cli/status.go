package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dbjohnson/polestar-log-viewer/internal/config"
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
)

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

// executeWithStore reports statistics against a provided store (for testing).
func (c *StatusCommand) executeWithStore(cfg *config.Config, store storage.Store) error {
	dbStats, err := store.GetStats(context.Background())
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(cfg, dbStats, dbPath)
	}
	return c.printHuman(cfg, dbStats, dbPath)
}

func (c *StatusCommand) printHuman(cfg *config.Config, dbStats *storage.Stats, dbPath string) error {
	fmt.Printf("polestar-logs %s\n\n", c.version)

	fmt.Printf("Database: %s\n", dbPath)
	fmt.Printf("  Trips stored:        %d\n", dbStats.TotalTrips)
	if dbStats.TotalTrips > 0 {
		fmt.Printf("  Date range:          %s .. %s\n", dbStats.OldestStart, dbStats.NewestStart)
	}
	fmt.Printf("  Missing temperature: %d", dbStats.MissingTemperature)
	if dbStats.MissingTemperature > 0 {
		fmt.Print("  (run 'polestar-logs enrich' to backfill)")
	}
	fmt.Println()

	fmt.Printf("\nDisplay units: %s\n", cfg.Settings.UnitSystem)
	if !cfg.Filters.IsDefault() {
		fmt.Println("Filters are active; see 'polestar-logs filter'.")
	}

	return nil
}

type jsonStatusOutput struct {
	Version            string `json:"version"`
	DatabasePath       string `json:"database_path"`
	TotalTrips         int64  `json:"total_trips"`
	MissingTemperature int64  `json:"missing_temperature"`
	OldestStart        string `json:"oldest_start,omitempty"`
	NewestStart        string `json:"newest_start,omitempty"`
	Units              string `json:"units"`
	FiltersActive      bool   `json:"filters_active"`
}

func (c *StatusCommand) printJSON(cfg *config.Config, dbStats *storage.Stats, dbPath string) error {
	out := jsonStatusOutput{
		Version:            c.version,
		DatabasePath:       dbPath,
		TotalTrips:         dbStats.TotalTrips,
		MissingTemperature: dbStats.MissingTemperature,
		OldestStart:        dbStats.OldestStart,
		NewestStart:        dbStats.NewestStart,
		Units:              string(cfg.Settings.UnitSystem),
		FiltersActive:      !cfg.Filters.IsDefault(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
