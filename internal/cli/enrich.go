package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbjohnson/polestar-log-viewer/internal/config"
	"github.com/dbjohnson/polestar-log-viewer/internal/enrich"
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/weather"
)

// Execute implements the go-flags Commander interface for EnrichCommand.
func (c *EnrichCommand) Execute(args []string) error {
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

	logger := newLogger(c.globals)
	client := weather.NewClientWithURLs(
		cfg.Weather.ArchiveURL,
		cfg.Weather.ForecastURL,
		time.Duration(cfg.Weather.TimeoutSeconds)*time.Second,
		logger,
	)

	// Ctrl-C abandons the pass between iterations; per-record updates are
	// atomic, so a partial pass leaves no corruption.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.executeWithStore(ctx, cfg, store, client)
}

// executeWithStore runs the enrichment pass against provided collaborators
// (for testing).
func (c *EnrichCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store, source weather.Source) error {
	worker := enrich.NewWorker(store, source, newLogger(c.globals))

	throttle := time.Duration(cfg.Weather.ThrottleMillis) * time.Millisecond
	if c.Throttle >= 0 {
		throttle = time.Duration(c.Throttle) * time.Millisecond
	}
	worker.SetThrottle(throttle)

	res, err := worker.Run(ctx)
	if err != nil && res == nil {
		return fmt.Errorf("enrichment pass: %w", err)
	}

	interrupted := err != nil

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"scanned":     res.Scanned,
			"enriched":    res.Enriched,
			"misses":      res.Misses,
			"skipped":     res.Skipped,
			"interrupted": interrupted,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if res.Scanned == 0 {
		fmt.Println("All trips already have temperature data.")
		return nil
	}

	fmt.Printf("Enriched %d of %d trips missing temperature", res.Enriched, res.Scanned)
	if res.Misses > 0 {
		fmt.Printf(" (%d lookups returned no data, will retry next pass)", res.Misses)
	}
	if res.Skipped > 0 {
		fmt.Printf(" (%d skipped: no usable coordinates)", res.Skipped)
	}
	fmt.Println()

	if interrupted {
		fmt.Println("Pass interrupted; remaining trips stay queued for the next run.")
	}

	return nil
}
