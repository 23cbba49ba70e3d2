package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
)

// Execute implements the go-flags Commander interface for NoteCommand.
func (c *NoteCommand) Execute(args []string) error {
	if c.Key == "" {
		return fmt.Errorf("--key is required for note command")
	}

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

	return c.executeWithStore(store)
}

// executeWithStore runs the edit against a provided store (for testing).
func (c *NoteCommand) executeWithStore(store storage.Store) error {
	ctx := context.Background()

	err := store.UpdateDetails(ctx, c.Key, c.Notes, c.Tags)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no trip with start key %q", c.Key)
		}
		return fmt.Errorf("update trip: %w", err)
	}

	trip, err := store.GetTrip(ctx, c.Key)
	if err != nil {
		return fmt.Errorf("read back trip: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"start_key": trip.StartKey,
			"notes":     trip.Notes,
			"tags":      trip.Tags,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Updated trip %s\n", trip.StartKey)
	fmt.Printf("  Notes: %s\n", trip.Notes)
	tags := "-"
	if len(trip.Tags) > 0 {
		tags = "#" + strings.Join(trip.Tags, " #")
	}
	fmt.Printf("  Tags: %s\n", tags)

	return nil
}
