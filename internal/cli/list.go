package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dbjohnson/polestar-log-viewer/internal/config"
	"github.com/dbjohnson/polestar-log-viewer/internal/filter"
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
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

	return c.executeWithStore(cfg, store, args)
}

// executeWithStore runs the listing against a provided store (for testing).
func (c *ListCommand) executeWithStore(cfg *config.Config, store storage.Store, args []string) error {
	trips, err := store.ScanAll(context.Background())
	if err != nil {
		return fmt.Errorf("scan trips: %w", err)
	}

	spec := cfg.Filters
	search := c.Search
	if search == "" && len(args) > 0 {
		search = strings.Join(args, " ")
	}
	if search != "" {
		spec.SearchText = search
	}
	if c.From != "" && c.To != "" {
		spec.DateStart = c.From
		spec.DateEnd = c.To
	}

	res := filter.Apply(trips, spec)

	rows := res.Trips
	if c.Limit > 0 && len(rows) > c.Limit {
		rows = rows[:c.Limit]
	}

	sys := cfg.Settings.UnitSystem

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(rows, res, len(trips), sys)
	}
	return c.printHuman(rows, res, len(trips), sys)
}

func (c *ListCommand) printHuman(rows []storage.Trip, res filter.Result, total int, sys units.System) error {
	if len(res.Trips) == 0 {
		fmt.Printf("No trips match the active filters (%d stored, %d filtered out)\n", total, res.Excluded)
		return nil
	}

	fmt.Printf("Showing %d of %d trips (%d filtered out)\n\n", len(rows), total, res.Excluded)

	distLabel := units.DistanceLabel(sys)
	effLabel := units.EfficiencyLabel(sys)
	tempLabel := units.TemperatureLabel(sys)

	for i := range rows {
		t := &rows[i]
		fmt.Printf("%s  %s -> %s\n", t.StartKey, t.StartAddress, t.EndAddress)

		temp := "-"
		if t.Temperature != nil {
			temp = fmt.Sprintf("%.1f%s", units.Temperature(*t.Temperature, sys), tempLabel)
		}
		fmt.Printf("   %.1f %s · %.1f kWh · %.2f %s · %s\n",
			units.Distance(t.Distance, sys), distLabel,
			t.Consumption,
			units.Efficiency(t.Efficiency, sys), effLabel,
			temp,
		)

		if t.Notes != "" || len(t.Tags) > 0 {
			meta := t.Notes
			if len(t.Tags) > 0 {
				if meta != "" {
					meta += " · "
				}
				meta += "#" + strings.Join(t.Tags, " #")
			}
			fmt.Printf("   %s\n", meta)
		}
	}

	return nil
}

type jsonTrip struct {
	StartKey    string   `json:"start_key"`
	End         string   `json:"end,omitempty"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	Distance    float64  `json:"distance"`
	Consumption float64  `json:"consumption_kwh"`
	Efficiency  float64  `json:"efficiency"`
	Temperature *float64 `json:"temperature,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type jsonListOutput struct {
	Total    int        `json:"total"`
	Matched  int        `json:"matched"`
	Excluded int        `json:"excluded"`
	Units    string     `json:"units"`
	Trips    []jsonTrip `json:"trips"`
}

func (c *ListCommand) printJSON(rows []storage.Trip, res filter.Result, total int, sys units.System) error {
	out := jsonListOutput{
		Total:    total,
		Matched:  len(res.Trips),
		Excluded: res.Excluded,
		Units:    string(sys),
		Trips:    make([]jsonTrip, len(rows)),
	}

	for i := range rows {
		t := &rows[i]
		jt := jsonTrip{
			StartKey:    t.StartKey,
			End:         t.EndTimestamp,
			From:        t.StartAddress,
			To:          t.EndAddress,
			Distance:    units.Distance(t.Distance, sys),
			Consumption: t.Consumption,
			Efficiency:  units.Efficiency(t.Efficiency, sys),
			Notes:       t.Notes,
			Tags:        t.Tags,
		}
		if t.Temperature != nil {
			converted := units.Temperature(*t.Temperature, sys)
			jt.Temperature = &converted
		}
		out.Trips[i] = jt
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
