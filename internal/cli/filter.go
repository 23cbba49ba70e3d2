package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dbjohnson/polestar-log-viewer/internal/config"
	"github.com/dbjohnson/polestar-log-viewer/internal/filter"
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// Execute implements the go-flags Commander interface for FilterCommand.
func (c *FilterCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	changed, err := c.apply(cfg)
	if err != nil {
		return err
	}

	if changed {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save filters: %w", err)
		}
	}

	return c.print(cfg)
}

// apply mutates the persisted spec from the command flags. Bounds given on
// the command line are display units and are converted to canonical before
// they are stored.
func (c *FilterCommand) apply(cfg *config.Config) (bool, error) {
	if c.Reset {
		cfg.ResetFilters()
		return true, nil
	}

	sys := cfg.Settings.UnitSystem
	spec := &cfg.Filters
	changed := false

	if c.From != "" || c.To != "" {
		if c.From == "" || c.To == "" {
			return false, fmt.Errorf("--from and --to must be given together")
		}
		spec.DateStart = c.From
		spec.DateEnd = c.To
		changed = true
	}

	setBound := func(dst **float64, flag *float64, toCanonical func(float64, units.System) float64) {
		if flag == nil {
			return
		}
		v := toCanonical(*flag, sys)
		*dst = &v
		changed = true
	}

	setBound(&spec.Distance.Min, c.MinDistance, units.CanonicalDistance)
	setBound(&spec.Distance.Max, c.MaxDistance, units.CanonicalDistance)
	setBound(&spec.Temperature.Min, c.MinTemp, units.CanonicalTemperature)
	setBound(&spec.Temperature.Max, c.MaxTemp, units.CanonicalTemperature)
	setBound(&spec.Efficiency.Min, c.MinEfficiency, units.CanonicalEfficiency)
	setBound(&spec.Efficiency.Max, c.MaxEfficiency, units.CanonicalEfficiency)

	if c.Search != "" {
		spec.SearchText = c.Search
		changed = true
	}
	if len(c.ExcludeTags) > 0 {
		spec.ExcludedTags = storage.NormalizeTags(c.ExcludeTags)
		changed = true
	}

	return changed, nil
}

// print shows the active spec in the display unit system.
func (c *FilterCommand) print(cfg *config.Config) error {
	spec := cfg.Filters
	sys := cfg.Settings.UnitSystem

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	}

	if spec.IsDefault() {
		fmt.Println("No filters active.")
		return nil
	}

	fmt.Println("Active filters:")
	if spec.DateStart != "" && spec.DateEnd != "" {
		fmt.Printf("  dates:       %s .. %s\n", spec.DateStart, spec.DateEnd)
	}
	printRange := func(name string, r filter.Range, label string, toDisplay func(float64, units.System) float64) {
		if !r.Active() {
			return
		}
		lo, hi := "*", "*"
		if r.Min != nil {
			lo = fmt.Sprintf("%.1f", toDisplay(*r.Min, sys))
		}
		if r.Max != nil {
			hi = fmt.Sprintf("%.1f", toDisplay(*r.Max, sys))
		}
		fmt.Printf("  %-12s %s .. %s %s\n", name+":", lo, hi, label)
	}
	printRange("distance", spec.Distance, units.DistanceLabel(sys), units.Distance)
	printRange("temperature", spec.Temperature, units.TemperatureLabel(sys), units.Temperature)
	printRange("efficiency", spec.Efficiency, units.EfficiencyLabel(sys), units.Efficiency)
	if spec.SearchText != "" {
		fmt.Printf("  search:      %q\n", spec.SearchText)
	}
	if len(spec.ExcludedTags) > 0 {
		fmt.Printf("  excluding:   #%s\n", strings.Join(spec.ExcludedTags, " #"))
	}

	return nil
}
