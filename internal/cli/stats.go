package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dbjohnson/polestar-log-viewer/internal/config"
	"github.com/dbjohnson/polestar-log-viewer/internal/filter"
	"github.com/dbjohnson/polestar-log-viewer/internal/stats"
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// Execute implements the go-flags Commander interface for StatsCommand.
func (c *StatsCommand) Execute(args []string) error {
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

// executeWithStore computes statistics against a provided store (for testing).
func (c *StatsCommand) executeWithStore(cfg *config.Config, store storage.Store) error {
	all, err := store.ScanAll(context.Background())
	if err != nil {
		return fmt.Errorf("scan trips: %w", err)
	}

	trips := all
	excluded := 0
	if !c.All {
		res := filter.Apply(all, cfg.Filters)
		trips = res.Trips
		excluded = res.Excluded
	}

	sys := cfg.Settings.UnitSystem
	costs := stats.CostParams{
		GasPrice:        cfg.Settings.GasPrice,
		ICEMileage:      cfg.Settings.ICEMileage,
		ElectricityRate: cfg.Settings.ElectricityRate,
		BatteryCapacity: cfg.Settings.BatteryCapacity,
	}

	summary := stats.Summarize(trips, sys, costs)
	timeline := stats.TimeSeries(trips, sys)
	tempSeries := stats.TemperatureSeries(trips, sys)
	speedSeries := stats.SpeedSeries(trips, sys)
	distSeries := stats.DistanceSeries(trips, sys)

	if c.globals != nil && c.globals.JSON {
		return printStatsJSON(summary, timeline, tempSeries, speedSeries, distSeries, excluded)
	}
	return printStatsHuman(summary, timeline, tempSeries, speedSeries, distSeries, excluded)
}

func printStatsHuman(s stats.Summary, timeline []stats.TimePoint, temp, speed, dist stats.Series, excluded int) error {
	if s.TripCount == 0 {
		fmt.Println("No trips match the active filters.")
		return nil
	}

	sys := s.System
	fmt.Printf("Trips: %d", s.TripCount)
	if excluded > 0 {
		fmt.Printf(" (%d filtered out)", excluded)
	}
	fmt.Println()

	if len(timeline) > 0 {
		fmt.Printf("  Period:          %s .. %s\n",
			timeline[0].StartKey, timeline[len(timeline)-1].StartKey)
	}

	fmt.Printf("  Total distance:  %.1f %s\n", s.TotalDistance, units.DistanceLabel(sys))
	fmt.Printf("  Energy used:     %.1f kWh\n", s.TotalEnergy)
	fmt.Printf("  Avg efficiency:  %.2f %s\n", s.AvgEfficiency, units.EfficiencyLabel(sys))
	fmt.Printf("  Est. max range:  %.0f %s\n", s.EstMaxRange, units.DistanceLabel(sys))
	fmt.Printf("  CO2 saved:       %.1f %s\n", s.CO2Conserved, units.CO2Label(sys))
	fmt.Printf("  Fuel savings:    $%.2f\n", s.FuelSavings)

	printTrend := func(name, xLabel string, series stats.Series) {
		if !series.HasTrend {
			fmt.Printf("  efficiency vs %-12s insufficient data (%d points)\n", name+":", len(series.Points))
			return
		}
		fmt.Printf("  efficiency vs %-12s slope %+.4f per %s over %d points\n",
			name+":", series.Line.M, xLabel, len(series.Points))
	}

	fmt.Println("\nTrendlines:")
	printTrend("temperature", units.TemperatureLabel(sys), temp)
	printTrend("speed", units.SpeedLabel(sys), speed)
	printTrend("distance", units.DistanceLabel(sys), dist)

	return nil
}

type jsonSeries struct {
	Points    int      `json:"points"`
	Slope     *float64 `json:"slope,omitempty"`
	Intercept *float64 `json:"intercept,omitempty"`
}

type jsonTimePoint struct {
	StartKey   string  `json:"start_key"`
	Efficiency float64 `json:"efficiency"`
	Distance   float64 `json:"distance"`
}

type jsonStatsOutput struct {
	Trips         int             `json:"trips"`
	Excluded      int             `json:"excluded"`
	Units         string          `json:"units"`
	TotalDistance float64         `json:"total_distance"`
	TotalEnergy   float64         `json:"total_energy_kwh"`
	AvgEfficiency float64         `json:"avg_efficiency"`
	EstMaxRange   float64         `json:"est_max_range"`
	CO2Conserved  float64         `json:"co2_conserved"`
	FuelSavings   float64         `json:"fuel_savings"`
	Timeline      []jsonTimePoint `json:"timeline"`
	VsTemperature jsonSeries      `json:"vs_temperature"`
	VsSpeed       jsonSeries      `json:"vs_speed"`
	VsDistance    jsonSeries      `json:"vs_distance"`
}

func toJSONSeries(s stats.Series) jsonSeries {
	out := jsonSeries{Points: len(s.Points)}
	if s.HasTrend {
		m, b := s.Line.M, s.Line.B
		out.Slope = &m
		out.Intercept = &b
	}
	return out
}

func printStatsJSON(s stats.Summary, timeline []stats.TimePoint, temp, speed, dist stats.Series, excluded int) error {
	out := jsonStatsOutput{
		Trips:         s.TripCount,
		Excluded:      excluded,
		Units:         string(s.System),
		TotalDistance: s.TotalDistance,
		TotalEnergy:   s.TotalEnergy,
		AvgEfficiency: s.AvgEfficiency,
		EstMaxRange:   s.EstMaxRange,
		CO2Conserved:  s.CO2Conserved,
		FuelSavings:   s.FuelSavings,
		Timeline:      make([]jsonTimePoint, len(timeline)),
		VsTemperature: toJSONSeries(temp),
		VsSpeed:       toJSONSeries(speed),
		VsDistance:    toJSONSeries(dist),
	}

	for i, p := range timeline {
		out.Timeline[i] = jsonTimePoint{
			StartKey:   p.StartKey,
			Efficiency: p.Efficiency,
			Distance:   p.Distance,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
