package stats

import (
	"github.com/dbjohnson/polestar-log-viewer/internal/storage"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// CostParams are the user's cost model settings, expressed in the units
// implied by the active display system ($/gal and mpg for imperial, $/L
// and L/100km for metric; $/kWh either way).
type CostParams struct {
	GasPrice        float64
	ICEMileage      float64
	ElectricityRate float64
	BatteryCapacity float64 // kWh
}

// Summary holds the aggregate dashboard card values, already converted to
// the display unit system.
type Summary struct {
	System        units.System
	TripCount     int
	TotalDistance float64
	TotalEnergy   float64 // kWh, unit-system independent
	AvgEfficiency float64
	EstMaxRange   float64
	CO2Conserved  float64
	FuelSavings   float64 // dollars
}

// Summarize computes the aggregate cards for a trip set. Sums and the
// average efficiency are taken over canonical values, then converted once
// for display.
func Summarize(trips []storage.Trip, sys units.System, costs CostParams) Summary {
	var rawDistance, totalEnergy float64
	for i := range trips {
		rawDistance += trips[i].Distance
		totalEnergy += trips[i].Consumption
	}

	rawAvgEfficiency := 0.0
	if totalEnergy > 0 {
		rawAvgEfficiency = rawDistance / totalEnergy
	}

	avgEfficiency := units.Efficiency(rawAvgEfficiency, sys)

	return Summary{
		System:        sys,
		TripCount:     len(trips),
		TotalDistance: units.Distance(rawDistance, sys),
		TotalEnergy:   totalEnergy,
		AvgEfficiency: avgEfficiency,
		EstMaxRange:   avgEfficiency * costs.BatteryCapacity,
		CO2Conserved:  units.CO2Conserved(rawDistance, sys),
		FuelSavings: units.FuelSavings(rawDistance, totalEnergy, sys,
			costs.GasPrice, costs.ICEMileage, costs.ElectricityRate),
	}
}
