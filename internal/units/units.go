// Package units converts canonical trip values to a display unit system
// and back. Stored data is always imperial (miles, mi/kWh, mph, °F);
// conversion happens only at the display boundary and never mutates what
// is stored.
package units

// System selects the display unit system.
type System string

const (
	Imperial System = "imperial"
	Metric   System = "metric"
)

// Conversion factors.
const (
	KmPerMile       = 1.60934
	LitersPerGallon = 3.78541

	// Reciprocal constant relating mpg and L/100km:
	// L/100km = 235.215 / mpg, and mpg = 235.215 / (L/100km).
	MPGLitersPer100Km = 235.215

	// A gallon of gasoline produces ~19.6 lbs of CO2. At a 30 mpg ICE
	// baseline that is 19.6/30 lbs per mile.
	lbsCO2PerMile = 0.653

	KgPerLb = 0.453592
)

// Valid reports whether s is a recognized unit system.
func (s System) Valid() bool {
	return s == Imperial || s == Metric
}

// Distance converts canonical miles to the display system.
func Distance(miles float64, sys System) float64 {
	if sys == Metric {
		return miles * KmPerMile
	}
	return miles
}

// CanonicalDistance converts a displayed distance back to miles.
func CanonicalDistance(v float64, sys System) float64 {
	if sys == Metric {
		return v / KmPerMile
	}
	return v
}

// Efficiency converts canonical mi/kWh to the display system. Efficiency
// scales the same direction as distance (km/kWh = mi/kWh * KmPerMile).
func Efficiency(miPerKwh float64, sys System) float64 {
	if sys == Metric {
		return miPerKwh * KmPerMile
	}
	return miPerKwh
}

// CanonicalEfficiency converts a displayed efficiency back to mi/kWh.
func CanonicalEfficiency(v float64, sys System) float64 {
	if sys == Metric {
		return v / KmPerMile
	}
	return v
}

// Speed converts canonical mph to the display system.
func Speed(mph float64, sys System) float64 {
	if sys == Metric {
		return mph * KmPerMile
	}
	return mph
}

// Temperature converts canonical °F to the display system.
func Temperature(fahrenheit float64, sys System) float64 {
	if sys == Metric {
		return (fahrenheit - 32) * 5 / 9
	}
	return fahrenheit
}

// CanonicalTemperature converts a displayed temperature back to °F.
func CanonicalTemperature(v float64, sys System) float64 {
	if sys == Metric {
		return v*9/5 + 32
	}
	return v
}

// CO2Conserved estimates the CO2 a 30 mpg ICE vehicle would have emitted
// over the given canonical distance. Returns lbs, or kg for metric.
func CO2Conserved(miles float64, sys System) float64 {
	lbs := miles * lbsCO2PerMile
	if sys == Metric {
		return lbs * KgPerLb
	}
	return lbs
}

// FuelSavings computes ice_cost - ev_cost for a trip set. The cost
// parameters are expressed in the units implied by sys: $/gal and mpg for
// imperial, $/L and L/100km for metric. elecRate is $/kWh in both.
func FuelSavings(distanceMiles, energyKwh float64, sys System, gasPrice, iceMileage, elecRate float64) float64 {
	evCost := energyKwh * elecRate

	var iceCost float64
	if sys == Metric {
		distanceKm := distanceMiles * KmPerMile
		litersUsed := distanceKm / 100 * iceMileage
		iceCost = litersUsed * gasPrice
	} else {
		gallonsUsed := distanceMiles / iceMileage
		iceCost = gallonsUsed * gasPrice
	}

	return iceCost - evCost
}

// ConvertGasPrice converts a gas price between $/gal and $/L when the unit
// system toggles. Converting the parameter (not the output) keeps computed
// fuel savings invariant under a unit-system switch.
func ConvertGasPrice(price float64, from, to System) float64 {
	if from == to {
		return price
	}
	if to == Metric {
		return price / LitersPerGallon
	}
	return price * LitersPerGallon
}

// ConvertICEMileage converts an ICE fuel-efficiency figure between mpg and
// L/100km. The relation is reciprocal, so the same constant serves both
// directions.
func ConvertICEMileage(mileage float64, from, to System) float64 {
	if from == to || mileage == 0 {
		return mileage
	}
	return MPGLitersPer100Km / mileage
}

// DistanceLabel returns the display unit label for distances.
func DistanceLabel(sys System) string {
	if sys == Metric {
		return "km"
	}
	return "mi"
}

// EfficiencyLabel returns the display unit label for efficiency.
func EfficiencyLabel(sys System) string {
	if sys == Metric {
		return "km/kWh"
	}
	return "mi/kWh"
}

// SpeedLabel returns the display unit label for speed.
func SpeedLabel(sys System) string {
	if sys == Metric {
		return "km/h"
	}
	return "mph"
}

// TemperatureLabel returns the display unit label for temperature.
func TemperatureLabel(sys System) string {
	if sys == Metric {
		return "°C"
	}
	return "°F"
}

// CO2Label returns the display unit label for conserved CO2.
func CO2Label(sys System) string {
	if sys == Metric {
		return "kg"
	}
	return "lbs"
}
