// Package config persists user preferences and filter state on the local
// device: loaded once at startup, saved whenever a command changes them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dbjohnson/polestar-log-viewer/internal/filter"
	"github.com/dbjohnson/polestar-log-viewer/internal/units"
)

// Default config file path.
const DefaultConfigPath = "~/.config/polestar-logs/config.yaml"

// Config holds all persisted application state besides the trip database.
type Config struct {
	Settings SettingsConfig `yaml:"settings"`
	Filters  filter.Spec    `yaml:"filters"`
	Storage  StorageConfig  `yaml:"storage"`
	Weather  WeatherConfig  `yaml:"weather"`

	// path the config was loaded from; used by Save.
	path string
}

// SettingsConfig holds the unit preference and cost-model parameters. Gas
// price and ICE mileage are expressed in the units implied by UnitSystem
// ($/gal and mpg for imperial, $/L and L/100km for metric).
type SettingsConfig struct {
	UnitSystem      units.System `yaml:"unit_system"`
	GasPrice        float64      `yaml:"gas_price"`
	ICEMileage      float64      `yaml:"ice_mileage"`
	ElectricityRate float64      `yaml:"electricity_rate"` // $/kWh
	BatteryCapacity float64      `yaml:"battery_capacity"` // kWh
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type WeatherConfig struct {
	ArchiveURL     string `yaml:"archive_url"`
	ForecastURL    string `yaml:"forecast_url"`
	ThrottleMillis int    `yaml:"throttle_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			UnitSystem:      units.Imperial,
			GasPrice:        3.00,
			ICEMileage:      30,
			ElectricityRate: 0.15,
			BatteryCapacity: 78,
		},
		Filters: filter.Default(),
		Storage: StorageConfig{
			Path:       "~/.config/polestar-logs",
			SQLiteFile: "trips.db",
		},
		Weather: WeatherConfig{
			ArchiveURL:     "https://archive-api.open-meteo.com/v1/archive",
			ForecastURL:    "https://api.open-meteo.com/v1/forecast",
			ThrottleMillis: 200,
			TimeoutSeconds: 10,
		},
	}
}

// Load reads a YAML config file at path and merges it with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if !cfg.Settings.UnitSystem.Valid() {
		cfg.Settings.UnitSystem = units.Imperial
	}

	return cfg, nil
}

// LoadOrCreate loads the config from the default path, creating it with
// defaults when it does not exist.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.path = path
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return Load(path)
}

// Save writes the config back to the path it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no backing file")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// SetUnitSystem switches the display unit system, converting the gas-price
// and ICE-mileage parameters so computed fuel savings stay numerically
// unchanged across the toggle.
func (c *Config) SetUnitSystem(sys units.System) {
	prev := c.Settings.UnitSystem
	if !sys.Valid() || sys == prev {
		return
	}

	c.Settings.GasPrice = units.ConvertGasPrice(c.Settings.GasPrice, prev, sys)
	c.Settings.ICEMileage = units.ConvertICEMileage(c.Settings.ICEMileage, prev, sys)
	c.Settings.UnitSystem = sys
}

// ResetFilters restores the default (pass-everything) filter spec.
func (c *Config) ResetFilters() {
	c.Filters = filter.Default()
}

// DatabasePath resolves the full path of the SQLite database file.
func (c *Config) DatabasePath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
