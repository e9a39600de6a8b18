package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Checklist  ChecklistConfig   `toml:"checklist"`
	Checkboxes map[string]string `toml:"checkboxes"`
	Report     ReportConfig      `toml:"report"`
	Log        LogConfig         `toml:"log"`
	AI         AIConfig          `toml:"ai"`
}

type ChecklistConfig struct {
	SheetBase        string  `toml:"sheet_base"`
	StorageCapacity  float64 `toml:"storage_capacity"`
	ThresholdPercent float64 `toml:"threshold_percent"`

	ServersCell     string `toml:"servers_cell"`
	ServersCheckbox string `toml:"servers_checkbox"`

	TrendStorageCell      string `toml:"trend_storage_cell"`
	TrendStoragePrimary   string `toml:"trend_storage_primary"`
	TrendStorageSecondary string `toml:"trend_storage_secondary"`

	CPUMemoryCell      string `toml:"cpu_memory_cell"`
	CPUMemoryPrimary   string `toml:"cpu_memory_primary"`
	CPUMemorySecondary string `toml:"cpu_memory_secondary"`

	LicensesCheckbox string `toml:"licenses_checkbox"`
}

type ReportConfig struct {
	DataSheet string            `toml:"data_sheet"`
	Dropdowns map[string]string `toml:"dropdowns"`
}

type LogConfig struct {
	Directory string `toml:"directory"`
	File      string `toml:"file"`
	Level     string `toml:"level"`
	Buffer    int    `toml:"buffer"`
}

type AIConfig struct {
	Enabled       bool    `toml:"enabled"`
	Model         string  `toml:"model"`
	MinConfidence float64 `toml:"min_confidence"`
}

// DefaultConfig returns the layout of the current checklist template
func DefaultConfig() *Config {
	return &Config{
		Checklist: ChecklistConfig{
			SheetBase:        "Checklist Regelkast",
			StorageCapacity:  10_000_000,
			ThresholdPercent: 80,

			ServersCell:     "F8",
			ServersCheckbox: "CheckBox_C8",

			TrendStorageCell:      "J36",
			TrendStoragePrimary:   "CheckBox_C36",
			TrendStorageSecondary: "CheckBox_E36",

			CPUMemoryCell:      "J39",
			CPUMemoryPrimary:   "CheckBox_C39",
			CPUMemorySecondary: "CheckBox_E39",

			LicensesCheckbox: "CheckBox_C35",
		},
		Checkboxes: map[string]string{},
		Report: ReportConfig{
			DataSheet: "Gegevens",
			Dropdowns: map[string]string{
				"Contractniveau:":     "D16",
				"Type gebouwgebruik:": "D5",
			},
		},
		Log: LogConfig{
			Directory: "logs",
			File:      "struxureguard.log",
			Level:     "info",
			Buffer:    500,
		},
		AI: AIConfig{
			Enabled:       false,
			Model:         "gemini-2.0-flash-exp",
			MinConfidence: 0.8,
		},
	}
}

// LoadConfig loads configuration from the specified config file path.
// A default file is written when none exists yet.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		defaultConfig := DefaultConfig()
		if err := SaveConfig(configPath, defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	config.applyDefaults()
	return config, nil
}

// applyDefaults fills keys that were present but left empty
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Checklist.SheetBase == "" {
		c.Checklist.SheetBase = def.Checklist.SheetBase
	}
	if c.Checklist.StorageCapacity <= 0 {
		c.Checklist.StorageCapacity = def.Checklist.StorageCapacity
	}
	if c.Checklist.ThresholdPercent <= 0 {
		c.Checklist.ThresholdPercent = def.Checklist.ThresholdPercent
	}
	if c.Report.DataSheet == "" {
		c.Report.DataSheet = def.Report.DataSheet
	}
	if c.Checkboxes == nil {
		c.Checkboxes = map[string]string{}
	}
	if c.Log.Buffer <= 0 {
		c.Log.Buffer = def.Log.Buffer
	}
	if c.AI.MinConfidence <= 0 {
		c.AI.MinConfidence = def.AI.MinConfidence
	}
	if c.AI.Model == "" {
		c.AI.Model = def.AI.Model
	}
}

// SaveConfig saves configuration to the specified config file path
func SaveConfig(configPath string, config *Config) error {
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
