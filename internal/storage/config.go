package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config holds application configuration.
type Config struct {
	Backend            string   `json:"backend" yaml:"backend"`
	DataPath           string   `json:"dataPath" yaml:"dataPath"`
	HistoryDepth       int      `json:"historyDepth" yaml:"historyDepth"`
	RebalanceKeyLength int      `json:"rebalanceKeyLength" yaml:"rebalanceKeyLength"`
	QuickAddFolder     string   `json:"quickAddFolder" yaml:"quickAddFolder"`
	CullExcludeDomains []string `json:"cullExcludeDomains" yaml:"cullExcludeDomains"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	dataPath := "bookmarks.json"
	if dir, err := DefaultDataDir(); err == nil {
		dataPath = filepath.Join(dir, "bookmarks.json")
	}

	return Config{
		Backend:            BackendJSON,
		DataPath:           dataPath,
		HistoryDepth:       200,
		RebalanceKeyLength: 24,
		QuickAddFolder:     "Read Later",
		CullExcludeDomains: []string{"github.com", "gitlab.com"},
	}
}

// Validate checks the config values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendJSON, BackendSQLite)),
		validation.Field(&c.DataPath, validation.Required),
		validation.Field(&c.HistoryDepth, validation.Required, validation.Min(1)),
		validation.Field(&c.RebalanceKeyLength, validation.Required, validation.Min(4)),
	)
}

// HistoryPath returns where undo history is kept, next to the data file.
func (c Config) HistoryPath() string {
	return filepath.Join(filepath.Dir(c.DataPath), "history.json")
}

// LoadConfig reads config from a JSON or YAML file, chosen by extension.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Create the config file with defaults
			if saveErr := SaveConfig(path, &config); saveErr != nil {
				// Non-fatal: return defaults even if save fails
				return &config, nil
			}
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.Backend == "" {
		config.Backend = defaults.Backend
	}
	if config.DataPath == "" {
		config.DataPath = defaults.DataPath
		if config.Backend == BackendSQLite {
			config.DataPath = strings.TrimSuffix(defaults.DataPath, ".json") + ".db"
		}
	}
	if config.HistoryDepth == 0 {
		config.HistoryDepth = defaults.HistoryDepth
	}
	if config.RebalanceKeyLength == 0 {
		config.RebalanceKeyLength = defaults.RebalanceKeyLength
	}
	if config.QuickAddFolder == "" {
		config.QuickAddFolder = defaults.QuickAddFolder
	}
	if config.CullExcludeDomains == nil {
		config.CullExcludeDomains = defaults.CullExcludeDomains
	}

	return &config, nil
}

// ApplyEnv overrides config values from BM_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("BM_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("BM_DATA_PATH"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("BM_HISTORY_DEPTH"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BM_HISTORY_DEPTH: %w", err)
		}
		c.HistoryDepth = depth
	}
	return nil
}

// SaveConfig writes config to the JSON or YAML file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfigFilePath returns the default config path: ~/.config/bm/config.json
func DefaultConfigFilePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
