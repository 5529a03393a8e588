// Package config loads the replica configuration from a YAML file with
// sensible defaults, so a bare `vitrina` invocation works without any setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full replica configuration.
type Config struct {
	// StorePath is the SQLite database file shared by all replicas.
	StorePath string `yaml:"storePath"`

	// WhatsAppPhone is the fulfillment number orders are handed off to.
	WhatsAppPhone string `yaml:"whatsappPhone"`

	Cart CartConfig `yaml:"cart"`
	Sync SyncConfig `yaml:"sync"`
	Log  LogConfig  `yaml:"log"`
}

// CartConfig bounds the cart and sets the pricing default.
type CartConfig struct {
	MaxQuantityPerLine   int     `yaml:"maxQuantityPerLine"`
	MaxLines             int     `yaml:"maxLines"`
	DefaultMarginPercent float64 `yaml:"defaultMarginPercent"`
}

// SyncConfig tunes catalog convergence.
type SyncConfig struct {
	// SweepInterval is the periodic full-reconciliation backstop.
	SweepInterval Duration `yaml:"sweepInterval"`

	// PollInterval is how often the store checks for foreign writes.
	PollInterval Duration `yaml:"pollInterval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StorePath: "vitrina.db",
		Cart: CartConfig{
			MaxQuantityPerLine:   10,
			MaxLines:             50,
			DefaultMarginPercent: 20,
		},
		Sync: SyncConfig{
			SweepInterval: Duration(30 * time.Second),
			PollInterval:  Duration(2 * time.Second),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the configuration file at path, falling back to defaults when
// path is empty or the file does not exist. Environment variables
// VITRINA_STORE and VITRINA_PHONE override the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("VITRINA_STORE"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("VITRINA_PHONE"); v != "" {
		cfg.WhatsAppPhone = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("storePath must not be empty")
	}
	if c.Cart.MaxQuantityPerLine < 1 {
		return fmt.Errorf("cart.maxQuantityPerLine must be at least 1, got %d", c.Cart.MaxQuantityPerLine)
	}
	if c.Cart.MaxLines < 1 {
		return fmt.Errorf("cart.maxLines must be at least 1, got %d", c.Cart.MaxLines)
	}
	if c.Cart.DefaultMarginPercent < 0 {
		return fmt.Errorf("cart.defaultMarginPercent must be non-negative, got %v", c.Cart.DefaultMarginPercent)
	}
	if c.Sync.SweepInterval <= 0 {
		return fmt.Errorf("sync.sweepInterval must be positive")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.pollInterval must be positive")
	}
	return nil
}
