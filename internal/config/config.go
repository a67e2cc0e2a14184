// Package config loads the daemon configuration from a YAML file. A missing
// file is not an error: defaults apply and flags can override everything.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/haimskira/net-ops-v3/internal/inventory"
)

type Database struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
}

// Duration accepts "30s" style values, which plain time.Duration fields do
// not support in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Sync struct {
	Interval Duration `yaml:"interval"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Database Database `yaml:"database"`
	Sync     Sync     `yaml:"sync"`
	Log      Log      `yaml:"log"`
	Snapshot string   `yaml:"snapshot"`
}

func defaults() *Config {
	return &Config{
		Database: Database{Dialect: inventory.DialectSQLite, DSN: "netops.db"},
		Sync:     Sync{Interval: Duration(5 * time.Minute)},
		Log:      Log{Level: "info"},
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// any other read or parse failure is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable settings before anything opens the database.
func (c *Config) Validate() error {
	switch c.Database.Dialect {
	case inventory.DialectSQLite:
	case inventory.DialectMySQL:
		if _, err := mysql.ParseDSN(c.Database.DSN); err != nil {
			return fmt.Errorf("invalid mysql dsn: %w", err)
		}
	default:
		return fmt.Errorf("unknown database dialect %q", c.Database.Dialect)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn must not be empty")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.Sync.Interval.Std())
	}
	return nil
}
