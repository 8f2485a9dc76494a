package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/thanhnp/record-ledger/internal/ledger"
)

// Payload schemas a ledger can enforce on appends
const (
	SchemaNone   = ""
	SchemaVitals = "vitals"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Pebble  PebbleConfig   `yaml:"pebble"`
	Ledgers []LedgerConfig `yaml:"ledgers"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port      int    `yaml:"port"`
	Host      string `yaml:"host"`
	AuthToken string `yaml:"auth_token"` // Bearer token required for writes; empty disables auth
	AuthReads bool   `yaml:"auth_reads"` // Also require the token on reads (default true)
}

// PebbleConfig represents the Pebble database configuration
type PebbleConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	NoSync   bool   `yaml:"no_sync"`
}

// LedgerConfig represents the configuration for one named ledger
type LedgerConfig struct {
	Name       string `yaml:"name"`
	Genesis    any    `yaml:"genesis"`    // Genesis payload; defaults to {"message": "Genesis Block"}
	Collection string `yaml:"collection"` // Payload field holding a list of records
	IDField    string `yaml:"id_field"`
	LinkRule   string `yaml:"link_rule"` // "previous_hash" (default) or "legacy"
	Schema     string `yaml:"schema"`
}

// DefaultLedgers returns the ledgers served when none are configured
func DefaultLedgers() []LedgerConfig {
	return []LedgerConfig{
		{
			Name:       "refugees",
			Genesis:    map[string]any{"refugees": []any{}},
			Collection: "refugees",
			IDField:    "id",
		},
		{
			Name:    "health",
			Genesis: map[string]any{"message": "Genesis Block"},
			IDField: "id",
			Schema:  SchemaVitals,
		},
	}
}

// Load loads configuration from a YAML file and environment variables
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:      8080,
			Host:      "0.0.0.0",
			AuthReads: true,
		},
		Pebble: PebbleConfig{
			Path: "./data/pebble",
		},
	}

	// Load from YAML file if it exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.loadEnv()

	if len(cfg.Ledgers) == 0 {
		cfg.Ledgers = DefaultLedgers()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ledger names, link rules and schemas
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, l := range c.Ledgers {
		if l.Name == "" {
			return fmt.Errorf("ledger %d: name is required", i)
		}
		if seen[l.Name] {
			return fmt.Errorf("ledger %s: duplicate name", l.Name)
		}
		seen[l.Name] = true

		if _, err := ledger.ParseLinkRule(l.LinkRule); err != nil {
			return fmt.Errorf("ledger %s: %w", l.Name, err)
		}
		switch l.Schema {
		case SchemaNone, SchemaVitals:
		default:
			return fmt.Errorf("ledger %s: unknown schema %q", l.Name, l.Schema)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}

func (c *Config) loadEnv() {
	// Server config
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if token := os.Getenv("AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}
	if authReads := os.Getenv("AUTH_READS"); authReads != "" {
		c.Server.AuthReads = authReads == "true" || authReads == "1"
	}

	// Pebble config
	if path := os.Getenv("PEBBLE_PATH"); path != "" {
		c.Pebble.Path = path
	}
	if inMemory := os.Getenv("PEBBLE_IN_MEMORY"); inMemory != "" {
		c.Pebble.InMemory = inMemory == "true" || inMemory == "1"
	}
	if noSync := os.Getenv("PEBBLE_NO_SYNC"); noSync != "" {
		c.Pebble.NoSync = noSync == "true" || noSync == "1"
	}
}
