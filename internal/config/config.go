package config

import (
	"fmt"
	"os"
	"time"

	"github.com/expr-lang/expr"
	"github.com/goccy/go-yaml"
)

type Config struct {
	// Listen is the address the bridge API binds to.
	Listen string `yaml:"listen"`

	// AdminSigningKey is the HMAC key used to verify admin JWTs on the
	// /v1/admin/ routes. May also be supplied via CASBRIDGE_ADMIN_SIGNING_KEY.
	AdminSigningKey string `yaml:"admin_signing_key"`

	Store StoreConfig `yaml:"store"`

	Sweep SweepConfig `yaml:"sweep"`

	// LoginPolicy is an optional expression evaluated against the
	// principal attributes of every login event. If it evaluates to
	// false, the login is denied. Leaving it empty admits every
	// validated login.
	LoginPolicy string `yaml:"login_policy"`

	Audit AuditConfig `yaml:"audit"`
}

// StoreConfig selects and configures a store backend.
type StoreConfig struct {
	// Type is the backend type: "file", "memory" or "redis".
	Type string `yaml:"type"`

	// Config captures the backend-specific fields.
	Config map[string]any `yaml:",inline"`
}

type SweepConfig struct {
	// Interval between reaper sweeps. Zero disables scheduled sweeps
	// entirely; the store then grows without bound until sweeps are
	// triggered manually.
	Interval time.Duration `yaml:"interval"`
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Type {
	case "file", "memory", "redis":
	case "":
		return fmt.Errorf("store.type is required")
	default:
		return fmt.Errorf("unknown store type '%s'", c.Store.Type)
	}

	if c.Sweep.Interval < 0 {
		return fmt.Errorf("sweep.interval must not be negative")
	}

	if c.LoginPolicy != "" {
		if _, err := expr.Compile(c.LoginPolicy, expr.AsBool()); err != nil {
			return fmt.Errorf("compiling login_policy: %w", err)
		}
	}

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "file":
			if c.Audit.Path == "" {
				return fmt.Errorf("audit.path is required for file auditing")
			}
		case "memory", "":
		default:
			return fmt.Errorf("unknown audit type '%s'", c.Audit.Type)
		}
	}

	return nil
}
