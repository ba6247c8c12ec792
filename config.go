package quotagate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default global settings, applied when the config leaves them unset.
const (
	DefaultDeadThreshold   = 30.0
	DefaultRecoveryPeriod  = 5 * time.Minute
	DefaultStaggerInterval = 250 * time.Millisecond
)

// Config is the top-level gate configuration.
type Config struct {
	// DeadThreshold is the health score at or below which a credential is
	// removed from rotation.
	DeadThreshold float64 `yaml:"dead_threshold"`

	// RecoveryPeriod is how long a dead credential stays out of rotation
	// before being retried half-open.
	RecoveryPeriod time.Duration `yaml:"recovery_period"`

	// StaggerInterval spaces out concurrent submission bursts.
	StaggerInterval time.Duration `yaml:"stagger_interval"`

	// DefaultBlocks maps caller class names to their default estimated
	// block size.
	DefaultBlocks map[string]int64 `yaml:"default_blocks"`

	Credentials []CredentialConfig `yaml:"credentials"`
}

// CredentialConfig configures a single credential. Tier order is the
// fallback order within the credential, preferred tier first.
type CredentialConfig struct {
	ID     string       `yaml:"id"`
	Secret string       `yaml:"secret"`
	Tiers  []TierConfig `yaml:"tiers"`
}

// TierConfig defines one quota class.
type TierConfig struct {
	Name         string        `yaml:"name"`
	ShortCeiling int64         `yaml:"short_ceiling"`
	ShortWindow  time.Duration `yaml:"short_window"`
	LongCeiling  int64         `yaml:"long_ceiling"`
	LongWindow   time.Duration `yaml:"long_window"`
}

// LoadConfig reads and parses a YAML config file.
// Environment variables in the format ${VAR} are expanded before parsing,
// so secrets can stay out of the file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("quotagate: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("quotagate: parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DeadThreshold == 0 {
		c.DeadThreshold = DefaultDeadThreshold
	}
	if c.RecoveryPeriod == 0 {
		c.RecoveryPeriod = DefaultRecoveryPeriod
	}
	if c.StaggerInterval == 0 {
		c.StaggerInterval = DefaultStaggerInterval
	}
}

// DefaultBlock returns the configured default block size for a caller class,
// or 1 if none is configured.
func (c Config) DefaultBlock(caller string) int64 {
	if n, ok := c.DefaultBlocks[caller]; ok {
		return n
	}
	return 1
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if len(c.Credentials) == 0 {
		return fmt.Errorf("quotagate: config: at least one credential is required")
	}
	if c.DeadThreshold < 0 || c.DeadThreshold >= healthCeiling {
		return fmt.Errorf("quotagate: config: dead_threshold must be in [0, %v)", healthCeiling)
	}
	if c.RecoveryPeriod < 0 {
		return fmt.Errorf("quotagate: config: recovery_period must not be negative")
	}
	if c.StaggerInterval < 0 {
		return fmt.Errorf("quotagate: config: stagger_interval must not be negative")
	}

	for caller, n := range c.DefaultBlocks {
		if n <= 0 {
			return fmt.Errorf("quotagate: config: default_blocks[%s]: block size must be positive", caller)
		}
	}

	ids := make(map[string]bool, len(c.Credentials))
	for i, cred := range c.Credentials {
		if cred.ID == "" {
			return fmt.Errorf("quotagate: config: credential[%d]: id is required", i)
		}
		if ids[cred.ID] {
			return fmt.Errorf("quotagate: config: duplicate credential id %q", cred.ID)
		}
		ids[cred.ID] = true

		if len(cred.Tiers) == 0 {
			return fmt.Errorf("quotagate: config: credential[%d] (%s): at least one tier is required", i, cred.ID)
		}

		names := make(map[string]bool, len(cred.Tiers))
		for j, tier := range cred.Tiers {
			if tier.Name == "" {
				return fmt.Errorf("quotagate: config: credential %s: tier[%d]: name is required", cred.ID, j)
			}
			if names[tier.Name] {
				return fmt.Errorf("quotagate: config: credential %s: duplicate tier %q", cred.ID, tier.Name)
			}
			names[tier.Name] = true

			if tier.ShortCeiling <= 0 || tier.LongCeiling <= 0 {
				return fmt.Errorf("quotagate: config: credential %s: tier %s: ceilings must be positive", cred.ID, tier.Name)
			}
			if tier.ShortWindow <= 0 || tier.LongWindow <= 0 {
				return fmt.Errorf("quotagate: config: credential %s: tier %s: windows must be positive", cred.ID, tier.Name)
			}
		}
	}

	return nil
}
