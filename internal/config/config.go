// Package config loads and validates anchor.yml, the single configuration
// file shared by the anchor CLI and the warden daemon.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dyluth/anchor/pkg/bridge"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate when the corresponding field is omitted.
const (
	DefaultEpsilon           = 1e-6
	DefaultReconcilePeriodMs = 1500
	DefaultRetryIntervalMs   = 500
	DefaultRetryBudget       = 20
	DefaultRecheckDelayMs    = 100
	DefaultCadenceMs         = 5000
)

// AnchorConfig represents the top-level anchor.yml configuration.
type AnchorConfig struct {
	Version   string           `yaml:"version"`
	Instance  string           `yaml:"instance"`
	Map       MapConfig        `yaml:"map"`
	Reconcile *ReconcileConfig `yaml:"reconcile,omitempty"`
	Source    *SourceConfig    `yaml:"source,omitempty"`
	Redis     *RedisConfig     `yaml:"redis,omitempty"`
	Health    *HealthConfig    `yaml:"health,omitempty"`
}

// HealthConfig overrides the guard's health endpoint listen address.
type HealthConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// MapConfig describes the defended map surface.
type MapConfig struct {
	// DefaultCenter is the third-party app's hard-coded fallback centre.
	// Required: the whole defence keys off recognising this literal.
	DefaultCenter CenterConfig `yaml:"default_center"`

	// Epsilon is the floating-point tolerance for recognising the default
	// centre. Defaults to 1e-6 degrees.
	Epsilon *float64 `yaml:"epsilon,omitempty"`
}

// CenterConfig is a latitude/longitude pair in config form.
// Pointers distinguish "omitted" from a literal zero coordinate.
type CenterConfig struct {
	Lat *float64 `yaml:"lat"`
	Lng *float64 `yaml:"lng"`
}

// ReconcileConfig tunes the embedded-side defence loops.
type ReconcileConfig struct {
	PeriodMs        *int     `yaml:"period_ms,omitempty"`         // Reconciliation tick period (default 1500)
	RetryIntervalMs *int     `yaml:"retry_interval_ms,omitempty"` // Interceptor install poll interval (default 500)
	RetryBudget     *int     `yaml:"retry_budget,omitempty"`      // Interceptor install poll attempts (default 20)
	RecheckDelayMs  *int     `yaml:"recheck_delay_ms,omitempty"`  // Delay after a suspect network call (default 100)
	Keywords        []string `yaml:"keywords,omitempty"`          // Endpoint keyword heuristics (default: built-in list)
}

// SourceConfig configures the native-side sample source.
type SourceConfig struct {
	ReplayFile        string   `yaml:"replay_file,omitempty"`         // YAML track file for the replay source
	CadenceMs         *int     `yaml:"cadence_ms,omitempty"`          // Subscription cadence (default 5000)
	MinDistanceMeters *float64 `yaml:"min_distance_meters,omitempty"` // Movement gate (default 0 = emit all)
}

// RedisConfig overrides Redis connection inference.
type RedisConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted optional fields.
func (c *AnchorConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		return fmt.Errorf("instance is required")
	}

	// Required: the default centre literal
	if c.Map.DefaultCenter.Lat == nil || c.Map.DefaultCenter.Lng == nil {
		return fmt.Errorf("map.default_center.lat and map.default_center.lng are required")
	}
	if err := bridge.ValidateCoordinate(*c.Map.DefaultCenter.Lat, *c.Map.DefaultCenter.Lng); err != nil {
		return fmt.Errorf("map.default_center: %w", err)
	}

	if c.Map.Epsilon == nil {
		eps := DefaultEpsilon
		c.Map.Epsilon = &eps
	} else if *c.Map.Epsilon <= 0 {
		return fmt.Errorf("map.epsilon must be > 0, got %v", *c.Map.Epsilon)
	}

	if c.Reconcile == nil {
		c.Reconcile = &ReconcileConfig{}
	}
	if err := c.Reconcile.validate(); err != nil {
		return err
	}

	if c.Source != nil {
		if err := c.Source.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (r *ReconcileConfig) validate() error {
	if r.PeriodMs == nil {
		v := DefaultReconcilePeriodMs
		r.PeriodMs = &v
	} else if *r.PeriodMs <= 0 {
		return fmt.Errorf("reconcile.period_ms must be > 0, got %d", *r.PeriodMs)
	}

	if r.RetryIntervalMs == nil {
		v := DefaultRetryIntervalMs
		r.RetryIntervalMs = &v
	} else if *r.RetryIntervalMs <= 0 {
		return fmt.Errorf("reconcile.retry_interval_ms must be > 0, got %d", *r.RetryIntervalMs)
	}

	if r.RetryBudget == nil {
		v := DefaultRetryBudget
		r.RetryBudget = &v
	} else if *r.RetryBudget <= 0 {
		return fmt.Errorf("reconcile.retry_budget must be > 0, got %d", *r.RetryBudget)
	}

	if r.RecheckDelayMs == nil {
		v := DefaultRecheckDelayMs
		r.RecheckDelayMs = &v
	} else if *r.RecheckDelayMs < 0 {
		return fmt.Errorf("reconcile.recheck_delay_ms must be >= 0, got %d", *r.RecheckDelayMs)
	}

	return nil
}

func (s *SourceConfig) validate() error {
	if s.CadenceMs == nil {
		v := DefaultCadenceMs
		s.CadenceMs = &v
	} else if *s.CadenceMs <= 0 {
		return fmt.Errorf("source.cadence_ms must be > 0, got %d", *s.CadenceMs)
	}

	if s.MinDistanceMeters != nil && *s.MinDistanceMeters < 0 {
		return fmt.Errorf("source.min_distance_meters must be >= 0, got %v", *s.MinDistanceMeters)
	}

	return nil
}

// DefaultCenter returns the configured default centre as a coordinate.
// Only valid after Validate.
func (c *AnchorConfig) DefaultCenter() bridge.Coordinate {
	return bridge.Coordinate{Lat: *c.Map.DefaultCenter.Lat, Lng: *c.Map.DefaultCenter.Lng}
}

// ReconcilePeriod returns the reconciliation tick period as a duration.
// Only valid after Validate.
func (c *AnchorConfig) ReconcilePeriod() time.Duration {
	return time.Duration(*c.Reconcile.PeriodMs) * time.Millisecond
}

// RetryInterval returns the interceptor install poll interval as a duration.
// Only valid after Validate.
func (c *AnchorConfig) RetryInterval() time.Duration {
	return time.Duration(*c.Reconcile.RetryIntervalMs) * time.Millisecond
}

// RecheckDelay returns the disruption recheck delay as a duration.
// Only valid after Validate.
func (c *AnchorConfig) RecheckDelay() time.Duration {
	return time.Duration(*c.Reconcile.RecheckDelayMs) * time.Millisecond
}

// Cadence returns the source subscription cadence as a duration.
// Only valid after Validate, and only when a source section is present.
func (c *AnchorConfig) Cadence() time.Duration {
	return time.Duration(*c.Source.CadenceMs) * time.Millisecond
}

// HealthAddr returns the configured health listen address, or "" for the
// default.
func (c *AnchorConfig) HealthAddr() string {
	if c.Health != nil {
		return c.Health.Addr
	}
	return ""
}

// Load reads and validates anchor.yml from the specified path.
func Load(path string) (*AnchorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config AnchorConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
