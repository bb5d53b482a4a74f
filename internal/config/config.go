// Package config loads the pulse configuration file.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sonicwave/pulse/internal/logging"
	"github.com/sonicwave/pulse/pkg/adapters/process"
	"github.com/sonicwave/pulse/pkg/constraints"
	"github.com/sonicwave/pulse/pkg/domain"
	"github.com/sonicwave/pulse/pkg/entry"
	"github.com/sonicwave/pulse/pkg/ramp"
	"github.com/sonicwave/pulse/pkg/session"
	"gopkg.in/yaml.v3"
)

// Backend names accepted for the ledger and the snapshot store.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendNone   = "none"
)

// Duration is a time.Duration written as "30s" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the root of the configuration file.
type Config struct {
	Session  SessionConfig  `yaml:"session" json:"session"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Ledger   LedgerConfig   `yaml:"ledger" json:"ledger"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	Hardware HardwareConfig `yaml:"hardware" json:"hardware"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// SessionConfig shapes every orchestrator.
type SessionConfig struct {
	TickMs int `yaml:"tick_ms" json:"tick_ms"`
	// TransitionMs is the total ramp duration. Ignored when Steps is set.
	TransitionMs        int               `yaml:"transition_ms" json:"transition_ms"`
	Steps               int               `yaml:"steps" json:"steps"`
	SoftTargetIntensity int               `yaml:"soft_target_intensity" json:"soft_target_intensity"`
	ToggleMode          domain.ToggleMode `yaml:"toggle_mode" json:"toggle_mode"`
	PlayTone            bool              `yaml:"play_tone" json:"play_tone"`
	MaxDigits           int               `yaml:"max_digits" json:"max_digits"`
	Defaults            domain.Params     `yaml:"defaults" json:"defaults"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	MetricsPath string `yaml:"metrics_path" json:"metrics_path"`
}

type RedisConfig struct {
	Addr     string   `yaml:"addr" json:"addr"`
	Password string   `yaml:"password" json:"password"`
	DB       int      `yaml:"db" json:"db"`
	Prefix   string   `yaml:"prefix" json:"prefix"`
	LockTTL  Duration `yaml:"lock_ttl" json:"lock_ttl"`
	// SnapshotTTL expires stored snapshots; zero keeps them forever.
	SnapshotTTL Duration `yaml:"snapshot_ttl" json:"snapshot_ttl"`
}

type BackendConfig struct {
	Backend string `yaml:"backend" json:"backend"`
}

// Hardware backends.
const (
	HardwareSimulated = "simulated"
	HardwareProcess   = "process"
)

// HardwareConfig selects the output driver of every device.
type HardwareConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	// Driver is used by the process backend.
	Driver process.DriverConfig `yaml:"driver" json:"driver"`
}

// StoreConfig selects where device snapshots are kept.
type StoreConfig struct {
	BackendConfig `yaml:",inline"`

	// Dir holds one JSON file per device for the file backend.
	Dir string `yaml:"dir" json:"dir"`
}

// LedgerConfig selects the ledger backend and how customer data is protected.
type LedgerConfig struct {
	BackendConfig `yaml:",inline"`

	// RedactCustomers drops customer names before they reach the ledger.
	RedactCustomers bool `yaml:"redact_customers" json:"redact_customers"`
	// RedactPatterns are regular expressions masked in free-text details
	// when RedactCustomers is set.
	RedactPatterns []string `yaml:"redact_patterns" json:"redact_patterns"`
	// EncryptionKey is a base64 AES-256 key for customer names.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	// FallbackKeys are retired keys still accepted for reading.
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// Keys decodes the encryption keys. It returns a nil active key when
// encryption is disabled.
func (l LedgerConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if l.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(l.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range l.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Session: SessionConfig{
			TickMs:              20,
			TransitionMs:        400,
			SoftTargetIntensity: 20,
			ToggleMode:          domain.ToggleStop,
			PlayTone:            true,
			MaxDigits:           entry.DefaultMaxDigits,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsPath: "/metrics",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Prefix:  "pulse:",
			LockTTL: Duration{session.DefaultLockTTL},
		},
		Ledger:   LedgerConfig{BackendConfig: BackendConfig{Backend: BackendMemory}},
		Store:    StoreConfig{BackendConfig: BackendConfig{Backend: BackendNone}, Dir: ".pulse/snapshots"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Hardware: HardwareConfig{Backend: HardwareSimulated},
	}
}

// Load reads a YAML or JSON file over the defaults. A missing file yields
// the defaults. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	s := c.Session

	if err := ramp.Validate(c.Transition()); err != nil {
		errs = append(errs, fmt.Errorf("session.tick_ms: %w", err))
	}
	if s.Steps < 0 {
		errs = append(errs, errors.New("session.steps must not be negative"))
	}
	if s.Steps == 0 && s.TransitionMs < 0 {
		errs = append(errs, errors.New("session.transition_ms must not be negative"))
	}
	if !s.ToggleMode.Valid() {
		errs = append(errs, fmt.Errorf("session.toggle_mode: unknown mode %q", s.ToggleMode))
	}
	if s.SoftTargetIntensity < constraints.MinIntensity || s.SoftTargetIntensity > constraints.MaxIntensity {
		errs = append(errs, fmt.Errorf("session.soft_target_intensity must be within [%d, %d]",
			constraints.MinIntensity, constraints.MaxIntensity))
	}
	if s.MaxDigits < 1 {
		errs = append(errs, errors.New("session.max_digits must be positive"))
	}
	if !validBackend(c.Ledger.Backend, false) || c.Ledger.Backend == BackendFile {
		errs = append(errs, fmt.Errorf("ledger.backend: unknown backend %q", c.Ledger.Backend))
	}
	if _, _, err := c.Ledger.Keys(); err != nil {
		errs = append(errs, fmt.Errorf("ledger.%w", err))
	}
	for _, p := range c.Ledger.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("ledger.redact_patterns: %w", err))
		}
	}
	if !validBackend(c.Store.Backend, true) {
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendFile && c.Store.Dir == "" {
		errs = append(errs, errors.New("store.dir is required for the file backend"))
	}
	switch c.Hardware.Backend {
	case HardwareSimulated:
	case HardwareProcess:
		if err := c.Hardware.Driver.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("hardware.driver: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("hardware.backend: unknown backend %q", c.Hardware.Backend))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func validBackend(name string, allowNone bool) bool {
	switch name {
	case BackendMemory, BackendRedis, BackendFile:
		return true
	case BackendNone:
		return allowNone
	}
	return false
}

// UsesRedis reports whether any component needs a Redis connection.
func (c Config) UsesRedis() bool {
	return c.Ledger.Backend == BackendRedis || c.Store.Backend == BackendRedis
}

// Transition returns the ramp shape described by the session section.
func (c Config) Transition() ramp.TransitionSpec {
	if c.Session.Steps > 0 {
		return ramp.StepsSpec{Steps: c.Session.Steps, TickMs: c.Session.TickMs}
	}
	return ramp.DurationSpec{DurationMs: c.Session.TransitionMs, TickMs: c.Session.TickMs}
}

// SessionOptions converts the session section into orchestrator options.
func (c Config) SessionOptions() []session.Option {
	s := c.Session
	return []session.Option{
		session.WithTransition(c.Transition()),
		session.WithToggleMode(s.ToggleMode),
		session.WithSoftTargetIntensity(s.SoftTargetIntensity),
		session.WithPlayTone(s.PlayTone),
		session.WithBufferOptions(
			entry.WithMaxDigits(s.MaxDigits),
			entry.WithDefaults(s.Defaults),
		),
	}
}
