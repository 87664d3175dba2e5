// Package config manages vncrpcd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables. This
// package is only imported by the daemon binary: internal/rfbclient
// takes configuration as explicit Go struct literals / functional
// options and never reads files or environment itself.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete vncrpcd configuration.
type Config struct {
	GRPC    GRPCConfig     `koanf:"grpc"`
	Metrics MetricsConfig  `koanf:"metrics"`
	Log     LogConfig      `koanf:"log"`
	VNC     VNCConfig      `koanf:"vnc"`
	Targets []TargetConfig `koanf:"targets"`
}

// GRPCConfig holds the ConnectRPC server configuration.
type GRPCConfig struct {
	// Addr is the gRPC listen address (e.g., ":50051").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// VNCConfig holds the defaults applied to every RFB connection the
// daemon makes, unless a TargetConfig entry overrides them.
type VNCConfig struct {
	// ConnectTimeout bounds how long a handshake may take before the
	// daemon gives up on a Connect RPC or a declarative target.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`

	// Shared sets the ClientInit shared-connection flag (spec.md §4.2).
	Shared bool `koanf:"shared"`

	// ForceCaps makes KeyPress/KeyDown/KeyUp auto-prefix uppercase
	// letters and US-layout shifted punctuation with "shift-"
	// (internal/rfbkeys.Decode's forceCaps parameter).
	ForceCaps bool `koanf:"force_caps"`

	// NoCursor disables cursor tracking and compositing onto captures.
	NoCursor bool `koanf:"no_cursor"`
}

// TargetConfig describes a declarative RFB target from the
// configuration file. Entries are dialed on demand by the Connect RPC;
// the daemon does not connect them at startup or on SIGHUP reload.
type TargetConfig struct {
	// Name identifies this target in the ConnectRPC API.
	Name string `koanf:"name"`

	// Addr is the target's "host:port" RFB server address.
	Addr string `koanf:"addr"`

	// Username and Password supply VNC-DES/ARD authentication
	// credentials. Username is ignored by VNC-DES (password-only).
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// Shared, when true, requests a shared session for this target even
	// if VNCConfig.Shared is false. When false (including an absent key)
	// VNCConfig.Shared applies; it cannot turn sharing off for one target.
	Shared bool `koanf:"shared"`
}

// TargetKey returns a unique identifier for the target, its Name.
// Used as the target's registry key and for duplicate-name validation.
func (tc TargetConfig) TargetKey() string {
	return tc.Name
}

// HostPort splits Addr into its host and port parts for dialing. Unlike
// the teacher's PeerAddr, this accepts hostnames as well as literal IPs:
// RFB targets are commonly named by DNS, not just address.
func (tc TargetConfig) HostPort() (host, port string, err error) {
	if tc.Addr == "" {
		return "", "", fmt.Errorf("target %q: %w", tc.Name, ErrInvalidTargetAddr)
	}
	host, port, err = net.SplitHostPort(tc.Addr)
	if err != nil {
		return "", "", fmt.Errorf("parse target %q addr %q: %w: %w", tc.Name, tc.Addr, ErrInvalidTargetAddr, err)
	}
	return host, port, nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		VNC: VNCConfig{
			ConnectTimeout: 10 * time.Second,
			Shared:         true,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for vncrpcd configuration.
// Variables are named VNCD_<section>_<key>, e.g., VNCD_GRPC_ADDR.
const envPrefix = "VNCD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (VNCD_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	VNCD_GRPC_ADDR     -> grpc.addr
//	VNCD_METRICS_ADDR  -> metrics.addr
//	VNCD_METRICS_PATH  -> metrics.path
//	VNCD_LOG_LEVEL     -> log.level
//	VNCD_LOG_FORMAT    -> log.format
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	// VNCD_GRPC_ADDR -> grpc.addr (strip prefix, lowercase, _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms VNCD_GRPC_ADDR -> grpc.addr.
// Strips the VNCD_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"grpc.addr":           defaults.GRPC.Addr,
		"metrics.addr":        defaults.Metrics.Addr,
		"metrics.path":        defaults.Metrics.Path,
		"log.level":           defaults.Log.Level,
		"log.format":          defaults.Log.Format,
		"vnc.connect_timeout": defaults.VNC.ConnectTimeout.String(),
		"vnc.shared":          defaults.VNC.Shared,
		"vnc.force_caps":      defaults.VNC.ForceCaps,
		"vnc.no_cursor":       defaults.VNC.NoCursor,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyGRPCAddr indicates the gRPC listen address is empty.
	ErrEmptyGRPCAddr = errors.New("grpc.addr must not be empty")

	// ErrInvalidConnectTimeout indicates the connect timeout is not positive.
	ErrInvalidConnectTimeout = errors.New("vnc.connect_timeout must be > 0")

	// ErrInvalidTargetAddr indicates a target has an empty or malformed
	// "host:port" address.
	ErrInvalidTargetAddr = errors.New("target addr is invalid")

	// ErrEmptyTargetName indicates a target is missing its Name.
	ErrEmptyTargetName = errors.New("target name must not be empty")

	// ErrDuplicateTargetKey indicates two targets share the same Name.
	ErrDuplicateTargetKey = errors.New("duplicate target key")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.GRPC.Addr == "" {
		return ErrEmptyGRPCAddr
	}

	if cfg.VNC.ConnectTimeout <= 0 {
		return ErrInvalidConnectTimeout
	}

	if err := validateTargets(cfg.Targets); err != nil {
		return err
	}

	return nil
}

// validateTargets checks each declarative target entry for correctness.
func validateTargets(targets []TargetConfig) error {
	seen := make(map[string]struct{}, len(targets))

	for i, tc := range targets {
		if tc.Name == "" {
			return fmt.Errorf("targets[%d]: %w", i, ErrEmptyTargetName)
		}

		if _, err := tc.HostPort(); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}

		key := tc.TargetKey()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("targets[%d] key %q: %w", i, key, ErrDuplicateTargetKey)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
