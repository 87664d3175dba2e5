package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vncdotool/govnc/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.GRPC.Addr != ":50051" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":50051")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}

	if cfg.VNC.ConnectTimeout != 10*time.Second {
		t.Errorf("VNC.ConnectTimeout = %v, want %v", cfg.VNC.ConnectTimeout, 10*time.Second)
	}

	if !cfg.VNC.Shared {
		t.Error("VNC.Shared = false, want true")
	}

	// Defaults must pass validation.
	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
grpc:
  addr: ":60000"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
vnc:
  connect_timeout: "5s"
  shared: false
  force_caps: true
  no_cursor: true
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.GRPC.Addr != ":60000" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":60000")
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom-metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/custom-metrics")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}

	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}

	if cfg.VNC.ConnectTimeout != 5*time.Second {
		t.Errorf("VNC.ConnectTimeout = %v, want %v", cfg.VNC.ConnectTimeout, 5*time.Second)
	}

	if cfg.VNC.Shared {
		t.Error("VNC.Shared = true, want false")
	}

	if !cfg.VNC.ForceCaps {
		t.Error("VNC.ForceCaps = false, want true")
	}

	if !cfg.VNC.NoCursor {
		t.Error("VNC.NoCursor = false, want true")
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	// Partial YAML: only override grpc.addr and log.level.
	// Everything else should inherit from defaults.
	yamlContent := `
grpc:
  addr: ":55555"
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	// Overridden values.
	if cfg.GRPC.Addr != ":55555" {
		t.Errorf("GRPC.Addr = %q, want %q", cfg.GRPC.Addr, ":55555")
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	// Default values should be preserved.
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "json")
	}

	if cfg.VNC.ConnectTimeout != 10*time.Second {
		t.Errorf("VNC.ConnectTimeout = %v, want default %v", cfg.VNC.ConnectTimeout, 10*time.Second)
	}

	if !cfg.VNC.Shared {
		t.Error("VNC.Shared = false, want default true")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty grpc addr",
			modify: func(cfg *config.Config) {
				cfg.GRPC.Addr = ""
			},
			wantErr: config.ErrEmptyGRPCAddr,
		},
		{
			name: "zero connect timeout",
			modify: func(cfg *config.Config) {
				cfg.VNC.ConnectTimeout = 0
			},
			wantErr: config.ErrInvalidConnectTimeout,
		},
		{
			name: "negative connect timeout",
			modify: func(cfg *config.Config) {
				cfg.VNC.ConnectTimeout = -1 * time.Second
			},
			wantErr: config.ErrInvalidConnectTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "Error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

// -------------------------------------------------------------------------
// Target Config Tests
// -------------------------------------------------------------------------

func TestLoadWithTargets(t *testing.T) {
	t.Parallel()

	yamlContent := `
grpc:
  addr: ":50051"
targets:
  - name: "office-desktop"
    addr: "10.0.0.1:5900"
    username: "alice"
    password: "hunter2"
    shared: true
  - name: "lab-rig"
    addr: "vnc.lab.example:5901"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if len(cfg.Targets) != 2 {
		t.Fatalf("Targets count = %d, want 2", len(cfg.Targets))
	}

	t1 := cfg.Targets[0]
	if t1.Name != "office-desktop" {
		t.Errorf("Targets[0].Name = %q, want %q", t1.Name, "office-desktop")
	}
	if t1.Addr != "10.0.0.1:5900" {
		t.Errorf("Targets[0].Addr = %q, want %q", t1.Addr, "10.0.0.1:5900")
	}
	if t1.Username != "alice" {
		t.Errorf("Targets[0].Username = %q, want %q", t1.Username, "alice")
	}
	if t1.Password != "hunter2" {
		t.Errorf("Targets[0].Password = %q, want %q", t1.Password, "hunter2")
	}
	if !t1.Shared {
		t.Error("Targets[0].Shared = false, want true")
	}

	t2 := cfg.Targets[1]
	if t2.Name != "lab-rig" {
		t.Errorf("Targets[1].Name = %q, want %q", t2.Name, "lab-rig")
	}

	host, port, err := t2.HostPort()
	if err != nil {
		t.Fatalf("HostPort(): %v", err)
	}
	if host != "vnc.lab.example" || port != "5901" {
		t.Errorf("HostPort() = (%q,%q), want (vnc.lab.example,5901)", host, port)
	}

	// Target keys should be distinct.
	if t1.TargetKey() == t2.TargetKey() {
		t.Error("Targets[0] and Targets[1] have the same key, expected different")
	}
}

func TestValidateTargetErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty target name",
			modify: func(cfg *config.Config) {
				cfg.Targets = []config.TargetConfig{
					{Name: "", Addr: "10.0.0.1:5900"},
				}
			},
			wantErr: config.ErrEmptyTargetName,
		},
		{
			name: "empty target addr",
			modify: func(cfg *config.Config) {
				cfg.Targets = []config.TargetConfig{
					{Name: "x", Addr: ""},
				}
			},
			wantErr: config.ErrInvalidTargetAddr,
		},
		{
			name: "malformed target addr",
			modify: func(cfg *config.Config) {
				cfg.Targets = []config.TargetConfig{
					{Name: "x", Addr: "not-a-host-port"},
				}
			},
			wantErr: config.ErrInvalidTargetAddr,
		},
		{
			name: "duplicate target keys",
			modify: func(cfg *config.Config) {
				cfg.Targets = []config.TargetConfig{
					{Name: "x", Addr: "10.0.0.1:5900"},
					{Name: "x", Addr: "10.0.0.2:5900"},
				}
			},
			wantErr: config.ErrDuplicateTargetKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTargetConfigKey(t *testing.T) {
	t.Parallel()

	tc := config.TargetConfig{Name: "office-desktop", Addr: "10.0.0.1:5900"}

	if got := tc.TargetKey(); got != "office-desktop" {
		t.Errorf("TargetKey() = %q, want %q", got, "office-desktop")
	}
}

func TestTargetConfigHostPort(t *testing.T) {
	t.Parallel()

	tc := config.TargetConfig{Name: "x", Addr: "10.0.0.1:5900"}
	host, port, err := tc.HostPort()
	if err != nil {
		t.Fatalf("HostPort() error: %v", err)
	}
	if host != "10.0.0.1" || port != "5900" {
		t.Errorf("HostPort() = (%q,%q), want (10.0.0.1,5900)", host, port)
	}
}

// -------------------------------------------------------------------------
// Environment Variable Override Tests
// -------------------------------------------------------------------------

func TestLoadEnvOverrides(t *testing.T) {
	// Environment variable tests cannot be parallel because they modify
	// process-wide state (os.Setenv).

	yamlContent := `
grpc:
  addr: ":50051"
log:
  level: "info"
`
	path := writeTemp(t, yamlContent)

	// Set env overrides.
	t.Setenv("VNCD_GRPC_ADDR", ":60000")
	t.Setenv("VNCD_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.GRPC.Addr != ":60000" {
		t.Errorf("GRPC.Addr = %q, want %q (from env)", cfg.GRPC.Addr, ":60000")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "debug")
	}
}

func TestLoadEnvOverridesMetrics(t *testing.T) {
	yamlContent := `
grpc:
  addr: ":50051"
metrics:
  addr: ":9100"
  path: "/metrics"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("VNCD_METRICS_ADDR", ":9200")
	t.Setenv("VNCD_METRICS_PATH", "/custom")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q (from env)", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom" {
		t.Errorf("Metrics.Path = %q, want %q (from env)", cfg.Metrics.Path, "/custom")
	}
}

// writeTemp creates a temporary YAML file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "vncd.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
