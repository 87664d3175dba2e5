// vncshot connects to a single RFB server, optionally authenticates,
// captures one screenshot, and writes it as a PNG. A small, one-shot
// CLI -- not the scripting DSL driver spec.md §1 places out of scope,
// just enough of a command-line surface to exercise rfbclient's
// connect/capture path end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vncdotool/govnc/internal/rfbclient"
	"github.com/vncdotool/govnc/internal/rfbkeys"
	appversion "github.com/vncdotool/govnc/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "", "RFB server address, host:port")
	out := flag.String("out", "screenshot.png", "output PNG path")
	username := flag.String("username", "", "ARD username (optional)")
	password := flag.String("password", "", "VNC-DES/ARD password (optional)")
	shared := flag.Bool("shared", true, "set the shared-connection flag")
	forceCaps := flag.Bool("force-caps", false, "auto-shift uppercase/punctuation key presses")
	timeout := flag.Duration("timeout", 10*time.Second, "connect + capture timeout")
	keymapFile := flag.String("keymap", "", "YAML file of extra keysym-alias overrides")
	press := flag.String("press", "", "optional key or chord to press before capturing (e.g. ctrl-alt-del)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appversion.Full("vncshot"))
		return 0
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *addr == "" {
		logger.Error("missing required -addr flag")
		return 2
	}

	if *keymapFile != "" {
		if err := loadKeymapOverrides(*keymapFile); err != nil {
			logger.Error("failed to load keymap overrides", slog.String("error", err.Error()))
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := shoot(ctx, shootConfig{
		addr:      *addr,
		out:       *out,
		username:  *username,
		password:  *password,
		shared:    *shared,
		forceCaps: *forceCaps,
		press:     *press,
	}, logger); err != nil {
		logger.Error("vncshot failed", slog.String("error", err.Error()))
		return 1
	}

	return 0
}

type shootConfig struct {
	addr      string
	out       string
	username  string
	password  string
	shared    bool
	forceCaps bool
	press     string
}

// shoot connects, optionally presses a key, captures the screen, and
// writes it to cfg.out as a PNG.
func shoot(ctx context.Context, cfg shootConfig, logger *slog.Logger) error {
	opts := []rfbclient.Option{
		rfbclient.WithLogger(logger),
		rfbclient.WithShared(cfg.shared),
		rfbclient.WithForceCaps(cfg.forceCaps),
	}
	if cfg.username != "" || cfg.password != "" {
		opts = append(opts, rfbclient.WithCredentials(cfg.username, cfg.password))
	}

	client, err := rfbclient.Connect(ctx, "tcp", cfg.addr, opts...)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.addr, err)
	}
	defer client.Close()

	logger.Info("connected",
		slog.String("addr", cfg.addr),
		slog.Int("width", client.Width()),
		slog.Int("height", client.Height()),
		slog.String("name", client.Name()),
	)

	if cfg.press != "" {
		if err := client.KeyPress(cfg.press); err != nil {
			return fmt.Errorf("press %q: %w", cfg.press, err)
		}
	}

	img, err := client.CaptureScreen(ctx)
	if err != nil {
		return fmt.Errorf("capture screen: %w", err)
	}

	f, err := os.Create(cfg.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.out, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", cfg.out, err)
	}

	logger.Info("screenshot written", slog.String("path", cfg.out))
	return nil
}

// loadKeymapOverrides reads a YAML file mapping key names to decimal
// X11 keysym values and registers each as an rfbkeys alias, the way a
// vncdotool caller might monkey-patch its KEYMAP dict with site-local
// names before scripting keystrokes.
func loadKeymapOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var overrides map[string]uint32
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for name, keysym := range overrides {
		rfbkeys.AddAlias(name, rfbkeys.Keysym(keysym))
	}
	return nil
}
