// vncrpcd runs a daemon that holds open RFB connections to a set of
// configured VNC targets and exposes keyboard/mouse/clipboard/capture
// operations over ConnectRPC, with Prometheus metrics and standard
// gRPC health checking.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/vncdotool/govnc/internal/config"
	rfbmetrics "github.com/vncdotool/govnc/internal/metrics"
	"github.com/vncdotool/govnc/internal/rpcserver"
	appversion "github.com/vncdotool/govnc/internal/version"
)

// shutdownTimeout is the maximum time to wait for HTTP servers to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("vncrpcd starting",
		slog.String("version", appversion.Version),
		slog.String("grpc_addr", cfg.GRPC.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.Int("targets", len(cfg.Targets)),
	)

	reg := prometheus.NewRegistry()
	collector := rfbmetrics.NewCollector(reg)

	svc := rpcserver.NewService(cfg, collector, logger)
	defer svc.Close()

	if err := runServers(cfg, svc, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("vncrpcd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("vncrpcd stopped")
	return 0
}

// runServers sets up and runs the ConnectRPC and metrics HTTP servers
// using an errgroup with signal-aware context for graceful shutdown,
// mirroring cmd/gobfd's runServers.
func runServers(
	cfg *config.Config,
	svc *rpcserver.Service,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	rpcSrv := newRPCServer(cfg.GRPC, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	lc := net.ListenConfig{}
	g.Go(func() error {
		logger.Info("rpc server listening", slog.String("addr", cfg.GRPC.Addr))
		return listenAndServe(gCtx, &lc, rpcSrv, cfg.GRPC.Addr)
	})
	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr), slog.String("path", cfg.Metrics.Path))
		return listenAndServe(gCtx, &lc, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		return runWatchdog(gCtx, logger)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(gCtx, sigHUP, configPath, logLevel, logger)
		return nil
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, svc, logger, rpcSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Systemd Integration — sd_notify + watchdog
// -------------------------------------------------------------------------

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval), slog.Duration("keepalive_interval", tickInterval))

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", wdErr.Error()))
			}
		}
	}
}

// -------------------------------------------------------------------------
// SIGHUP Reload — log level only
// -------------------------------------------------------------------------

// handleSIGHUP reloads the dynamic log level on SIGHUP. Unlike the
// teacher's session reconciliation, held RFB connections are not torn
// down and rebuilt on reload: spec.md §8's Connect/Disconnect RPCs are
// the caller's own lifecycle control, and a config reload must not
// silently drop a caller's live session.
func handleSIGHUP(
	ctx context.Context,
	sigHUP <-chan os.Signal,
	configPath string,
	logLevel *slog.LevelVar,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading configuration")
			newCfg, err := loadConfig(configPath)
			if err != nil {
				logger.Error("failed to reload configuration, keeping current settings",
					slog.String("error", err.Error()))
				continue
			}
			oldLevel := logLevel.Level()
			newLevel := config.ParseLogLevel(newCfg.Log.Level)
			logLevel.Set(newLevel)
			logger.Info("configuration reloaded",
				slog.String("old_log_level", oldLevel.String()),
				slog.String("new_log_level", newLevel.String()))
		}
	}
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

func gracefulShutdown(
	ctx context.Context,
	svc *rpcserver.Service,
	logger *slog.Logger,
	servers ...*http.Server,
) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	svc.Close()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newRPCServer creates an HTTP server for the ConnectRPC VncService
// endpoint, wrapped with h2c for plaintext HTTP/2, plus standard gRPC
// health checking — the same shape as cmd/gobfd's newGRPCServer.
func newRPCServer(cfg config.GRPCConfig, svc *rpcserver.Service, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	path, handler := rpcserver.New(svc,
		connect.WithInterceptors(
			rpcserver.LoggingInterceptor(logger),
			rpcserver.RecoveryInterceptor(logger),
		),
	)
	mux.Handle(path, handler)

	checker := grpchealth.NewStaticChecker(
		grpchealth.HealthV1ServiceName,
		"vnc.v1.VncService",
	)
	mux.Handle(grpchealth.NewHandler(checker))

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// loadConfig loads configuration from a file path or returns defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
