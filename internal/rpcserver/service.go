package rpcserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/vncdotool/govnc/internal/config"
	rfbmetrics "github.com/vncdotool/govnc/internal/metrics"
	"github.com/vncdotool/govnc/internal/rfbclient"
)

// notifyChSize bounds the WatchTargetEvents fan-out channel, matching
// internal/bfd/manager.go's publicNotifyCh sizing: a slow watcher drops
// events rather than blocking the connection goroutines that produce them.
const notifyChSize = 64

// ErrUnknownTarget indicates a request named a target not present in
// the daemon's configured target list.
var ErrUnknownTarget = errors.New("unknown target")

// ErrInvalidAction indicates a SendKeyRequest/SendPointerRequest named
// an Action this service doesn't recognize.
var ErrInvalidAction = errors.New("invalid action")

// heldSession is one configured target's live (or not-yet-dialed) state.
type heldSession struct {
	client *rfbclient.Client
	cfg    config.TargetConfig
	since  time.Time
}

// Service implements the vncrpcd RPC surface: one rfbclient.Client per
// configured target, dialed on demand by Connect and held until
// Disconnect or daemon shutdown.
//
// Grounded on internal/bfd/manager.go's session registry: a mutex-guarded
// map keyed by name, plus a buffered fan-out channel for state-change
// events (WatchTargetEvents is this service's MonitorSessions).
type Service struct {
	mu      sync.Mutex
	held    map[string]*heldSession
	targets map[string]config.TargetConfig

	connectTimeout time.Duration
	shared         bool
	forceCaps      bool
	noCursor       bool

	metrics *rfbmetrics.Collector
	logger  *slog.Logger

	events chan WatchTargetEventsResponse
}

// NewService creates a Service from the daemon's configured targets.
// metrics may be nil (metrics become no-ops).
func NewService(cfg *config.Config, metrics *rfbmetrics.Collector, logger *slog.Logger) *Service {
	targets := make(map[string]config.TargetConfig, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		targets[tc.TargetKey()] = tc
	}

	return &Service{
		held:           make(map[string]*heldSession),
		targets:        targets,
		connectTimeout: cfg.VNC.ConnectTimeout,
		shared:         cfg.VNC.Shared,
		forceCaps:      cfg.VNC.ForceCaps,
		noCursor:       cfg.VNC.NoCursor,
		metrics:        metrics,
		logger:         logger.With(slog.String("component", "rpcserver")),
		events:         make(chan WatchTargetEventsResponse, notifyChSize),
	}
}

// Close closes every held connection. Safe to call once during shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	held := make([]*heldSession, 0, len(s.held))
	for _, h := range s.held {
		held = append(held, h)
	}
	s.held = make(map[string]*heldSession)
	s.mu.Unlock()

	for _, h := range held {
		_ = h.client.Close()
	}
}

// Connect dials target (or returns the already-held session's geometry
// if it's already connected).
func (s *Service) Connect(ctx context.Context, req *ConnectRequest) (*ConnectResponse, error) {
	s.mu.Lock()
	if h, ok := s.held[req.Target]; ok {
		s.mu.Unlock()
		return &ConnectResponse{
			Target: req.Target,
			Width:  h.client.Width(),
			Height: h.client.Height(),
			Name:   h.client.Name(),
		}, nil
	}
	tc, ok := s.targets[req.Target]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("rpcserver: connect %q: %w", req.Target, ErrUnknownTarget)
	}

	host, port, err := tc.HostPort()
	if err != nil {
		return nil, fmt.Errorf("rpcserver: connect %q: %w", req.Target, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	shared := s.shared
	if tc.Shared {
		shared = true
	}

	opts := []rfbclient.Option{
		rfbclient.WithLogger(s.logger),
		rfbclient.WithShared(shared),
		rfbclient.WithForceCaps(s.forceCaps),
		rfbclient.WithNoCursor(s.noCursor),
	}
	if tc.Username != "" || tc.Password != "" {
		opts = append(opts, rfbclient.WithCredentials(tc.Username, tc.Password))
	}

	client, err := rfbclient.Connect(dialCtx, "tcp", fmt.Sprintf("%s:%s", host, port), opts...)
	if err != nil {
		s.recordOutcome(req.Target, "error")
		return nil, fmt.Errorf("rpcserver: connect %q: %w", req.Target, err)
	}

	s.mu.Lock()
	s.held[req.Target] = &heldSession{client: client, cfg: tc, since: time.Now()}
	s.mu.Unlock()

	s.recordOutcome(req.Target, "success")
	s.publish(req.Target, true, "connected")

	return &ConnectResponse{
		Target: req.Target,
		Width:  client.Width(),
		Height: client.Height(),
		Name:   client.Name(),
	}, nil
}

// Disconnect closes target's held connection, if any.
func (s *Service) Disconnect(_ context.Context, req *DisconnectRequest) (*DisconnectResponse, error) {
	s.mu.Lock()
	h, ok := s.held[req.Target]
	if ok {
		delete(s.held, req.Target)
	}
	s.mu.Unlock()

	if !ok {
		return &DisconnectResponse{}, nil
	}

	err := h.client.Close()
	s.publish(req.Target, false, "disconnected")
	if err != nil {
		return nil, fmt.Errorf("rpcserver: disconnect %q: %w", req.Target, err)
	}
	return &DisconnectResponse{}, nil
}

// ListTargets reports every configured target and whether it's
// currently held open.
func (s *Service) ListTargets(_ context.Context, _ *ListTargetsRequest) (*ListTargetsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &ListTargetsResponse{Targets: make([]TargetStatus, 0, len(s.targets))}
	for name, tc := range s.targets {
		st := TargetStatus{Target: name, Addr: tc.Addr, ConnectTimeout: durationpb.New(s.connectTimeout)}
		if h, ok := s.held[name]; ok {
			st.Connected = true
			st.Width = h.client.Width()
			st.Height = h.client.Height()
			st.Since = timestamppb.New(h.since)
		}
		resp.Targets = append(resp.Targets, st)
	}
	return resp, nil
}

// SendKey drives target's keyboard.
func (s *Service) SendKey(_ context.Context, req *SendKeyRequest) (*SendKeyResponse, error) {
	h, err := s.lookup(req.Target)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "", "press":
		err = h.client.KeyPress(req.Key)
	case "down":
		err = h.client.KeyDown(req.Key)
	case "up":
		err = h.client.KeyUp(req.Key)
	default:
		return nil, fmt.Errorf("rpcserver: sendKey: action %q: %w", req.Action, ErrInvalidAction)
	}
	if err != nil {
		return nil, fmt.Errorf("rpcserver: sendKey %q on %q: %w", req.Key, req.Target, err)
	}
	return &SendKeyResponse{}, nil
}

// SendPointer drives target's pointer.
func (s *Service) SendPointer(ctx context.Context, req *SendPointerRequest) (*SendPointerResponse, error) {
	h, err := s.lookup(req.Target)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "", "move":
		err = h.client.MouseMove(req.X, req.Y)
	case "down":
		err = h.client.MouseDown(req.Button)
	case "up":
		err = h.client.MouseUp(req.Button)
	case "press":
		err = h.client.MousePress(req.Button)
	case "drag":
		err = h.client.MouseDrag(ctx, req.X, req.Y, req.DragStep)
	default:
		return nil, fmt.Errorf("rpcserver: sendPointer: action %q: %w", req.Action, ErrInvalidAction)
	}
	if err != nil {
		return nil, fmt.Errorf("rpcserver: sendPointer on %q: %w", req.Target, err)
	}
	return &SendPointerResponse{}, nil
}

// Screenshot captures target's screen (or a sub-region) and encodes it
// as PNG.
func (s *Service) Screenshot(ctx context.Context, req *ScreenshotRequest) (*ScreenshotResponse, error) {
	h, err := s.lookup(req.Target)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	shot, err := captureFor(ctx, h.client, req)
	if err != nil {
		return nil, fmt.Errorf("rpcserver: screenshot %q: %w", req.Target, err)
	}
	if s.metrics != nil {
		s.metrics.ObserveFramebufferUpdateLatency(req.Target, time.Since(start))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, shot); err != nil {
		return nil, fmt.Errorf("rpcserver: screenshot %q: encode png: %w", req.Target, err)
	}

	bounds := shot.Bounds()
	return &ScreenshotResponse{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// WatchTargetEvents streams connection-state transitions to fn until ctx
// is cancelled. fn's error (if any) stops the stream.
func (s *Service) WatchTargetEvents(ctx context.Context, fn func(WatchTargetEventsResponse) error) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rpcserver: watchTargetEvents: %w", ctx.Err())
		case ev := <-s.events:
			if err := fn(ev); err != nil {
				return err
			}
		}
	}
}

// captureFor captures the full screen when req names no sub-region
// (Width and Height both zero), otherwise the requested rectangle.
func captureFor(ctx context.Context, client *rfbclient.Client, req *ScreenshotRequest) (image.Image, error) {
	if req.Width == 0 && req.Height == 0 {
		return client.CaptureScreen(ctx)
	}
	return client.CaptureRegion(ctx, req.X, req.Y, req.Width, req.Height)
}

func (s *Service) lookup(target string) (*heldSession, error) {
	s.mu.Lock()
	h, ok := s.held[target]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("rpcserver: %q: %w", target, ErrUnknownTarget)
	}
	return h, nil
}

func (s *Service) recordOutcome(target, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordHandshakeOutcome(target, outcome)
		if outcome == "success" {
			s.metrics.RegisterConnection(target)
		}
	}
}

func (s *Service) publish(target string, connected bool, reason string) {
	ev := WatchTargetEventsResponse{
		Target:    target,
		Connected: connected,
		Reason:    reason,
		Timestamp: timestamppb.Now(),
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("watch-events channel full, dropping event",
			slog.String("target", target), slog.String("reason", reason))
	}
	if !connected && s.metrics != nil {
		s.metrics.UnregisterConnection(target)
	}
}
