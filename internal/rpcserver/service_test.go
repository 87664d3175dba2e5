package rpcserver_test

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/vncdotool/govnc/internal/config"
	rfbmetrics "github.com/vncdotool/govnc/internal/metrics"
	"github.com/vncdotool/govnc/internal/rfbwire"
	"github.com/vncdotool/govnc/internal/rpcserver"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFull(t *testing.T, conn net.Conn, b []byte) {
	t.Helper()
	if _, err := conn.Write(b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readFull(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read %d bytes: %v", n, err)
	}
	return buf
}

func u16be(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// serverHandshake drives a minimal RFB 3.8 / security-None handshake,
// mirroring internal/rfbclient/client_test.go's fixture.
func serverHandshake(t *testing.T, server net.Conn, width, height uint16, name string) {
	t.Helper()

	writeFull(t, server, []byte("RFB 003.008\n"))
	readFull(t, server, 12)

	writeFull(t, server, []byte{1, 1})
	readFull(t, server, 1)
	writeFull(t, server, u32be(0))
	readFull(t, server, 1) // ClientInit: shared_flag

	pf, err := rfbwire.RGB24.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal pixel format: %v", err)
	}
	serverInit := append([]byte{}, u16be(width)...)
	serverInit = append(serverInit, u16be(height)...)
	serverInit = append(serverInit, pf...)
	serverInit = append(serverInit, u32be(uint32(len(name)))...)
	writeFull(t, server, serverInit)
	writeFull(t, server, []byte(name))

	readFull(t, server, 4+rfbwire.PixelFormatSize)
	header := readFull(t, server, 4)
	count := int(binary.BigEndian.Uint16(header[2:4]))
	readFull(t, server, 4*count)
	readFull(t, server, 10)
}

func listenLoopback(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln, ln.Addr().String()
}

func newTestConfig(targetAddr string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.VNC.ConnectTimeout = 5 * time.Second
	cfg.Targets = []config.TargetConfig{
		{Name: "test-target", Addr: targetAddr},
	}
	return cfg
}

func TestServiceConnectAndListTargets(t *testing.T) {
	ln, addr := listenLoopback(t)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		server, err := ln.Accept()
		if err != nil {
			return
		}
		defer server.Close()
		serverHandshake(t, server, 800, 600, "test-desktop")
	}()

	cfg := newTestConfig(addr)
	collector := rfbmetrics.NewCollector(prometheus.NewRegistry())
	svc := rpcserver.NewService(cfg, collector, slog.Default())
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := svc.Connect(ctx, &rpcserver.ConnectRequest{Target: "test-target"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if resp.Width != 800 || resp.Height != 600 || resp.Name != "test-desktop" {
		t.Errorf("Connect response = %+v, want 800x600 test-desktop", resp)
	}

	<-done

	list, err := svc.ListTargets(ctx, &rpcserver.ListTargetsRequest{})
	if err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if len(list.Targets) != 1 || !list.Targets[0].Connected {
		t.Errorf("ListTargets = %+v, want one connected target", list.Targets)
	}

	// Reconnecting to an already-held target is a no-op returning the
	// same geometry.
	resp2, err := svc.Connect(ctx, &rpcserver.ConnectRequest{Target: "test-target"})
	if err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if resp2.Width != resp.Width {
		t.Errorf("second Connect width = %d, want %d", resp2.Width, resp.Width)
	}

	if _, err := svc.Disconnect(ctx, &rpcserver.DisconnectRequest{Target: "test-target"}); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	list, err = svc.ListTargets(ctx, &rpcserver.ListTargetsRequest{})
	if err != nil {
		t.Fatalf("ListTargets after disconnect: %v", err)
	}
	if list.Targets[0].Connected {
		t.Errorf("target still connected after Disconnect")
	}
}

func TestServiceUnknownTarget(t *testing.T) {
	cfg := newTestConfig("127.0.0.1:0")
	svc := rpcserver.NewService(cfg, nil, slog.Default())
	defer svc.Close()

	ctx := context.Background()
	if _, err := svc.Connect(ctx, &rpcserver.ConnectRequest{Target: "nope"}); err == nil {
		t.Error("Connect to unconfigured target: want error, got nil")
	}
	if _, err := svc.SendKey(ctx, &rpcserver.SendKeyRequest{Target: "nope", Key: "a"}); err == nil {
		t.Error("SendKey to unconnected target: want error, got nil")
	}
}
