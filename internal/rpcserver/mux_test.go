package rpcserver_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/vncdotool/govnc/internal/config"
	"github.com/vncdotool/govnc/internal/rpcserver"
)

func TestMuxListTargetsOverHTTP(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Targets = []config.TargetConfig{
		{Name: "office-desktop", Addr: "10.0.0.1:5900"},
	}

	svc := rpcserver.NewService(cfg, nil, slog.Default())
	defer svc.Close()

	_, handler := rpcserver.New(svc)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := connect.NewClient[rpcserver.ListTargetsRequest, rpcserver.ListTargetsResponse](
		srv.Client(),
		srv.URL+"/vnc.v1.VncService/ListTargets",
		rpcserver.ClientOptions()...,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.CallUnary(ctx, connect.NewRequest(&rpcserver.ListTargetsRequest{}))
	if err != nil {
		t.Fatalf("ListTargets over HTTP: %v", err)
	}
	if len(resp.Msg.Targets) != 1 || resp.Msg.Targets[0].Target != "office-desktop" {
		t.Errorf("targets = %+v, want one office-desktop entry", resp.Msg.Targets)
	}
	if resp.Msg.Targets[0].Connected {
		t.Errorf("target reported connected before any Connect call")
	}
}
