package rpcserver

import (
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ConnectRequest names the configured target to dial (spec.md §8,
// "connect"). Connecting twice to the same target is a no-op that
// returns the already-established session's geometry.
type ConnectRequest struct {
	Target string `json:"target"`
}

// ConnectResponse reports the negotiated desktop geometry.
type ConnectResponse struct {
	Target string `json:"target"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// DisconnectRequest names the target to close.
type DisconnectRequest struct {
	Target string `json:"target"`
}

// DisconnectResponse is empty; its presence is the confirmation.
type DisconnectResponse struct{}

// ListTargetsRequest takes no fields; it lists every configured target,
// whether or not the daemon currently holds it open.
type ListTargetsRequest struct{}

// TargetStatus reports one configured target's state; Width, Height and
// Since are set only while the target is held open. Since and
// ConnectTimeout are protobuf well-known types (timestamppb/durationpb)
// rather than time.Time/time.Duration: their generated Seconds/Nanos
// fields carry encoding/json struct tags, so they marshal cleanly
// through the plain-JSON codec (codec.go) while still keeping
// google.golang.org/protobuf's wire types genuinely in use, as
// SPEC_FULL.md's dependency table calls for.
type TargetStatus struct {
	Target         string               `json:"target"`
	Addr           string               `json:"addr"`
	Width          int                  `json:"width"`
	Height         int                  `json:"height"`
	Connected      bool                 `json:"connected"`
	Since          *timestamppb.Timestamp `json:"since,omitempty"`
	ConnectTimeout *durationpb.Duration   `json:"connect_timeout,omitempty"`
}

// ListTargetsResponse lists every configured target.
type ListTargetsResponse struct {
	Targets []TargetStatus `json:"targets"`
}

// SendKeyRequest sends a keysym or named chord (e.g. "ctrl-alt-del") to
// target (spec.md §8, "keyPress"/"keyDown"/"keyUp").
type SendKeyRequest struct {
	Target string `json:"target"`
	Key    string `json:"key"`
	// Action is one of "press", "down", "up". Empty defaults to "press".
	Action string `json:"action"`
}

// SendKeyResponse is empty; its presence is the confirmation.
type SendKeyResponse struct{}

// SendPointerRequest moves and/or clicks the pointer on target
// (spec.md §8, "mouseMove"/"mouseDown"/"mouseUp"/"mousePress"/
// "mouseDrag").
type SendPointerRequest struct {
	Target string `json:"target"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Button int    `json:"button"`
	// Action is one of "move", "down", "up", "press", "drag". Empty
	// defaults to "move".
	Action string `json:"action"`
	// DragStep is the interpolation step in pixels, used only when
	// Action is "drag".
	DragStep int `json:"drag_step"`
}

// SendPointerResponse is empty; its presence is the confirmation.
type SendPointerResponse struct{}

// ScreenshotRequest captures target's current framebuffer.
// If Width and Height are both zero, the full screen is captured;
// otherwise the rectangle at (X,Y)-(X+Width,Y+Height) is captured.
type ScreenshotRequest struct {
	Target string `json:"target"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ScreenshotResponse carries a PNG-encoded capture.
type ScreenshotResponse struct {
	PNG    []byte `json:"png"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// WatchTargetEventsRequest starts a stream of connection-state changes.
type WatchTargetEventsRequest struct{}

// WatchTargetEventsResponse reports a single target's connection state
// transition.
type WatchTargetEventsResponse struct {
	Target    string                 `json:"target"`
	Connected bool                   `json:"connected"`
	Reason    string                 `json:"reason"`
	Timestamp *timestamppb.Timestamp `json:"timestamp,omitempty"`
}
