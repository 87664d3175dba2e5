package rpcserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
)

// procedurePrefix mirrors the fully-qualified-service-name prefix a
// protoc-generated package would derive from a .proto package/service
// declaration (here: package vnc.v1, service VncService).
const procedurePrefix = "/vnc.v1.VncService/"

// New builds the ConnectRPC handler for svc and the mount path it
// should be registered under, the same two-value shape as
// internal/server.New.
func New(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()

	mux.Handle(procedurePrefix+"Connect", connect.NewUnaryHandler(
		procedurePrefix+"Connect",
		func(ctx context.Context, req *connect.Request[ConnectRequest]) (*connect.Response[ConnectResponse], error) {
			resp, err := svc.Connect(ctx, req.Msg)
			if err != nil {
				return nil, mapServiceError(err)
			}
			return connect.NewResponse(resp), nil
		},
		opts...,
	))

	mux.Handle(procedurePrefix+"Disconnect", connect.NewUnaryHandler(
		procedurePrefix+"Disconnect",
		func(ctx context.Context, req *connect.Request[DisconnectRequest]) (*connect.Response[DisconnectResponse], error) {
			resp, err := svc.Disconnect(ctx, req.Msg)
			if err != nil {
				return nil, mapServiceError(err)
			}
			return connect.NewResponse(resp), nil
		},
		opts...,
	))

	mux.Handle(procedurePrefix+"ListTargets", connect.NewUnaryHandler(
		procedurePrefix+"ListTargets",
		func(ctx context.Context, req *connect.Request[ListTargetsRequest]) (*connect.Response[ListTargetsResponse], error) {
			resp, err := svc.ListTargets(ctx, req.Msg)
			if err != nil {
				return nil, mapServiceError(err)
			}
			return connect.NewResponse(resp), nil
		},
		opts...,
	))

	mux.Handle(procedurePrefix+"SendKey", connect.NewUnaryHandler(
		procedurePrefix+"SendKey",
		func(ctx context.Context, req *connect.Request[SendKeyRequest]) (*connect.Response[SendKeyResponse], error) {
			resp, err := svc.SendKey(ctx, req.Msg)
			if err != nil {
				return nil, mapServiceError(err)
			}
			return connect.NewResponse(resp), nil
		},
		opts...,
	))

	mux.Handle(procedurePrefix+"SendPointer", connect.NewUnaryHandler(
		procedurePrefix+"SendPointer",
		func(ctx context.Context, req *connect.Request[SendPointerRequest]) (*connect.Response[SendPointerResponse], error) {
			resp, err := svc.SendPointer(ctx, req.Msg)
			if err != nil {
				return nil, mapServiceError(err)
			}
			return connect.NewResponse(resp), nil
		},
		opts...,
	))

	mux.Handle(procedurePrefix+"Screenshot", connect.NewUnaryHandler(
		procedurePrefix+"Screenshot",
		func(ctx context.Context, req *connect.Request[ScreenshotRequest]) (*connect.Response[ScreenshotResponse], error) {
			resp, err := svc.Screenshot(ctx, req.Msg)
			if err != nil {
				return nil, mapServiceError(err)
			}
			return connect.NewResponse(resp), nil
		},
		opts...,
	))

	mux.Handle(procedurePrefix+"WatchTargetEvents", connect.NewServerStreamHandler(
		procedurePrefix+"WatchTargetEvents",
		func(ctx context.Context, _ *connect.Request[WatchTargetEventsRequest], stream *connect.ServerStream[WatchTargetEventsResponse]) error {
			return svc.WatchTargetEvents(ctx, func(ev WatchTargetEventsResponse) error {
				if err := stream.Send(&ev); err != nil {
					return fmt.Errorf("send target event: %w", err)
				}
				return nil
			})
		},
		opts...,
	))

	return "/vnc.v1.VncService/", mux
}

// mapServiceError translates Service errors into ConnectRPC error codes.
func mapServiceError(err error) *connect.Error {
	switch {
	case errors.Is(err, ErrUnknownTarget):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrInvalidAction):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
