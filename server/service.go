// Package server exposes the kernel as a Connect RPC service.
//
// The service tradedesk.v1.AgentService carries google.protobuf.Struct
// messages on every procedure, so any Connect, gRPC or gRPC-Web client can
// call it without generated stubs:
//
//	path, handler := server.NewHandler(k)
//	mux.Handle(path, handler)
//
//	client := server.NewClient(http.DefaultClient, "http://localhost:8080")
//	reply, err := client.SendMessage(ctx, "thread-2", "buy 20 AAPL stock at current price.")
package server

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/kernel"
	"github.com/tailored-agentic-units/tradedesk/observability"
)

// ServiceName is the fully-qualified name of the agent service.
const ServiceName = "tradedesk.v1.AgentService"

// Procedure paths served under ServiceName.
const (
	SendMessageProcedure = "/" + ServiceName + "/SendMessage"
	ResumeProcedure      = "/" + ServiceName + "/Resume"
	HistoryProcedure     = "/" + ServiceName + "/History"
)

// EventRequest is emitted once per handled RPC.
const EventRequest observability.EventType = "server.request"

// Kernel is the subset of *kernel.Kernel the service drives.
type Kernel interface {
	SendMessage(ctx context.Context, sessionID, text string) (*kernel.Result, error)
	ResumeCall(ctx context.Context, sessionID, callID, decision string) (*kernel.Result, error)
	History(ctx context.Context, sessionID string) ([]protocol.Message, error)
}

// Service implements the AgentService procedures over a Kernel.
type Service struct {
	kernel Kernel
}

// NewService creates a Service backed by k.
func NewService(k Kernel) *Service {
	return &Service{kernel: k}
}

// SendMessage handles {session_id, text}.
func (s *Service) SendMessage(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	sessionID, err := stringField(req.Msg, FieldSessionID, true)
	if err != nil {
		return nil, toConnectError(err)
	}
	text, err := stringField(req.Msg, FieldText, true)
	if err != nil {
		return nil, toConnectError(err)
	}

	result, err := s.kernel.SendMessage(ctx, sessionID, text)
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(encodeResult(result))
}

// Resume handles {session_id, call_id?, decision}. An absent decision is a
// refusal.
func (s *Service) Resume(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	sessionID, err := stringField(req.Msg, FieldSessionID, true)
	if err != nil {
		return nil, toConnectError(err)
	}
	callID, _ := stringField(req.Msg, FieldCallID, false)
	decision, _ := stringField(req.Msg, FieldDecision, false)

	result, err := s.kernel.ResumeCall(ctx, sessionID, callID, decision)
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(encodeResult(result))
}

// History handles {session_id}.
func (s *Service) History(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	sessionID, err := stringField(req.Msg, FieldSessionID, true)
	if err != nil {
		return nil, toConnectError(err)
	}

	messages, err := s.kernel.History(ctx, sessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return respond(encodeHistory(sessionID, messages))
}

func respond(msg *structpb.Struct, err error) (*connect.Response[structpb.Struct], error) {
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// NewHandler builds the HTTP handler for the agent service. The returned
// path is the mount point for an http.ServeMux.
func NewHandler(k Kernel, opts ...connect.HandlerOption) (string, http.Handler) {
	svc := NewService(k)

	sendMessage := connect.NewUnaryHandler(SendMessageProcedure, svc.SendMessage, opts...)
	resume := connect.NewUnaryHandler(ResumeProcedure, svc.Resume, opts...)
	history := connect.NewUnaryHandler(HistoryProcedure, svc.History, opts...)

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SendMessageProcedure:
			sendMessage.ServeHTTP(w, r)
		case ResumeProcedure:
			resume.ServeHTTP(w, r)
		case HistoryProcedure:
			history.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ObserverInterceptor reports every unary RPC to observer.
func ObserverInterceptor(observer observability.Observer) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)

			level := observability.LevelInfo
			data := map[string]any{
				"procedure": req.Spec().Procedure,
				"duration":  time.Since(start).String(),
				"code":      "ok",
			}
			if err != nil {
				level = observability.LevelWarning
				data["code"] = connect.CodeOf(err).String()
				data["error"] = err
			}

			observer.OnEvent(ctx, observability.NewEvent(EventRequest, level, "server", data))
			return res, err
		}
	}
}
