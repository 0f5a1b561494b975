package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"connectrpc.com/connect"

	"github.com/tailored-agentic-units/tradedesk/observability"
)

// EventListen is emitted when the server starts accepting connections.
const EventListen observability.EventType = "server.listen"

// Server serves the agent service over HTTP.
type Server struct {
	cfg      Config
	observer observability.Observer
	http     *http.Server
}

// New creates a Server for k. observer receives one event per RPC.
func New(cfg *Config, k Kernel, observer observability.Observer) *Server {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	mux := http.NewServeMux()
	mux.Handle(NewHandler(k, connect.WithInterceptors(ObserverInterceptor(observer))))

	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	return &Server{
		cfg:      *cfg,
		observer: observer,
		http: &http.Server{
			Addr:      cfg.Addr,
			Handler:   mux,
			Protocols: protocols,
		},
	}
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.observer.OnEvent(ctx, observability.NewEvent(EventListen, observability.LevelInfo, "server", map[string]any{
		"addr": ln.Addr().String(),
	}))

	errc := make(chan error, 1)
	go func() { errc <- s.http.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.shutdownTimeout())
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
