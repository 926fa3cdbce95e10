// Package server exposes the orchestrator, the trigger dispatcher and the
// shared state over a local HTTP API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/internal/metrics"
	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/pkg/options"
	"github.com/qtshock/qtshockd/progress"
	"github.com/qtshock/qtshockd/trigger"
)

const shutdownTimeout = 5 * time.Second

// Flasher is the part of the orchestrator the API serves.
type Flasher interface {
	ListUSBEndpoints() string
	FlashDeviceFirmware(ctx context.Context, endpoint, source string) string
}

// Triggerer fires an interaction on a shocker.
type Triggerer interface {
	Trigger(ctx context.Context, shocker int, in trigger.Interaction) error
}

// Config holds the collaborators of a Server. Flasher and State are
// required; a nil Broker disables /api/events and a nil Trigger disables
// /api/trigger.
type Config struct {
	Flasher Flasher
	Broker  *progress.Broker
	Trigger Triggerer
	State   *config.State
	Logger  log.Logger
}

// Server is the HTTP front end.
type Server struct {
	*http.Server

	logger log.Logger
}

// New builds a Server listening on opts.Addr.
func New(opts *options.HTTPOptions, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Std()
	}
	logger = logger.WithName("http")

	s := &Server{
		Server: &http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: opts.Timeout,
		},
		logger: logger,
	}

	r := mux.NewRouter()
	serveAPI(r, cfg, logger)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger}))(h)
	// Log after the request is done, in the Apache format.
	h = handlers.LoggingHandler(log.Writer(logger.WithName("access")), h)

	s.Handler = h
	return s
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Serving API", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("API stopped")
	return nil
}

type recoveryLogger struct {
	l log.Logger
}

func (r recoveryLogger) Println(v ...any) {
	r.l.Warn("Recovered from panic", "panic", v)
}
