// Package httptransport builds the HTTP server and its middleware.
package httptransport

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ServerConfig contains tunables for the HTTP server. Zero durations fall
// back to the defaults below.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

const (
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 15 * time.Second
)

// Server wraps *http.Server with context driven shutdown.
type Server struct {
	*http.Server
	shutdownTimeout time.Duration
}

// NewServer creates a Server for handler. Internal net/http errors are
// routed through the global zerolog logger.
func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	errorLog := log.Logger.With().Str("component", "http").Logger()
	return &Server{
		Server: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler,
			ReadTimeout:       orDefault(cfg.ReadTimeout, defaultReadTimeout),
			ReadHeaderTimeout: orDefault(cfg.ReadTimeout, defaultReadTimeout),
			WriteTimeout:      orDefault(cfg.WriteTimeout, defaultWriteTimeout),
			IdleTimeout:       orDefault(cfg.IdleTimeout, defaultIdleTimeout),
			ErrorLog:          stdlog.New(errorLog, "", 0),
		},
		shutdownTimeout: orDefault(cfg.ShutdownTimeout, defaultShutdownTimeout),
	}
}

// Run serves until ctx is cancelled and then drains in-flight requests.
// It returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
