// Package api serves recorded runs, deployments and comparisons over a
// read-only HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/testnetoor/pkg/archive"
	"github.com/ethpandaops/testnetoor/pkg/config"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error

	// Wait blocks until the serve loop of a started server exits and
	// returns its error, nil after a clean Stop.
	Wait() error

	// Addr is the bound listen address once started.
	Addr() string
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.APIConfig
	store      store.Store
	archive    archive.Archiver
	httpServer *http.Server
	addr       string
	wg         sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
	serveErr   chan error
}

// NewServer creates a new API server over an already started store. The
// archiver serves reports that are no longer stored locally; it may be nil.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
	st store.Store,
	archiver archive.Archiver,
) Server {
	return &server{
		log:      log.WithField("component", "api"),
		cfg:      cfg,
		store:    st,
		archive:  archiver,
		done:     make(chan struct{}),
		serveErr: make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
func (s *server) Start(_ context.Context) error {
	// Bind the listener synchronously so we fail fast on port conflicts,
	// before the router starts any background work.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.addr).Info("API server starting")

		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		if err != nil {
			s.log.WithError(err).Error("HTTP server error")
		}

		s.serveErr <- err
	}()

	return nil
}

func (s *server) Addr() string {
	return s.addr
}

func (s *server) Wait() error {
	return <-s.serveErr
}

// Stop gracefully shuts down the HTTP server. The store is owned by the
// caller and left open.
func (s *server) Stop() error {
	s.stopOnce.Do(s.stop)

	return nil
}

func (s *server) stop() {
	close(s.done)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("API server stopped")
}
