package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chatverse/internal/presence"
	"github.com/Tyrowin/chatverse/internal/store"
)

// PresenceStore is the persistent side of presence: the coordinator writes
// to it and the HTTP API reads lastSeen from it.
type PresenceStore interface {
	presence.PresenceStore
	Get(ctx context.Context, user presence.UserID) (store.PresenceRecord, error)
	List(ctx context.Context, onlineOnly bool) ([]store.PresenceRecord, error)
}

// Server wires the presence services to HTTP and WebSocket transport.
type Server struct {
	log         *slog.Logger
	config      *Config
	registry    *presence.Registry
	rooms       *presence.Rooms
	fanout      *presence.Fanout
	coordinator *presence.Coordinator
	writer      *presence.PresenceWriter
	verifier    presence.Verifier
	store       PresenceStore
	hub         *Hub
	upgrader    websocket.Upgrader
	httpServer  *http.Server

	startOnce    sync.Once
	writerCancel context.CancelFunc
	writerDone   chan struct{}
}

// New builds a Server. st may be nil, in which case presence is not persisted.
func New(log *slog.Logger, cfg *Config, verifier presence.Verifier, st PresenceStore) *Server {
	registry := presence.NewRegistry()
	rooms := presence.NewRooms(log)
	fanout := presence.NewFanout(log, registry, rooms,
		presence.WithGlobalChatListUpdates(cfg.GlobalChatListUpdates))

	var persisted presence.PresenceStore
	if st != nil {
		persisted = st
	}
	writer := presence.NewPresenceWriter(log, persisted, cfg.PresenceQueueSize, cfg.PresenceWriteTimeout)
	coordinator := presence.NewCoordinator(log, registry, rooms, fanout, verifier, writer)
	origins := newOriginPolicy(log, cfg.AllowedOrigins())

	s := &Server{
		log:         log,
		config:      cfg,
		registry:    registry,
		rooms:       rooms,
		fanout:      fanout,
		coordinator: coordinator,
		writer:      writer,
		verifier:    verifier,
		store:       st,
		hub:         NewHub(log, cfg, coordinator, registry, rooms),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		writerDone: make(chan struct{}),
	}
	s.httpServer = CreateServer(cfg.Port, s.SetupRoutes())
	return s
}

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Hub returns the hub for shutdown coordination and inspection.
func (s *Server) Hub() *Hub { return s.hub }

// Registry returns the live presence registry.
func (s *Server) Registry() *presence.Registry { return s.registry }

// Rooms returns the room multiplexer.
func (s *Server) Rooms() *presence.Rooms { return s.rooms }

// Start launches the hub loop and the presence writer. It is idempotent and
// must run before WebSocket connections are accepted.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		go s.hub.Run()

		ctx, cancel := context.WithCancel(context.Background())
		s.writerCancel = cancel
		go func() {
			defer close(s.writerDone)
			_ = s.writer.Run(ctx)
		}()
		s.log.Info("Hub started and ready to manage WebSocket connections")
	})
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails, then shuts everything down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	s.Start()

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutdown signal received")
	case err := <-errChan:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	if err := s.Shutdown(timeout); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops accepting requests, closes every client, runs their
// disconnect path and flushes pending presence writes.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.log.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// The hub must be running for its shutdown to complete.
	s.Start()
	if err := s.hub.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}

	s.writerCancel()
	select {
	case <-s.writerDone:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("presence writer: %w", ctx.Err()))
	}

	if len(errs) == 0 {
		s.log.Info("Server shutdown completed")
	}
	return errors.Join(errs...)
}
