// Package api exposes the conversation pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/helpline/internal/agent"
	"github.com/zulandar/helpline/internal/handoff"
	"github.com/zulandar/helpline/internal/metrics"
)

// apologyMessage is what the customer sees when a turn fails outright.
// Internal error detail never reaches the customer.
const apologyMessage = "I'm sorry, something went wrong on our end. Please try again in a moment."

// Opts holds the collaborators the server needs.
type Opts struct {
	Machine *agent.Machine
	Store   *agent.SessionStore
	Queue   *handoff.Queue
	Metrics *metrics.Metrics // optional
	Logger  *logrus.Logger
}

// Server is the HTTP front end: conversations, queue management,
// approvals, health, and metrics.
type Server struct {
	machine *agent.Machine
	store   *agent.SessionStore
	queue   *handoff.Queue
	metrics *metrics.Metrics
	log     *logrus.Logger
	router  *gin.Engine

	// Per-conversation locks: one turn at a time per conversation,
	// different conversations in parallel.
	locks sync.Map
}

// New creates a Server with all routes registered.
func New(opts Opts) (*Server, error) {
	switch {
	case opts.Machine == nil:
		return nil, fmt.Errorf("api: machine is required")
	case opts.Store == nil:
		return nil, fmt.Errorf("api: session store is required")
	case opts.Queue == nil:
		return nil, fmt.Errorf("api: handoff queue is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		machine: opts.Machine,
		store:   opts.Store,
		queue:   opts.Queue,
		metrics: opts.Metrics,
		log:     log,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	if port <= 0 {
		port = 8000
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	s.log.WithField("port", port).Info("api server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// lock returns the mutex guarding one conversation's turns.
func (s *Server) lock(conversationID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// syncQueueGauge refreshes the queued-handoffs gauge after a queue
// mutation.
func (s *Server) syncQueueGauge() {
	if s.metrics == nil {
		return
	}
	for priority, n := range s.queue.PendingByPriority() {
		s.metrics.QueuedHandoffs.WithLabelValues(string(priority)).Set(float64(n))
	}
}
