// Package status serves the session snapshot over HTTP.
//
//	GET /health  healthy | degraded | unhealthy, from source health
//	GET /status  the full session snapshot
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/e7canasta/camsens/internal/session"
)

// Provider returns the current session status
type Provider interface {
	Snapshot() session.Status
}

// Health values reported by /health
const (
	Healthy   = "healthy"
	Degraded  = "degraded"
	Unhealthy = "unhealthy"
)

// HealthResponse is the /health body
type HealthResponse struct {
	Status    string    `json:"status"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// Server is the status HTTP server
type Server struct {
	addr     string
	provider Provider
	router   *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New builds the router. Nothing listens until Start.
func New(addr string, provider Provider) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{addr: addr, provider: provider, router: router}
	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	return s
}

// Handler returns the router, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.provider.Snapshot()
	health := Evaluate(snap)

	code := http.StatusOK
	if health == Unhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    health,
		State:     snap.State,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.provider.Snapshot())
}

// Evaluate derives the overall health of a session snapshot
func Evaluate(st session.Status) string {
	if st.Error != "" {
		return Unhealthy
	}

	health := Healthy
	for _, src := range st.Sources {
		switch {
		case src.Required && (!src.Active || src.Health == "lost"):
			if st.State != "terminated" {
				return Unhealthy
			}
		case src.Health == "degraded", !src.Active && st.State != "terminated":
			health = Degraded
		}
	}
	return health
}

// Start listens on addr and serves until Shutdown or ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status: listen %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		slog.Info("status: http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status: http server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Shutdown(shutdownCtx)
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("status: shutdown: %w", err)
	}
	slog.Info("status: http server stopped")
	return nil
}
