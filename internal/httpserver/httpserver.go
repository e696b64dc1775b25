// Package httpserver exposes the runtime's operational surface: a
// liveness endpoint and a Prometheus scrape endpoint. It never
// accepts inference jobs; job submission happens in-process through
// the dispatcher's queue.
package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the liveness verdict reported by /healthz.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// HealthResponse is the JSON body returned by /healthz.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime_seconds"`
}

// Checker reports whether the runtime is still alive. A Runtime
// satisfies this once it exposes a liveness signal; Server itself
// treats a nil Checker as always-healthy.
type Checker interface {
	Alive() bool
}

// Server hosts /healthz and /metrics on a dedicated address, separate
// from any data-plane traffic.
type Server struct {
	engine    *gin.Engine
	srv       *http.Server
	startTime time.Time
	mu        sync.RWMutex
	checker   Checker
}

// New builds a Server bound to addr. registry is the Prometheus
// registry to scrape; pass prometheus.DefaultRegisterer's underlying
// registry or a dedicated one built alongside observability.Metrics.
func New(addr string, registry *prometheus.Registry, checker Checker) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, startTime: time.Now(), checker: checker}
	engine.GET("/healthz", s.healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s.srv = &http.Server{Addr: addr, Handler: engine}
	return s
}

func (s *Server) healthz(c *gin.Context) {
	status := StatusHealthy
	code := http.StatusOK
	if s.checker != nil && !s.checker.Alive() {
		status = StatusUnhealthy
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).Seconds(),
	})
}

// Run starts serving until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
