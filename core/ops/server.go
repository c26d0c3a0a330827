// Package ops serves health and metrics endpoints next to the bot runtime.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sdsgks2b79-svg/GG-market-sub000/core/buildinfo"
	"github.com/sdsgks2b79-svg/GG-market-sub000/core/logger"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Server exposes /healthz and /metrics.
type Server struct {
	addr   string
	checks map[string]Check
	srv    *http.Server
}

// New builds a Server listening on addr; checks are evaluated on every /healthz.
func New(addr string, checks map[string]Check) *Server {
	s := &Server{addr: addr, checks: checks}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(s.Handler(), "ops"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router without the tracing wrapper.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(gin.H, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status": state,
		"build":  buildinfo.String(),
		"checks": results,
		"time":   time.Now().Unix(),
	})
}

// Start listens in the background. Listener errors after startup are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	logger.OPS.Info("ops listener started",
		slog.String("event", "ops.start"),
		slog.String("listen", ln.Addr().String()),
	)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.OPS.Error("ops listener failed",
				slog.String("event", "ops.serve"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	logger.OPS.Info("ops listener stopped",
		slog.String("event", "ops.stop"),
		slog.String("status", logger.Status(err)),
	)
	return err
}
