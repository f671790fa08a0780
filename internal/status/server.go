package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
)

// Router builds the status API: /healthz, /readyz, /metrics and /status.
func Router(t *Tracker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	live := http.StripPrefix("/healthz", &healthz.Handler{Checks: map[string]healthz.Checker{
		"ping": healthz.Ping,
	}})
	ready := http.StripPrefix("/readyz", &healthz.Handler{Checks: map[string]healthz.Checker{
		"cycle": t.Ready,
	}})
	r.GET("/healthz", gin.WrapH(live))
	r.GET("/readyz", gin.WrapH(ready))

	if t.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(t.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, t.Status())
	})
	return r
}

// Server serves the status API until its context is cancelled.
type Server struct {
	Addr    string
	Tracker *Tracker
	Log     logr.Logger
}

// Start listens on Addr and blocks until ctx is done, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           Router(s.Tracker),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("serving status API", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
