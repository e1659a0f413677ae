package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout bounds the drain of in-flight scrapes once Start's context
// is cancelled.
const shutdownTimeout = 5 * time.Second

// Server serves the global registry at /metrics and a small index at /.
type Server struct {
	server   *http.Server
	port     int
	stopOnce sync.Once
}

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port defaults to 9090.
	Port int

	// Host restricts the listen address. Empty listens on all interfaces.
	Host string
}

// NewServer builds a stopped server. Without an initialized registry
// /metrics answers 503.
func NewServer(config ServerConfig) *Server {
	if config.Port <= 0 {
		config.Port = 9090
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/", indexHandler(config.Port))

	return &Server{
		server: &http.Server{
			Addr:         net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		port: config.Port,
	}
}

func metricsHandler() http.Handler {
	if reg := GetRegistry(); reg != nil {
		return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintln(w, "Metrics collection is disabled")
	})
}

func indexHandler(port int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>dittobrowse metrics</title></head>
<body>
    <h1>dittobrowse</h1>
    <p>Prometheus metrics: <a href="/metrics">/metrics</a></p>
    <p>Scrape <code>http://&lt;host&gt;:%d/metrics</code> for loader cache and source request metrics.</p>
</body>
</html>`, port)
	}
}

// Start binds the listen address and serves until ctx is cancelled, then
// drains for up to shutdownTimeout. A bind failure is returned before any
// request is served. Returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics server listen on %s: %w", s.server.Addr, err)
	}
	logger.Info("Metrics server listening on %s", ln.Addr())

	served := make(chan error, 1)
	go func() { served <- s.server.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(drainCtx)
}

// Stop shuts the server down. Only the first call has an effect.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if err = s.server.Shutdown(ctx); err != nil {
			logger.Error("Metrics server shutdown: %v", err)
			err = fmt.Errorf("metrics server shutdown: %w", err)
			return
		}
		logger.Debug("Metrics server stopped")
	})
	return err
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the configured listen address, "host:port".
func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
