package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doolan/logicarray/internal/state"
)

// Server serves /metrics over HTTP for an external Prometheus scraper.
type Server struct {
	httpServer *http.Server
}

// New creates a Server that scrapes shared on every request to /metrics.
// Any extra collectors (e.g. the Exporter's own histogram and counter) are
// registered on the same registry, so one scrape returns everything.
func New(addr string, shared *state.Shared, extra ...prometheus.Collector) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(shared))
	for _, c := range extra {
		registry.MustRegister(c)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
