// Package metrics exposes the daemon's ambient prometheus counters and
// gauges on its own lifecycle.SimpleComponent, the same start/stop shape
// rest.Server uses, wrapping promhttp.Handler directly instead of the
// turbo router since this endpoint carries no job-domain logic of its
// own.
package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oss.nandlabs.io/ecscheduler/l3"
	"oss.nandlabs.io/ecscheduler/lifecycle"
)

var logger = l3.Get()

var (
	// JobsTotal tracks the registry's job count; the registry sets it
	// each time its job set is loaded or changed.
	JobsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ecscheduler_jobs_total",
		Help: "Number of jobs currently registered.",
	})

	// FiringsTotal counts executor firings that returned a result, labeled
	// by that result (checked_tasks / started_tasks). A firing that ended
	// in an error is not counted.
	FiringsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecscheduler_firings_total",
		Help: "Total executor firings, by outcome.",
	}, []string{"outcome"})

	// TasksStartedTotal counts tasks launched across all batches of all
	// firings.
	TasksStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecscheduler_tasks_started_total",
		Help: "Total tasks started by the executor across all jobs.",
	})

	// MissedFiringsTotal counts firings the engine declared missed
	// (found past their misfire grace window).
	MissedFiringsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecscheduler_missed_firings_total",
		Help: "Total firings reported missed past the misfire grace window.",
	})

	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecscheduler_http_requests_total",
		Help: "Total HTTP requests served, by method, route and status.",
	}, []string{"method", "route", "status"})
)

// statusCapturingWriter records the status code written so HTTPFilter
// can label the request after the handler runs.
type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPFilter wraps next, incrementing HTTPRequestsTotal for every
// request it serves. Installed as a turbo global filter.
func HTTPFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, http.StatusText(sw.status)).Inc()
	})
}

// Server is a lifecycle.Component wrapping a /metrics endpoint.
type Server struct {
	*lifecycle.SimpleComponent
	addr   string
	server *http.Server
}

// New returns a metrics Server listening on addr (e.g. ":9090").
func New(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	s := &Server{addr: addr, server: httpServer}
	var listener net.Listener
	s.SimpleComponent = &lifecycle.SimpleComponent{
		CompId: "metrics-server",
		StartFunc: func() error {
			var err error
			listener, err = net.Listen("tcp", addr)
			return err
		},
		AfterStart: func(err error) {
			if err != nil {
				return
			}
			go func() {
				if srvErr := httpServer.Serve(listener); srvErr != nil && srvErr != http.ErrServerClosed {
					logger.ErrorF("metrics: server error: %v", srvErr)
				}
			}()
		},
		StopFunc: func() error {
			return httpServer.Shutdown(context.Background())
		},
	}
	return s
}
