// Package metrics records remote calls, cache effectiveness and sync runs.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

const namespace = "pokecache"

// Outcome labels for remote requests.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeTransport = "transport"
	OutcomeInvalid   = "invalid"
)

type flowStats struct {
	runs        int
	failures    int
	cacheHits   int
	dropped     int
	lastState   string
	lastLatency time.Duration
}

type requestStats struct {
	calls       int
	errors      int
	lastLatency time.Duration
}

// Recorder keeps in-memory counters for the status command and mirrors
// them into a private Prometheus registry served by Handler.
type Recorder struct {
	mu       sync.Mutex
	flows    map[string]*flowStats
	requests map[string]*requestStats

	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHitsTotal  *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
}

// NewRecorder returns a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		flows:    make(map[string]*flowStats),
		requests: make(map[string]*requestStats),
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Remote catalog requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Remote catalog request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		cacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Entities served from the local cache instead of the remote catalog.",
		}, []string{"flow"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_dropped_total",
			Help:      "Items silently dropped by best-effort sync flows.",
		}, []string{"flow"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Finished sync runs by flow and final state.",
		}, []string{"flow", "state"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Sync run wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"flow"}),
	}
	r.registry.MustRegister(
		r.requestTotal,
		r.requestDuration,
		r.cacheHitsTotal,
		r.droppedTotal,
		r.runsTotal,
		r.runDuration,
	)
	return r
}

// ObserveRequest records one remote call. It satisfies pokeapi.Observer.
func (r *Recorder) ObserveRequest(op string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats, ok := r.requests[op]
	if !ok {
		stats = &requestStats{}
		r.requests[op] = stats
	}
	stats.calls++
	stats.lastLatency = duration
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()

	r.requestTotal.WithLabelValues(op, outcomeOf(err)).Inc()
	r.requestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordCacheHits adds n cache hits for a flow.
func (r *Recorder) RecordCacheHits(flow string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.flow(flow, func(s *flowStats) { s.cacheHits += n })
	r.cacheHitsTotal.WithLabelValues(flow).Add(float64(n))
}

// RecordDropped adds n dropped items for a flow.
func (r *Recorder) RecordDropped(flow string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.flow(flow, func(s *flowStats) { s.dropped += n })
	r.droppedTotal.WithLabelValues(flow).Add(float64(n))
}

// RecordRun records a finished sync run and its final state.
func (r *Recorder) RecordRun(flow, state string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.flow(flow, func(s *flowStats) {
		s.runs++
		s.lastState = state
		s.lastLatency = duration
		if err != nil {
			s.failures++
		}
	})
	r.runsTotal.WithLabelValues(flow, state).Inc()
	r.runDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// FlowSnapshot is a copy of the counters kept for one sync flow.
type FlowSnapshot struct {
	Runs        int
	Failures    int
	CacheHits   int
	Dropped     int
	LastState   string
	LastLatency time.Duration
}

// RequestSnapshot is a copy of the counters kept for one remote operation.
type RequestSnapshot struct {
	Calls       int
	Errors      int
	LastLatency time.Duration
}

// Flow returns the current counters of a sync flow.
func (r *Recorder) Flow(flow string) FlowSnapshot {
	if r == nil {
		return FlowSnapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.flows[flow]
	if !ok {
		return FlowSnapshot{}
	}
	return FlowSnapshot{
		Runs:        s.runs,
		Failures:    s.failures,
		CacheHits:   s.cacheHits,
		Dropped:     s.dropped,
		LastState:   s.lastState,
		LastLatency: s.lastLatency,
	}
}

// Request returns the current counters of a remote operation.
func (r *Recorder) Request(op string) RequestSnapshot {
	if r == nil {
		return RequestSnapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.requests[op]
	if !ok {
		return RequestSnapshot{}
	}
	return RequestSnapshot{Calls: s.calls, Errors: s.errors, LastLatency: s.lastLatency}
}

func (r *Recorder) flow(flow string, update func(*flowStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.flows[flow]
	if !ok {
		s = &flowStats{}
		r.flows[flow] = s
	}
	update(s)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, schema.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, schema.ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeTransport
	}
}
