package sync

import (
	"sort"
	"time"
)

// Flow names, used in logs, metrics and run reports.
const (
	FlowList       = "list"
	FlowGeneration = "generation"
	FlowVersion    = "version"
	FlowDetails    = "details"
	FlowResync     = "resync"
)

// State is the lifecycle position of a flow.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateSuccess  State = "success"
	StateFailed   State = "failed"
)

// Done reports whether s is a final state.
func (s State) Done() bool {
	return s == StateSuccess || s == StateFailed
}

// Run describes one execution of a flow.
type Run struct {
	Flow       string    `json:"flow"`
	Target     string    `json:"target,omitempty"`
	State      State     `json:"state"`
	Count      int       `json:"count"`
	CacheHits  int       `json:"cache_hits"`
	Dropped    int       `json:"dropped"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Duration returns the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (s *syncer) begin(flow, target string) Run {
	run := Run{
		Flow:      flow,
		Target:    target,
		State:     StateFetching,
		StartedAt: s.now(),
	}
	s.publish(run)
	return run
}

func (s *syncer) finish(run Run, res *Result, err error) {
	run.FinishedAt = s.now()
	if err != nil {
		run.State = StateFailed
		run.Error = err.Error()
	} else {
		run.State = StateSuccess
	}
	if res != nil {
		run.Count = len(res.Pokemon)
		run.CacheHits = res.CacheHits
		run.Dropped = res.Dropped
		s.metrics.RecordCacheHits(run.Flow, res.CacheHits)
		s.metrics.RecordDropped(run.Flow, res.Dropped)
	}
	s.metrics.RecordRun(run.Flow, string(run.State), run.Duration(), err)
	s.publish(run)
}

func (s *syncer) publish(run Run) {
	s.mu.Lock()
	s.last[run.Flow] = run
	s.mu.Unlock()

	if s.onRun != nil {
		s.onRun(run)
	}
}

// State implements Syncer.State.
func (s *syncer) State(flow string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.last[flow]; ok {
		return run.State
	}
	return StateIdle
}

// LastRuns implements Syncer.LastRuns.
func (s *syncer) LastRuns() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]Run, 0, len(s.last))
	for _, run := range s.last {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Flow < runs[j].Flow })
	return runs
}
