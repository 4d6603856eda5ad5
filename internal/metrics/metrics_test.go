package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

func TestRecorderTracksRequestsAndErrors(t *testing.T) {
	rec := NewRecorder()
	rec.ObserveRequest("pokemon", 10*time.Millisecond, nil)
	rec.ObserveRequest("pokemon", 15*time.Millisecond, errors.New("boom"))

	snap := rec.Request("pokemon")
	if snap.Calls != 2 || snap.Errors != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.LastLatency != 15*time.Millisecond {
		t.Fatalf("expected last latency to be 15ms, got %s", snap.LastLatency)
	}
}

func TestRecorderTracksFlows(t *testing.T) {
	rec := NewRecorder()
	rec.RecordCacheHits("generation", 4)
	rec.RecordDropped("generation", 2)
	rec.RecordDropped("generation", 0)
	rec.RecordRun("generation", "success", time.Second, nil)
	rec.RecordRun("generation", "failed", time.Second, errors.New("boom"))

	snap := rec.Flow("generation")
	if snap.CacheHits != 4 || snap.Dropped != 2 {
		t.Fatalf("unexpected counters %+v", snap)
	}
	if snap.Runs != 2 || snap.Failures != 1 || snap.LastState != "failed" {
		t.Fatalf("unexpected run counters %+v", snap)
	}
	if got := rec.Flow("list"); got != (FlowSnapshot{}) {
		t.Fatalf("expected empty snapshot for unknown flow, got %+v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.ObserveRequest("pokemon", time.Millisecond, nil)
	rec.RecordCacheHits("list", 1)
	rec.RecordDropped("list", 1)
	rec.RecordRun("list", "success", time.Millisecond, nil)
	if rec.Flow("list").Runs != 0 || rec.Request("pokemon").Calls != 0 {
		t.Fatal("nil recorder must report zero values")
	}
	if rec.Handler() == nil {
		t.Fatal("nil recorder must still return a handler")
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	rec := NewRecorder()
	rec.ObserveRequest("generation", 5*time.Millisecond, fmt.Errorf("wrapped: %w", schema.ErrNotFound))
	rec.RecordDropped("generation", 3)
	rec.RecordRun("generation", "success", 20*time.Millisecond, nil)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		`pokecache_remote_requests_total{op="generation",outcome="not_found"} 1`,
		`pokecache_sync_dropped_total{flow="generation"} 3`,
		`pokecache_sync_runs_total{flow="generation",state="success"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{schema.ErrNotFound, OutcomeNotFound},
		{fmt.Errorf("x: %w", schema.ErrInvalidInput), OutcomeInvalid},
		{schema.ErrTransport, OutcomeTransport},
		{errors.New("other"), OutcomeTransport},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
