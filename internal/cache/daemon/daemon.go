// Package daemon keeps the local cache warm.
//
// The daemon:
//  1. Refreshes the configured generations at start and on every interval
//  2. Watches the config file and reloads the schedule after a change
//  3. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	cachesync "github.com/devmasterteam/pokecache/internal/cache/sync"
	"github.com/devmasterteam/pokecache/internal/logging"
)

// Refresher fetches one generation into the cache. The synchronizer
// satisfies it.
type Refresher interface {
	FetchGeneration(ctx context.Context, generation int) (*cachesync.Result, error)
}

// Schedule is the reloadable part of the daemon configuration.
type Schedule struct {
	Interval    time.Duration
	Generations []int
}

// Config holds configuration for the daemon.
type Config struct {
	Schedule Schedule

	// ConfigFile is watched for changes when set together with Reload.
	ConfigFile string

	// Reload reads the schedule again after ConfigFile changed.
	Reload func() (Schedule, error)

	// DebounceInterval is how long the config file must stay quiet before
	// it is reloaded. This batches the several events editors emit per save.
	DebounceInterval time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Schedule: Schedule{
			Interval:    time.Hour,
			Generations: []int{1},
		},
		DebounceInterval: 250 * time.Millisecond,
	}
}

// Status reports the daemon's progress.
type Status struct {
	Refreshes   int
	LastRefresh time.Time
	LastError   string
	Reloads     int
	Schedule    Schedule
}

// Daemon refreshes the cache on a schedule.
type Daemon struct {
	refresher Refresher
	config    *Config
	logger    *slog.Logger
	watcher   *ConfigWatcher

	pending   time.Time // last config event not yet applied
	pendingMu sync.Mutex

	statusMu sync.Mutex
	status   Status

	wg sync.WaitGroup
}

// New creates a daemon with custom configuration.
func New(refresher Refresher, config *Config) (*Daemon, error) {
	if refresher == nil {
		return nil, fmt.Errorf("refresher cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Schedule.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive (got %v)", config.Schedule.Interval)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	d := &Daemon{
		refresher: refresher,
		config:    config,
		logger:    logging.Component(config.Logger, "daemon"),
		status:    Status{Schedule: cloneSchedule(config.Schedule)},
	}

	if config.ConfigFile != "" && config.Reload != nil {
		w, err := NewConfigWatcher(config.ConfigFile)
		if err != nil {
			return nil, err
		}
		d.watcher = w
	}
	return d, nil
}

// Run refreshes the cache until ctx is cancelled. A failed refresh is
// logged and retried on the next tick.
func (d *Daemon) Run(ctx context.Context) error {
	logging.Info(d.logger, "starting daemon",
		"interval", d.schedule().Interval.String(),
		"generations", d.schedule().Generations,
	)

	var changes <-chan Change
	if d.watcher != nil {
		if err := d.watcher.Watch(ctx); err != nil {
			return err
		}
		changes = d.watcher.Changes()

		d.wg.Add(1)
		go d.watchErrors(ctx)
		logging.Info(d.logger, "watching config file", "path", d.watcher.Path())
	}

	_ = d.Refresh(ctx)

	ticker := time.NewTicker(d.schedule().Interval)
	defer ticker.Stop()

	debounce := time.NewTicker(d.config.DebounceInterval)
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info(d.logger, "daemon stopped")
			d.wg.Wait()
			return nil

		case <-ticker.C:
			_ = d.Refresh(ctx)

		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logging.Debug(d.logger, "config file changed", "kind", change.Kind.String(), "path", change.Path)
			if change.Kind != Removed {
				d.queueReload()
			}

		case <-debounce.C:
			if !d.reloadDue() {
				continue
			}
			if d.reload() {
				ticker.Reset(d.schedule().Interval)
				_ = d.Refresh(ctx)
			}
		}
	}
}

// Refresh runs every scheduled generation once and returns the joined
// per-generation errors.
func (d *Daemon) Refresh(ctx context.Context) error {
	sched := d.schedule()
	start := time.Now()

	var errs []error
	total := 0
	for _, gen := range sched.Generations {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := d.refresher.FetchGeneration(ctx, gen)
		if err != nil {
			logging.Warn(d.logger, "generation refresh failed", logging.FieldGeneration, gen, logging.FieldError, err)
			errs = append(errs, fmt.Errorf("generation %d: %w", gen, err))
			continue
		}
		total += len(res.Pokemon)
	}
	err := errors.Join(errs...)

	d.statusMu.Lock()
	d.status.Refreshes++
	d.status.LastRefresh = time.Now()
	d.status.LastError = ""
	if err != nil {
		d.status.LastError = err.Error()
	}
	d.statusMu.Unlock()

	logging.Info(d.logger, "refresh complete",
		logging.FieldCount, total,
		logging.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return err
}

// Status returns a copy of the daemon's progress.
func (d *Daemon) Status() Status {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	s := d.status
	s.Schedule = cloneSchedule(s.Schedule)
	return s
}

func (d *Daemon) schedule() Schedule {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	return cloneSchedule(d.status.Schedule)
}

func (d *Daemon) queueReload() {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	d.pending = time.Now()
}

// reloadDue reports whether a queued reload has been quiet for the
// debounce interval, and clears it if so.
func (d *Daemon) reloadDue() bool {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()

	if d.pending.IsZero() || time.Since(d.pending) < d.config.DebounceInterval {
		return false
	}
	d.pending = time.Time{}
	return true
}

// reload applies a new schedule and reports whether it was accepted.
func (d *Daemon) reload() bool {
	sched, err := d.config.Reload()
	if err != nil {
		logging.Error(d.logger, "config reload failed, keeping previous schedule", err)
		return false
	}
	if sched.Interval <= 0 {
		logging.Warn(d.logger, "reloaded interval not positive, keeping previous", "interval", sched.Interval.String())
		sched.Interval = d.schedule().Interval
	}

	d.statusMu.Lock()
	d.status.Schedule = cloneSchedule(sched)
	d.status.Reloads++
	d.statusMu.Unlock()

	logging.Info(d.logger, "config reloaded",
		"interval", sched.Interval.String(),
		"generations", sched.Generations,
	)
	return true
}

func (d *Daemon) watchErrors(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			logging.Warn(d.logger, "watcher error", logging.FieldError, err)
		}
	}
}

func cloneSchedule(s Schedule) Schedule {
	s.Generations = slices.Clone(s.Generations)
	return s
}
