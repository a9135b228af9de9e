package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/CETS-Org/cets-worker/pkg/errors"
)

// JobFunc is the body of one scheduled run.
type JobFunc func(ctx context.Context, now time.Time) error

// Status is a point-in-time view of one runner for the ops API.
type Status struct {
	Name      string     `json:"name"`
	Running   bool       `json:"running"`
	NextRun   time.Time  `json:"next_run"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int64      `json:"runs"`
	Failures  int64      `json:"failures"`
}

// Runner owns one job: it sleeps until the schedule's next instant, runs the
// job, and recomputes. A failed run is retried once after the backoff, then
// the runner returns to the normal schedule.
type Runner struct {
	name     string
	schedule Schedule
	job      JobFunc
	clock    Clock
	backoff  time.Duration
	logger   *zap.Logger
	metrics  *Metrics

	trigger chan struct{}

	mu      sync.Mutex
	status  Status
	running bool
}

// NewRunner constructs a runner. metrics may be nil.
func NewRunner(name string, schedule Schedule, job JobFunc, clock Clock, backoff time.Duration, metrics *Metrics, logger *zap.Logger) *Runner {
	if clock == nil {
		clock = SystemClock{}
	}
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		name:     name,
		schedule: schedule,
		job:      job,
		clock:    clock,
		backoff:  backoff,
		logger:   logger.With(zap.String("job", name)),
		metrics:  metrics,
		trigger:  make(chan struct{}, 1),
		status:   Status{Name: name},
	}
}

// Name returns the runner's job name.
func (r *Runner) Name() string { return r.name }

// Run loops until ctx is cancelled. Call it on its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("runner started")
	for {
		next := r.schedule.Next(r.clock.Now())
		r.setNextRun(next)

		delay := time.Until(next)
		if !r.waitOrTrigger(ctx, delay) {
			r.logger.Info("runner stopped")
			return
		}

		if err := r.runOnce(ctx); err != nil {
			// Pause before recomputing the schedule so a failing
			// dependency is not hammered, then carry on. A single
			// failure never disables the job.
			if !sleep(ctx, r.backoff) {
				r.logger.Info("runner stopped")
				return
			}
		}
	}
}

// TriggerNow requests an immediate out-of-schedule run. It returns ErrJobBusy
// when a run is already in flight.
func (r *Runner) TriggerNow() error {
	r.mu.Lock()
	busy := r.running
	r.mu.Unlock()
	if busy {
		return apperrors.ErrJobBusy
	}
	select {
	case r.trigger <- struct{}{}:
		return nil
	default:
		return apperrors.ErrJobBusy
	}
}

// Status returns a snapshot of the runner's counters.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) runOnce(ctx context.Context) error {
	now := r.clock.Now()
	r.setRunning(true)
	start := time.Now()
	err := r.job(ctx, now)
	elapsed := time.Since(start)
	r.setRunning(false)

	r.mu.Lock()
	r.status.Runs++
	last := now
	r.status.LastRun = &last
	if err != nil {
		r.status.Failures++
		r.status.LastError = err.Error()
	} else {
		r.status.LastError = ""
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ObserveRun(r.name, elapsed, err)
	}

	if err != nil {
		r.logger.Error("run failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return err
	}
	r.logger.Info("run finished", zap.Duration("elapsed", elapsed))
	return nil
}

// waitOrTrigger blocks until the delay elapses, a manual trigger arrives, or
// ctx is cancelled. It reports false on cancellation.
func (r *Runner) waitOrTrigger(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-r.trigger:
		return true
	case <-timer.C:
		return true
	}
}

func (r *Runner) setNextRun(next time.Time) {
	r.mu.Lock()
	r.status.NextRun = next
	r.mu.Unlock()
}

func (r *Runner) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.status.Running = v
	r.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Manager starts and tracks the full runner set.
type Manager struct {
	runners []*Runner
	byName  map[string]*Runner
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// NewManager constructs an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{byName: make(map[string]*Runner), logger: logger}
}

// Register adds a runner. Must be called before Start.
func (m *Manager) Register(r *Runner) {
	m.runners = append(m.runners, r)
	m.byName[r.Name()] = r
}

// Start launches every registered runner.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	for _, r := range m.runners {
		m.wg.Add(1)
		go func(r *Runner) {
			defer m.wg.Done()
			r.Run(ctx)
		}(r)
	}
	m.logger.Info("worker manager started", zap.Int("runners", len(m.runners)))
}

// Stop cancels every runner and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("worker manager stopped")
}

// Get returns the runner by job name.
func (m *Manager) Get(name string) (*Runner, bool) {
	r, ok := m.byName[name]
	return r, ok
}

// Statuses lists every runner's status in registration order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.runners))
	for _, r := range m.runners {
		out = append(out, r.Status())
	}
	return out
}
