package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"windfarm/internal/eventbus"
	rtsup "windfarm/internal/runtime/supervisor"
	logx "windfarm/pkg/logx"
)

// Callback is a task body. Its context is detached from Stop: a callback that
// already fired runs to completion.
type Callback func(ctx context.Context)

// Timer is a pending one-shot run of a named task.
type Timer struct {
	name   string
	delay  time.Duration
	due    time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Timer) Name() string         { return t.name }
func (t *Timer) Delay() time.Duration { return t.delay }
func (t *Timer) Due() time.Time       { return t.due }

// Cancel prevents the callback from firing if it has not fired yet.
func (t *Timer) Cancel() {
	if t != nil {
		t.cancel()
	}
}

// Wait blocks until the timer goroutine exits.
func (t *Timer) Wait() {
	if t != nil {
		<-t.done
	}
}

type Option func(*Scheduler)

func WithLogger(log logx.Logger) Option { return func(s *Scheduler) { s.log = log } }
func WithBus(bus eventbus.Bus) Option   { return func(s *Scheduler) { s.bus = bus } }

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// WithRand overrides the jitter source (tests).
func WithRand(rng *rand.Rand) Option { return func(s *Scheduler) { s.rng = rng } }

type Scheduler struct {
	mu      sync.Mutex
	log     logx.Logger
	bus     eventbus.Bus
	sup     *rtsup.Supervisor
	now     func() time.Time
	rng     *rand.Rand // guarded by mu
	timers  map[string]*Timer
	stopped bool
}

func New(parent context.Context, opts ...Option) *Scheduler {
	s := &Scheduler{
		now:    time.Now,
		timers: map[string]*Timer{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.sup = rtsup.New(parent, rtsup.WithLogger(s.log), rtsup.WithCancelOnError(false))
	return s
}

// Schedule starts a timer that runs fn once after the computed delay.
// A pending timer with the same name is cancelled first.
// It returns nil once the scheduler is stopped.
func (s *Scheduler) Schedule(name string, p Period, lastRun time.Time, fn Callback) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.sup.Context().Err() != nil {
		s.log.Debug("schedule refused; scheduler stopped", logx.String("task", name))
		return nil
	}

	now := s.now()
	delay := Delay(p, lastRun, now, s.rng)

	if prev := s.timers[name]; prev != nil {
		prev.cancel()
	}

	tctx, cancel := context.WithCancel(s.sup.Context())
	t := &Timer{name: name, delay: delay, due: now.Add(delay), cancel: cancel, done: make(chan struct{})}
	s.timers[name] = t

	s.sup.Go0("timer."+name, func(ctx context.Context) {
		defer close(t.done)
		defer s.forget(t)
		defer cancel()

		tm := time.NewTimer(delay)
		defer tm.Stop()
		select {
		case <-tctx.Done():
			return
		case <-tm.C:
		}
		// Both may be ready at once; cancellation wins.
		if tctx.Err() != nil {
			return
		}
		fn(context.WithoutCancel(ctx))
	})

	s.log.Debug("task scheduled",
		logx.String("task", name),
		logx.String("period", p.String()),
		logx.Duration("delay", delay),
		logx.Time("due", t.due),
	)
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TaskScheduled, Task: name, Data: delay})
	}
	return t
}

func (s *Scheduler) forget(t *Timer) {
	s.mu.Lock()
	if s.timers[t.name] == t {
		delete(s.timers, t.name)
	}
	s.mu.Unlock()
}

// Cancel cancels the pending timer for name, if any, and returns it so the
// caller can Wait on it.
func (s *Scheduler) Cancel(name string) *Timer {
	s.mu.Lock()
	t := s.timers[name]
	s.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
	return t
}

// Pending returns the timers that have not exited yet, ordered by due time.
func (s *Scheduler) Pending() []*Timer {
	s.mu.Lock()
	out := make([]*Timer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].due.Before(out[j].due) })
	return out
}

// Active returns the number of live timer goroutines.
func (s *Scheduler) Active() int64 { return s.sup.Counters().Active }

func (s *Scheduler) Snapshot() rtsup.Snapshot { return s.sup.Snapshot() }

// Stop cancels every pending timer and blocks until all timer goroutines,
// including callbacks already running, have exited (bounded by ctx).
func (s *Scheduler) Stop(ctx context.Context) error {
	start := s.now()
	s.mu.Lock()
	s.stopped = true
	for _, t := range s.timers {
		t.cancel()
	}
	s.mu.Unlock()

	err := s.sup.Stop(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("scheduler stop timed out", logx.Int64("active", s.Active()))
		return err
	}
	s.log.Debug("scheduler stopped", logx.Duration("took", s.now().Sub(start)))
	return nil
}
