// Package supervisor runs named goroutines under one cancellable context and
// keeps per-name run statistics for the status page.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	logx "windfarm/pkg/logx"
)

type Counters struct {
	Active  int64  `json:"active"`
	Started uint64 `json:"started"`
}

// GoroutineStats aggregates every goroutine started under one name.
type GoroutineStats struct {
	Name        string        `json:"name"`
	Active      int64         `json:"active"`
	Started     uint64        `json:"started"`
	Panics      uint64        `json:"panics"`
	LastStartAt time.Time     `json:"last_start_at"`
	LastStopAt  time.Time     `json:"last_stop_at,omitzero"`
	LastErr     string        `json:"last_err,omitempty"`
	LastRuntime time.Duration `json:"last_runtime"`
}

type Snapshot struct {
	Counters   Counters         `json:"counters"`
	FirstError string           `json:"first_error,omitempty"`
	Goroutines []GoroutineStats `json:"goroutines"`
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option { return func(s *Supervisor) { s.log = log } }

// WithCancelOnError makes the first failing goroutine (error or panic)
// cancel the shared context.
func WithCancelOnError(enabled bool) Option { return func(s *Supervisor) { s.cancelOnErr = enabled } }

type Supervisor struct {
	ctx         context.Context
	cancel      context.CancelFunc
	log         logx.Logger
	cancelOnErr bool
	wg          sync.WaitGroup

	mu       sync.Mutex
	counters Counters
	firstErr error
	byName   map[string]*GoroutineStats
}

func New(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{ctx: ctx, cancel: cancel, byName: map[string]*GoroutineStats{}}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Err returns the first goroutine failure, if any.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

func (s *Supervisor) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Snapshot lists running names first, then by name.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Counters: s.counters, Goroutines: make([]GoroutineStats, 0, len(s.byName))}
	if s.firstErr != nil {
		snap.FirstError = s.firstErr.Error()
	}
	for _, st := range s.byName {
		snap.Goroutines = append(snap.Goroutines, *st)
	}
	s.mu.Unlock()

	slices.SortFunc(snap.Goroutines, func(a, b GoroutineStats) int {
		if (a.Active > 0) != (b.Active > 0) {
			if a.Active > 0 {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return snap
}

// Go runs fn on its own goroutine with the supervisor context. Returning
// context.Canceled counts as a clean exit; a panic is recovered and treated
// as an error.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	start := s.begin(name)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var err error
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				err = fmt.Errorf("%s: panic: %v", name, r)
				s.end(name, start, err, true)
				return
			}
			s.end(name, start, err, false)
		}()
		if err = fn(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%s: %w", name, err)
		} else {
			err = nil
		}
	}()
}

// Go0 is Go for functions that cannot fail.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (s *Supervisor) begin(name string) time.Time {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.byName[name]
	if st == nil {
		st = &GoroutineStats{Name: name}
		s.byName[name] = st
	}
	st.Active++
	st.Started++
	st.LastStartAt = now
	s.counters.Active++
	s.counters.Started++
	return now
}

func (s *Supervisor) end(name string, start time.Time, err error, panicked bool) {
	now := time.Now()
	s.mu.Lock()
	st := s.byName[name]
	st.Active--
	st.LastStopAt = now
	st.LastRuntime = now.Sub(start)
	if panicked {
		st.Panics++
	}
	if err != nil {
		st.LastErr = err.Error()
		if s.firstErr == nil {
			s.firstErr = err
		}
	}
	s.counters.Active--
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("goroutine failed", logx.String("name", name), logx.Err(err))
		if s.cancelOnErr {
			s.cancel()
		}
	}
}

// Stop cancels the context and waits for every goroutine, bounded by ctx.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

// Wait returns ctx.Err() if ctx ends first, otherwise the first failure.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
