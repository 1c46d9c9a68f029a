// Package bot composes the generator, scheduler, state and platform client
// into the running bot.
package bot

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"windfarm/internal/config"
	"windfarm/internal/eventbus"
	"windfarm/internal/generator"
	"windfarm/internal/platform"
	"windfarm/internal/scheduler"
	"windfarm/internal/state"
	logx "windfarm/pkg/logx"
)

var (
	ErrNotAuthenticated = errors.New("bot: not authenticated")
	ErrStopped          = errors.New("bot: stopped")
)

type Option func(*Controller)

func WithLogger(log logx.Logger) Option { return func(c *Controller) { c.log = log } }
func WithBus(bus eventbus.Bus) Option   { return func(c *Controller) { c.bus = bus } }

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithReady registers fn to run once Run has armed the task timers.
func WithReady(fn func()) Option { return func(c *Controller) { c.onReady = fn } }

// WithRand seeds the generator and the scheduler jitter (tests).
func WithRand(seed int64) Option { return func(c *Controller) { c.seed = seed } }

type taskState struct {
	running bool
	// gen identifies the current timer; a fired timer with an older gen was
	// superseded and does nothing.
	gen uint64
}

// Controller runs the tweet, mention and search tasks.
type Controller struct {
	log     logx.Logger
	bus     eventbus.Bus
	client  platform.Client
	cursors *state.Cursors
	now     func() time.Time
	seed    int64
	onReady func()

	mu       sync.Mutex
	keys     config.APIKeys
	settings *Settings
	identity platform.Identity
	authed   bool
	sched    *scheduler.Scheduler
	tasks    map[string]*taskState
	stopping bool
	stopCh   chan struct{}
}

// New compiles cfg. Credentials are not checked until Authenticate.
func New(cfg *config.Config, client platform.Client, cursors *state.Cursors, opts ...Option) (*Controller, error) {
	c := &Controller{
		client:  client,
		cursors: cursors,
		now:     time.Now,
		seed:    time.Now().UnixNano(),
		keys:    cfg.APIKeys,
		tasks:   map[string]*taskState{},
		stopCh:  make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log.IsZero() {
		c.log = logx.Nop()
	}
	c.log = c.log.With(logx.String("comp", "bot"))
	for _, n := range taskNames {
		c.tasks[n] = &taskState{}
	}

	s, err := Compile(cfg, generator.WithRand(rand.New(rand.NewSource(c.seed))))
	if err != nil {
		return nil, err
	}
	c.settings = s
	return c, nil
}

// Authenticate verifies the credentials and records the bot identity.
// It returns a *config.Error for unset credentials and a
// *platform.AuthError when the platform rejects them.
func (c *Controller) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	keys := c.keys
	c.mu.Unlock()
	if err := keys.Check(); err != nil {
		return err
	}

	c.log.Info("authenticating")
	id, err := c.client.VerifyCredentials(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.identity = id
	c.authed = true
	c.mu.Unlock()
	c.log.Info("authenticated", logx.String("screen_name", id.ScreenName))
	return nil
}

// Identity returns the authenticated account.
func (c *Controller) Identity() platform.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Settings returns the active compiled settings.
func (c *Controller) Settings() *Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Run starts every enabled task and blocks until ctx is done or Stop is
// called. On return all timers have been stopped and state flushed.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if !c.authed {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if c.stopping {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.sched != nil {
		c.mu.Unlock()
		return errors.New("bot: already running")
	}
	// Timers outlive ctx cancellation until Stop joins them.
	c.sched = scheduler.New(context.WithoutCancel(ctx),
		scheduler.WithLogger(c.log),
		scheduler.WithBus(c.bus),
		scheduler.WithClock(c.now),
		scheduler.WithRand(rand.New(rand.NewSource(c.seed+1))),
	)
	set := c.settings
	c.mu.Unlock()

	c.log.Info("running", logx.Any("cursors", c.cursors.Snapshot()))
	c.mu.Lock()
	for _, name := range taskNames {
		if t := set.Tasks[name]; t.Enabled {
			c.scheduleLocked(t)
		} else {
			c.log.Debug("task disabled", logx.String("task", name))
		}
	}
	c.mu.Unlock()
	if c.onReady != nil {
		c.onReady()
	}

	select {
	case <-ctx.Done():
		c.log.Info("run context done", logx.Err(context.Cause(ctx)))
	case <-c.stopCh:
	}
	return c.Stop(context.WithoutCancel(ctx))
}

// Stop prevents further task runs, waits for running ones and flushes
// state. It is safe to call more than once.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.stopping {
		c.stopping = true
		close(c.stopCh)
		c.log.Info("stopping")
	}
	sched := c.sched
	c.mu.Unlock()

	var errs []error
	if sched != nil {
		if err := sched.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.cursors.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Active returns the number of live task timers.
func (c *Controller) Active() int64 {
	c.mu.Lock()
	sched := c.sched
	c.mu.Unlock()
	if sched == nil {
		return 0
	}
	return sched.Active()
}

// Scheduled returns the names of tasks with a pending timer, soonest first.
func (c *Controller) Scheduled() []string {
	c.mu.Lock()
	sched := c.sched
	c.mu.Unlock()
	if sched == nil {
		return nil
	}
	var out []string
	for _, t := range sched.Pending() {
		out = append(out, t.Name())
	}
	return out
}

// TaskStatus describes one task for the debug status page.
type TaskStatus struct {
	Name    string    `json:"name"`
	Enabled bool      `json:"enabled"`
	Running bool      `json:"running"`
	Period  string    `json:"period,omitempty"`
	LastRun time.Time `json:"last_run,omitzero"`
	Due     time.Time `json:"due,omitzero"`
}

// Status reports every task in a fixed order.
func (c *Controller) Status() []TaskStatus {
	c.mu.Lock()
	sched := c.sched
	out := make([]TaskStatus, 0, len(taskNames))
	for _, name := range taskNames {
		t := c.settings.Tasks[name]
		ts := TaskStatus{Name: name, Enabled: t.Enabled, Period: t.Period.String(), LastRun: c.cursors.Time(t.TimeKey)}
		if st := c.tasks[name]; st != nil {
			ts.Running = st.running
		}
		out = append(out, ts)
	}
	c.mu.Unlock()

	if sched != nil {
		due := map[string]time.Time{}
		for _, t := range sched.Pending() {
			due[t.Name()] = t.Due()
		}
		for i := range out {
			out[i].Due = due[out[i].Name]
		}
	}
	return out
}

// Apply swaps in a new config. Word lists, periods and counts take effect
// from the next run; tasks are started or cancelled as their enabled flag
// changes. Credentials, platform and state settings need a restart.
func (c *Controller) Apply(cfg *config.Config) error {
	s, err := Compile(cfg, generator.WithRand(rand.New(rand.NewSource(c.now().UnixNano()))))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.settings
	c.settings = s
	if c.bus != nil {
		c.bus.Publish(eventbus.Event{Type: eventbus.ConfigApplied})
	}
	if c.sched == nil || c.stopping {
		c.log.Info("config applied")
		return nil
	}

	var changed []string
	for _, name := range taskNames {
		if !prev.changed(s, name) {
			continue
		}
		changed = append(changed, name)
		if c.tasks[name].running {
			// Picks the new settings up when it reschedules.
			continue
		}
		if t := s.Tasks[name]; t.Enabled {
			c.scheduleLocked(t)
		} else {
			c.tasks[name].gen++
			c.sched.Cancel(name)
			c.log.Info("task disabled", logx.String("task", name))
		}
	}
	c.log.Info("config applied", logx.Any("tasks_changed", changed))
	return nil
}

// scheduleLocked starts the timer for t. c.mu must be held.
func (c *Controller) scheduleLocked(t Task) {
	if c.sched == nil || c.stopping {
		return
	}
	ts := c.tasks[t.Name]
	ts.gen++
	c.sched.Schedule(t.Name, t.Period, c.cursors.Time(t.TimeKey), c.fire(t.Name, ts.gen))
}
