package bot

import (
	"strings"
	"time"

	"windfarm/internal/config"
	"windfarm/internal/generator"
	"windfarm/internal/scheduler"
	"windfarm/internal/state"
)

// Task names. They double as timer names and log/event task fields.
const (
	TaskTweets   = "tweets"
	TaskMentions = "mentions"
	TaskSearch   = "search"
)

var taskNames = []string{TaskTweets, TaskMentions, TaskSearch}

// Task is the compiled configuration of one periodic task.
type Task struct {
	Name    string
	Enabled bool
	Period  scheduler.Period
	Count   int
	// TimeKey is the cursor holding the task's last run time.
	TimeKey string
}

// Settings is everything the controller derives from a config. It is
// replaced as a whole on reload.
type Settings struct {
	Generator *generator.Generator
	Tasks     map[string]Task
	source    map[string]config.TaskConfig
}

// Compile checks cfg and builds the generator and task periods. Every
// failure is a *config.Error.
func Compile(cfg *config.Config, opts ...generator.Option) (*Settings, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gen, err := generator.FromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Generator: gen,
		Tasks:     make(map[string]Task, len(taskNames)),
		source:    make(map[string]config.TaskConfig, len(taskNames)),
	}
	for _, t := range []struct {
		name, key string
		cfg       config.TaskConfig
	}{
		{TaskTweets, state.LastTweetTime, cfg.Tweets},
		{TaskMentions, state.LastMentionTime, cfg.Mentions},
		{TaskSearch, state.LastSearchTime, cfg.Search},
	} {
		task := Task{Name: t.name, Enabled: t.cfg.Enabled, Count: t.cfg.Count, TimeKey: t.key}
		if task.Enabled {
			p, err := PeriodOf(t.name+".timer", t.cfg.Timer)
			if err != nil {
				return nil, err
			}
			task.Period = p
		}
		s.Tasks[t.name] = task
		s.source[t.name] = t.cfg
	}
	return s, nil
}

// PeriodOf converts a config timer into a scheduler period.
func PeriodOf(field string, p config.Period) (scheduler.Period, error) {
	switch {
	case strings.TrimSpace(p.Spec) != "":
		sp, err := scheduler.ParsePeriod(p.Spec)
		if err != nil {
			return scheduler.Period{}, config.Errorf(field, "%v", err)
		}
		return sp, nil
	case len(p.Range) == 2:
		lo, hi := p.Range[0], p.Range[1]
		if lo < 1 || hi <= lo {
			return scheduler.Period{}, config.Errorf(field, "range [%d,%d) must start at 1s or more and be non-empty", lo, hi)
		}
		return scheduler.Jitter(time.Duration(lo)*time.Second, time.Duration(hi)*time.Second), nil
	case p.Seconds > 0:
		return scheduler.Every(time.Duration(p.Seconds) * time.Second), nil
	default:
		return scheduler.Period{}, config.Errorf(field, "timer required")
	}
}

// changed reports whether the raw config of a task differs between two
// settings. Periods drawn from the same config compare equal.
func (s *Settings) changed(other *Settings, name string) bool {
	a, b := s.source[name], other.source[name]
	return a.Enabled != b.Enabled || a.Count != b.Count || a.Timer.String() != b.Timer.String()
}
