package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"
)

// Period decides how long a task waits between runs.
//
// Exactly one form is set: a fixed interval, a [min, max) jitter range
// drawn in whole seconds every cycle, or a cron schedule.
type Period struct {
	every    time.Duration
	min, max time.Duration
	sched    cron.Schedule
	source   string
}

// Every returns a fixed period.
func Every(d time.Duration) Period {
	return Period{every: d, source: d.String()}
}

// Jitter returns a period drawn uniformly from [min, max) in whole seconds.
func Jitter(lo, hi time.Duration) Period {
	return Period{min: lo, max: hi, source: fmt.Sprintf("[%s,%s)", lo, hi)}
}

// Cron wraps a cron schedule; the next run is the schedule's next
// activation after the last run.
func Cron(s cron.Schedule, source string) Period {
	return Period{sched: s, source: source}
}

func (p Period) IsCron() bool { return p.sched != nil }

func (p Period) String() string { return p.source }

// Draw returns the period length for one cycle. Cron periods have no fixed
// length and return 0.
func (p Period) Draw(rng *rand.Rand) time.Duration {
	switch {
	case p.sched != nil:
		return 0
	case p.max > p.min:
		span := int64((p.max - p.min) / time.Second)
		if span <= 0 || rng == nil {
			return p.min
		}
		return p.min + time.Duration(rng.Int63n(span))*time.Second
	default:
		return p.every
	}
}

// Delay computes how long to wait before the next run.
func Delay(p Period, lastRun, now time.Time, rng *rand.Rand) time.Duration {
	if lastRun.IsZero() {
		return 0
	}
	elapsed := now.Sub(lastRun)
	if elapsed < 0 {
		return 0
	}
	if p.sched != nil {
		d := p.sched.Next(lastRun).Sub(now)
		if d < 0 {
			return 0
		}
		return d
	}
	period := p.Draw(rng)
	if elapsed > period {
		return 0
	}
	return period - elapsed
}
