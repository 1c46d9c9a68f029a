// Package eventbus carries in-process notifications about task and reply
// activity. Publishing never blocks: a subscriber whose buffer is full misses
// the event and the miss is counted.
package eventbus

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the bot.
const (
	TaskScheduled = "task.scheduled"
	TaskStarted   = "task.started"
	TaskFinished  = "task.finished"
	ReplyPosted   = "reply.posted"
	ReplyFailed   = "reply.failed"
	ConfigApplied = "config.applied"
)

type Event struct {
	Type string
	Time time.Time
	Task string
	Data any
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a channel receiving events of the given types (all
	// types when none are given). unsubscribe closes the channel.
	Subscribe(buffer int, types ...string) (ch <-chan Event, unsubscribe func())
	// Dropped counts deliveries skipped because a subscriber was full.
	Dropped() uint64
}

func New() Bus {
	return &bus{}
}

type subscription struct {
	ch    chan Event
	types []string
}

func (s *subscription) wants(typ string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, typ)
}

type bus struct {
	// mu is held for the whole fanout so unsubscribe cannot close a channel
	// mid-send.
	mu      sync.RWMutex
	subs    []*subscription
	dropped atomic.Uint64
}

func (b *bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.wants(e.Type) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *bus) Subscribe(buffer int, types ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &subscription{ch: make(chan Event, buffer), types: slices.Clone(types)}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			b.subs = slices.DeleteFunc(b.subs, func(x *subscription) bool { return x == s })
			close(s.ch)
			b.mu.Unlock()
		})
	}
}

func (b *bus) Dropped() uint64 { return b.dropped.Load() }
