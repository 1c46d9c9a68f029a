package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// AlertSender delivers one formatted log line to an operator channel. It must
// be safe for concurrent use.
type AlertSender interface {
	SendAlert(ctx context.Context, text string) error
}

// AlertConfig selects which lines are forwarded. RatePerSec caps deliveries;
// excess lines are dropped.
type AlertConfig struct {
	Enabled    bool
	MinLevel   string
	RatePerSec int
}

const (
	alertQueue   = 64
	alertTimeout = 10 * time.Second
	alertMaxLen  = 3500
	alertMaxAttr = 600
)

// alertSink is a zerolog.LevelWriter feeding a single delivery goroutine.
// Writes never block logging.
type alertSink struct {
	mu      sync.Mutex
	sender  AlertSender
	min     Level
	limiter *rate.Limiter
	queue   chan string
	cancel  context.CancelFunc
	done    chan struct{}
}

func newAlertSink(sender AlertSender) *alertSink {
	return &alertSink{sender: sender, min: LevelWarn, queue: make(chan string, alertQueue)}
}

func (a *alertSink) configure(cfg AlertConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.min = parseLevel(cfg.MinLevel, LevelWarn)
	rps := max(1, cfg.RatePerSec)
	a.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	if cfg.Enabled && a.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel, a.done = cancel, make(chan struct{})
		go a.deliver(ctx, a.done)
	}
}

func (a *alertSink) setSender(sender AlertSender) {
	a.mu.Lock()
	a.sender = sender
	a.mu.Unlock()
}

func (a *alertSink) close() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *alertSink) deliver(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-a.queue:
			a.mu.Lock()
			sender := a.sender
			a.mu.Unlock()
			if sender == nil {
				continue
			}
			sctx, cancel := context.WithTimeout(ctx, alertTimeout)
			if err := sender.SendAlert(sctx, text); err != nil {
				fmt.Fprintf(os.Stderr, "logx: alert not delivered: %v\n", err)
			}
			cancel()
		}
	}
}

func (a *alertSink) Write(p []byte) (int, error) { return a.WriteLevel(LevelInfo, p) }

func (a *alertSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	a.mu.Lock()
	ok := a.sender != nil && a.limiter != nil && level >= a.min
	lim := a.limiter
	a.mu.Unlock()
	if !ok || !lim.Allow() {
		return len(p), nil
	}
	text := formatAlertJSON(p)
	if text == "" {
		return len(p), nil
	}
	select {
	case a.queue <- text:
	default:
	}
	return len(p), nil
}

// formatAlertJSON turns a JSON log line into "[LEVEL] message" followed by
// one "- key=value" line per field, keys sorted. Input that is not JSON is
// passed through trimmed.
func formatAlertJSON(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return clip(raw, alertMaxLen)
	}

	var b strings.Builder
	if lvl, _ := m[zerolog.LevelFieldName].(string); lvl != "" {
		fmt.Fprintf(&b, "[%s] ", strings.ToUpper(lvl))
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	b.WriteString(msg)

	delete(m, zerolog.LevelFieldName)
	delete(m, zerolog.MessageFieldName)
	delete(m, zerolog.TimestampFieldName)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s=%s", k, clip(fmt.Sprint(m[k]), alertMaxAttr))
	}
	return clip(b.String(), alertMaxLen)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
