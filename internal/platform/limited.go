package platform

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limited wraps a Client with a shared token bucket. Every call waits for a
// token; a cancelled ctx aborts the wait.
type Limited struct {
	next Client

	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewLimited allows rps calls per second with the given burst.
// rps <= 0 disables limiting.
func NewLimited(next Client, rps float64, burst int) *Limited {
	l := &Limited{next: next}
	l.SetRate(rps, burst)
	return l
}

// SetRate replaces the limiter. Calls already waiting keep the old one.
func (l *Limited) SetRate(rps float64, burst int) {
	lim := rate.Inf
	if rps > 0 {
		lim = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	l.mu.Lock()
	l.limiter = rate.NewLimiter(lim, burst)
	l.mu.Unlock()
}

func (l *Limited) wait(ctx context.Context, op string) error {
	l.mu.Lock()
	lim := l.limiter
	l.mu.Unlock()
	if err := lim.Wait(ctx); err != nil {
		return &Error{Op: op, Err: err}
	}
	return nil
}

func (l *Limited) VerifyCredentials(ctx context.Context) (Identity, error) {
	if err := l.wait(ctx, "verify_credentials"); err != nil {
		return Identity{}, err
	}
	return l.next.VerifyCredentials(ctx)
}

func (l *Limited) PostUpdate(ctx context.Context, text string, inReplyTo int64) (Status, error) {
	if err := l.wait(ctx, "post"); err != nil {
		return Status{}, err
	}
	return l.next.PostUpdate(ctx, text, inReplyTo)
}

func (l *Limited) Mentions(ctx context.Context, count int, sinceID int64) ([]Status, error) {
	if err := l.wait(ctx, "mentions"); err != nil {
		return nil, err
	}
	return l.next.Mentions(ctx, count, sinceID)
}

func (l *Limited) Search(ctx context.Context, term string, count int, sinceID int64) ([]Status, error) {
	if err := l.wait(ctx, "search"); err != nil {
		return nil, err
	}
	return l.next.Search(ctx, term, count, sinceID)
}

func (l *Limited) UserTimeline(ctx context.Context) ([]Status, error) {
	if err := l.wait(ctx, "user_timeline"); err != nil {
		return nil, err
	}
	return l.next.UserTimeline(ctx)
}

func (l *Limited) DestroyStatus(ctx context.Context, id int64) error {
	if err := l.wait(ctx, "destroy"); err != nil {
		return err
	}
	return l.next.DestroyStatus(ctx, id)
}
