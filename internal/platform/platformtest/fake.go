// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"sync"

	"windfarm/internal/platform"
)

// Post records one PostUpdate call.
type Post struct {
	Text      string
	InReplyTo int64
}

// Fake is a scriptable platform.Client. Zero value is ready to use.
type Fake struct {
	mu sync.Mutex

	Identity platform.Identity
	AuthErr  error

	// Newest first, like the real API.
	MentionsList []platform.Status
	SearchList   []platform.Status
	Timeline     []platform.Status

	MentionsErr error
	SearchErr   error
	TimelineErr error

	// FailReplyTo makes PostUpdate fail for replies to these ids.
	FailReplyTo map[int64]error
	// FailDestroy makes DestroyStatus fail for these ids.
	FailDestroy map[int64]error
	PostErr     error

	posts     []Post
	destroyed []int64
	searched  []string
	sinceIDs  []int64
	nextID    int64
}

var _ platform.Client = (*Fake)(nil)

func (f *Fake) VerifyCredentials(ctx context.Context) (platform.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AuthErr != nil {
		return platform.Identity{}, f.AuthErr
	}
	return f.Identity, nil
}

func (f *Fake) PostUpdate(ctx context.Context, text string, inReplyTo int64) (platform.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailReplyTo[inReplyTo]; err != nil && inReplyTo != 0 {
		return platform.Status{}, err
	}
	if f.PostErr != nil {
		return platform.Status{}, f.PostErr
	}
	f.posts = append(f.posts, Post{Text: text, InReplyTo: inReplyTo})
	f.nextID++
	return platform.Status{ID: 1000 + f.nextID, Text: text, ScreenName: f.Identity.ScreenName}, nil
}

func (f *Fake) Mentions(ctx context.Context, count int, sinceID int64) ([]platform.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceIDs = append(f.sinceIDs, sinceID)
	if f.MentionsErr != nil {
		return nil, f.MentionsErr
	}
	return page(f.MentionsList, count, sinceID), nil
}

func (f *Fake) Search(ctx context.Context, term string, count int, sinceID int64) ([]platform.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, term)
	f.sinceIDs = append(f.sinceIDs, sinceID)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	return page(f.SearchList, count, sinceID), nil
}

func (f *Fake) UserTimeline(ctx context.Context) ([]platform.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TimelineErr != nil {
		return nil, f.TimelineErr
	}
	return append([]platform.Status(nil), f.Timeline...), nil
}

func (f *Fake) DestroyStatus(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailDestroy[id]; err != nil {
		return err
	}
	f.destroyed = append(f.destroyed, id)
	return nil
}

// Posts returns every successful PostUpdate call in order.
func (f *Fake) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Post(nil), f.posts...)
}

func (f *Fake) Destroyed() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.destroyed...)
}

// Searched returns the search terms in call order.
func (f *Fake) Searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searched...)
}

// SinceIDs returns the sinceID of every Mentions/Search call in order.
func (f *Fake) SinceIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sinceIDs...)
}

func page(list []platform.Status, count int, sinceID int64) []platform.Status {
	out := make([]platform.Status, 0, len(list))
	for _, s := range list {
		if s.ID > sinceID {
			out = append(out, s)
		}
		if count > 0 && len(out) == count {
			break
		}
	}
	return out
}
