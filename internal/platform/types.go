// Package platform describes the microblogging API the bot talks to.
package platform

import "context"

// Identity is the authenticated account.
type Identity struct {
	ID         int64
	ScreenName string
}

// Status is one post.
type Status struct {
	ID         int64
	Text       string
	ScreenName string // author
}

// Client performs authenticated platform calls.
//
// Mentions, Search and UserTimeline return statuses newest first, as the
// platform does. A zero sinceID means no lower bound.
type Client interface {
	VerifyCredentials(ctx context.Context) (Identity, error)
	PostUpdate(ctx context.Context, text string, inReplyTo int64) (Status, error)
	Mentions(ctx context.Context, count int, sinceID int64) ([]Status, error)
	Search(ctx context.Context, term string, count int, sinceID int64) ([]Status, error)
	UserTimeline(ctx context.Context) ([]Status, error)
	DestroyStatus(ctx context.Context, id int64) error
}

// Oldest returns statuses reordered oldest first. The input is not modified.
func Oldest(newestFirst []Status) []Status {
	out := make([]Status, len(newestFirst))
	for i, s := range newestFirst {
		out[len(newestFirst)-1-i] = s
	}
	return out
}
