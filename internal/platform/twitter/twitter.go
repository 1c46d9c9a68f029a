// Package twitter implements platform.Client over the Twitter v1.1 REST API.
package twitter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"

	"windfarm/internal/platform"
	logx "windfarm/pkg/logx"
)

// Config holds the four OAuth1 credentials.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessKey      string
	AccessSecret   string

	HTTPTimeout time.Duration
	// BaseURL overrides the API root (tests). Empty means the public API.
	BaseURL string
	// TimelineCount is the page size used by UserTimeline. 0 means 200.
	TimelineCount int
}

type Client struct {
	cfg Config
	log logx.Logger
	api *twitter.Client
}

var _ platform.Client = (*Client)(nil)

func New(cfg Config, log logx.Logger) (*Client, error) {
	for _, v := range []string{cfg.ConsumerKey, cfg.ConsumerSecret, cfg.AccessKey, cfg.AccessSecret} {
		if strings.TrimSpace(v) == "" {
			return nil, errors.New("twitter credentials are incomplete")
		}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.TimelineCount <= 0 {
		cfg.TimelineCount = 200
	}

	// oauth1 takes the base transport from the context client.
	ctx := context.Background()
	if cfg.BaseURL != "" {
		base := &http.Client{Transport: rewriteHost(cfg.BaseURL, http.DefaultTransport)}
		ctx = context.WithValue(ctx, oauth1.HTTPClient, base)
	}
	httpClient := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).
		Client(ctx, oauth1.NewToken(cfg.AccessKey, cfg.AccessSecret))
	httpClient.Timeout = timeout

	return &Client{
		cfg: cfg,
		log: log.With(logx.String("comp", "twitter")),
		api: twitter.NewClient(httpClient),
	}, nil
}

func (c *Client) VerifyCredentials(ctx context.Context) (platform.Identity, error) {
	if err := ctx.Err(); err != nil {
		return platform.Identity{}, &platform.Error{Op: "verify_credentials", Err: err}
	}
	u, resp, err := c.api.Accounts.VerifyCredentials(&twitter.AccountVerifyParams{SkipStatus: twitter.Bool(true)})
	if err != nil {
		perr := wrap("verify_credentials", resp, err)
		if perr.Status == http.StatusUnauthorized || perr.Status == http.StatusForbidden {
			return platform.Identity{}, &platform.AuthError{Err: perr}
		}
		return platform.Identity{}, perr
	}
	return platform.Identity{ID: u.ID, ScreenName: u.ScreenName}, nil
}

func (c *Client) PostUpdate(ctx context.Context, text string, inReplyTo int64) (platform.Status, error) {
	if err := ctx.Err(); err != nil {
		return platform.Status{}, &platform.Error{Op: "post", Err: err}
	}
	t, resp, err := c.api.Statuses.Update(text, &twitter.StatusUpdateParams{InReplyToStatusID: inReplyTo})
	if err != nil {
		return platform.Status{}, wrap("post", resp, err)
	}
	return toStatus(*t), nil
}

func (c *Client) Mentions(ctx context.Context, count int, sinceID int64) ([]platform.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, &platform.Error{Op: "mentions", Err: err}
	}
	ts, resp, err := c.api.Timelines.MentionTimeline(&twitter.MentionTimelineParams{
		Count:   count,
		SinceID: sinceID,
	})
	if err != nil {
		return nil, wrap("mentions", resp, err)
	}
	return toStatuses(ts), nil
}

func (c *Client) Search(ctx context.Context, term string, count int, sinceID int64) ([]platform.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, &platform.Error{Op: "search", Err: err}
	}
	res, resp, err := c.api.Search.Tweets(&twitter.SearchTweetParams{
		Query:   term,
		Count:   count,
		SinceID: sinceID,
	})
	if err != nil {
		return nil, wrap("search", resp, err)
	}
	if res == nil {
		return nil, nil
	}
	return toStatuses(res.Statuses), nil
}

func (c *Client) UserTimeline(ctx context.Context) ([]platform.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, &platform.Error{Op: "user_timeline", Err: err}
	}
	ts, resp, err := c.api.Timelines.UserTimeline(&twitter.UserTimelineParams{Count: c.cfg.TimelineCount})
	if err != nil {
		return nil, wrap("user_timeline", resp, err)
	}
	return toStatuses(ts), nil
}

func (c *Client) DestroyStatus(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return &platform.Error{Op: "destroy", Err: err}
	}
	_, resp, err := c.api.Statuses.Destroy(id, nil)
	if err != nil {
		return wrap("destroy", resp, err)
	}
	return nil
}

func toStatus(t twitter.Tweet) platform.Status {
	s := platform.Status{ID: t.ID, Text: t.Text}
	if t.FullText != "" {
		s.Text = t.FullText
	}
	if t.User != nil {
		s.ScreenName = t.User.ScreenName
	}
	return s
}

func toStatuses(ts []twitter.Tweet) []platform.Status {
	out := make([]platform.Status, 0, len(ts))
	for _, t := range ts {
		out = append(out, toStatus(t))
	}
	return out
}

func wrap(op string, resp *http.Response, err error) *platform.Error {
	e := &platform.Error{Op: op, Err: err}
	if resp != nil {
		e.Status = resp.StatusCode
	}
	var apiErr twitter.APIError
	if errors.As(err, &apiErr) && len(apiErr.Errors) > 0 {
		e.Code = apiErr.Errors[0].Code
	}
	return e
}
