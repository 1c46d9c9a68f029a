package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"windfarm/internal/config"
	"windfarm/internal/platform"
	"windfarm/internal/platform/platformtest"
	"windfarm/internal/state"
	"windfarm/internal/storage"
	logx "windfarm/pkg/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.APIKeys = config.APIKeys{ConsumerKey: "ck", ConsumerSecret: "cs", AccessKey: "ak", AccessSecret: "as"}
	cfg.Causes = config.Causes{Singular: []string{"jazz", "the moon"}, Plural: []string{"wind farms", "pigeons"}}
	cfg.Effects = nil
	cfg.Search = config.TaskConfig{Enabled: true, Timer: config.Period{Range: []int{1800, 3600}}, Count: 10}
	return cfg
}

type harness struct {
	bot   *Controller
	fake  *platformtest.Fake
	store storage.Store
	curs  *state.Cursors
}

func newHarness(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()
	store := storage.NewMemory()
	curs, err := state.Load(context.Background(), store, logx.Nop())
	require.NoError(t, err)
	fake := &platformtest.Fake{Identity: platform.Identity{ID: 1, ScreenName: "windfarmbot"}}
	opts = append([]Option{WithClock(func() time.Time { return epoch }), WithRand(1)}, opts...)
	b, err := New(cfg, fake, curs, opts...)
	require.NoError(t, err)
	return &harness{bot: b, fake: fake, store: store, curs: curs}
}

func (h *harness) auth(t *testing.T) {
	t.Helper()
	require.NoError(t, h.bot.Authenticate(context.Background()))
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t, testConfig())
	h.auth(t)
	assert.Equal(t, "windfarmbot", h.bot.Identity().ScreenName)
}

func TestAuthenticatePlaceholderCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.APIKeys.ConsumerSecret = config.Placeholder
	h := newHarness(t, cfg)

	err := h.bot.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, config.IsError(err))
}

func TestAuthenticateRejected(t *testing.T) {
	h := newHarness(t, testConfig())
	h.fake.AuthErr = &platform.AuthError{Err: errors.New("401")}

	err := h.bot.Authenticate(context.Background())
	assert.True(t, platform.IsAuth(err))
	assert.ErrorIs(t, h.bot.Run(context.Background()), ErrNotAuthenticated)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Causes = config.Causes{Singular: []string{"jazz"}}
	_, err := New(cfg, &platformtest.Fake{}, nil)
	require.Error(t, err)
	assert.True(t, config.IsError(err))

	cfg = testConfig()
	cfg.Tweets.Timer = config.Period{Spec: "every other tuesday"}
	_, err = New(cfg, &platformtest.Fake{}, nil)
	assert.True(t, config.IsError(err))
}

func TestMentionsSkipFailedReply(t *testing.T) {
	h := newHarness(t, testConfig())
	h.auth(t)
	h.fake.MentionsList = []platform.Status{
		{ID: 11, Text: "hey", ScreenName: "bob"},
		{ID: 10, Text: "yo", ScreenName: "amy"},
	}
	h.fake.FailReplyTo = map[int64]error{10: &platform.Error{Op: "post", Status: 403}}

	h.bot.checkMentions(context.Background(), logx.Nop(), h.bot.Settings())

	assert.Equal(t, int64(11), h.curs.Get(state.LastMentionID))
	posts := h.fake.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, int64(11), posts[0].InReplyTo)
	assert.True(t, strings.HasPrefix(posts[0].Text, "@bob "), posts[0].Text)

	stored, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11), stored[state.LastMentionID])
	assert.Equal(t, epoch.Unix(), stored[state.LastMentionTime])
}

func TestMentionsFetchFailureStillAdvancesTime(t *testing.T) {
	h := newHarness(t, testConfig())
	h.auth(t)
	h.curs.Set(state.LastMentionID, 5)
	h.fake.MentionsErr = &platform.Error{Op: "mentions", Status: 500}

	h.bot.checkMentions(context.Background(), logx.Nop(), h.bot.Settings())

	assert.Equal(t, int64(5), h.curs.Get(state.LastMentionID))
	assert.Equal(t, epoch.Unix(), h.curs.Get(state.LastMentionTime))
	assert.Equal(t, []int64{5}, h.fake.SinceIDs())
	assert.Empty(t, h.fake.Posts())
}

func TestSearchSkipsOwnPosts(t *testing.T) {
	h := newHarness(t, testConfig())
	h.auth(t)
	h.fake.SearchList = []platform.Status{
		{ID: 22, ScreenName: "amy"},
		{ID: 21, ScreenName: "WindfarmBot"},
		{ID: 20, ScreenName: "bob"},
	}

	h.bot.searchAndReply(context.Background(), logx.Nop(), h.bot.Settings(), h.bot.Identity())

	terms := h.fake.Searched()
	require.Len(t, terms, 1)
	term := terms[0]

	posts := h.fake.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, int64(20), posts[0].InReplyTo)
	assert.Equal(t, int64(22), posts[1].InReplyTo)
	for _, p := range posts {
		assert.True(t, strings.HasSuffix(p.Text, " "+term), p.Text)
		assert.NotContains(t, p.Text, term+" cause")
	}
	assert.Equal(t, int64(22), h.curs.Get(state.LastSearchID))
	assert.Equal(t, epoch.Unix(), h.curs.Get(state.LastSearchTime))
}

func TestPostFailureAdvancesTime(t *testing.T) {
	h := newHarness(t, testConfig())
	h.auth(t)
	h.fake.PostErr = &platform.Error{Op: "post", Status: 503}

	h.bot.postTweet(context.Background(), logx.Nop(), h.bot.Settings())
	assert.Equal(t, epoch.Unix(), h.curs.Get(state.LastTweetTime))
	assert.Empty(t, h.fake.Posts())

	h.fake.PostErr = nil
	h.bot.postTweet(context.Background(), logx.Nop(), h.bot.Settings())
	require.Len(t, h.fake.Posts(), 1)
	assert.Contains(t, h.fake.Posts()[0].Text, " cause")
}

func TestClearContinuesAfterFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	assert.ErrorIs(t, h.bot.Clear(context.Background()), ErrNotAuthenticated)

	h.auth(t)
	h.fake.Timeline = []platform.Status{{ID: 3}, {ID: 2}, {ID: 1}}
	h.fake.FailDestroy = map[int64]error{2: &platform.Error{Op: "destroy", Status: 404}}

	err := h.bot.Clear(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete 2")
	var perr *platform.Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, []int64{3, 1}, h.fake.Destroyed())
}

func TestClearEmptyTimeline(t *testing.T) {
	h := newHarness(t, testConfig())
	h.auth(t)
	assert.NoError(t, h.bot.Clear(context.Background()))
}
