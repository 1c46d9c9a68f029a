package platform_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windfarm/internal/platform"
	"windfarm/internal/platform/platformtest"
)

func TestOldest(t *testing.T) {
	in := []platform.Status{{ID: 3}, {ID: 2}, {ID: 1}}
	out := platform.Oldest(in)
	assert.Equal(t, []platform.Status{{ID: 1}, {ID: 2}, {ID: 3}}, out)
	assert.Equal(t, int64(3), in[0].ID)
}

func TestErrorMessages(t *testing.T) {
	err := &platform.Error{Op: "post", Status: 403, Code: 187, Err: errors.New("duplicate")}
	assert.Equal(t, "post (http 403, code 187): duplicate", err.Error())

	wrapped := &platform.AuthError{Err: err}
	assert.True(t, platform.IsAuth(wrapped))
	var perr *platform.Error
	assert.ErrorAs(t, wrapped, &perr)
	assert.False(t, platform.IsAuth(err))
}

func TestLimitedPassesThrough(t *testing.T) {
	fake := &platformtest.Fake{Identity: platform.Identity{ScreenName: "windfarmbot"}}
	l := platform.NewLimited(fake, 0, 0)

	id, err := l.VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "windfarmbot", id.ScreenName)

	_, err = l.PostUpdate(context.Background(), "jazz causes rain", 0)
	require.NoError(t, err)
	assert.Len(t, fake.Posts(), 1)
}

func TestLimitedWaitHonoursContext(t *testing.T) {
	fake := &platformtest.Fake{}
	l := platform.NewLimited(fake, 0.001, 1)

	// first call takes the only token
	_, err := l.Mentions(context.Background(), 10, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Mentions(ctx, 10, 0)
	var perr *platform.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mentions", perr.Op)
}
