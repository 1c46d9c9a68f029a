package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windfarm/internal/config"
)

func TestPeriodOf(t *testing.T) {
	p, err := PeriodOf("tweets.timer", config.Period{Range: []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, time.Second, p.Draw(nil))

	p, err = PeriodOf("tweets.timer", config.Period{Seconds: 300})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, p.Draw(nil))

	_, err = PeriodOf("tweets.timer", config.Period{Range: []int{0, 1}})
	require.Error(t, err)
	assert.True(t, config.IsError(err))
	assert.Contains(t, err.Error(), "tweets.timer")
}
