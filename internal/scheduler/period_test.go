package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	hour := Every(time.Hour)

	tests := []struct {
		name    string
		p       Period
		lastRun time.Time
		want    time.Duration
	}{
		{"never ran", hour, time.Time{}, 0},
		{"overdue", hour, now.Add(-time.Hour - 10*time.Second), 0},
		{"exactly due", hour, now.Add(-time.Hour), 0},
		{"part way", hour, now.Add(-55 * time.Minute), 5 * time.Minute},
		{"just ran", hour, now, time.Hour},
		{"future last run", hour, now.Add(time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Delay(tt.p, tt.lastRun, now, nil))
		})
	}
}

func TestDelayJitterWithinRange(t *testing.T) {
	now := time.Now()
	rng := rand.New(rand.NewSource(1))
	p := Jitter(60*time.Second, 120*time.Second)
	last := now.Add(-30 * time.Second)
	for i := 0; i < 200; i++ {
		d := Delay(p, last, now, rng)
		assert.GreaterOrEqual(t, d, 30*time.Second)
		assert.Less(t, d, 90*time.Second)
		assert.Zero(t, d%time.Second)
	}
}

func TestDrawJitterIsRedrawn(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := Jitter(0, time.Hour)
	seen := map[time.Duration]bool{}
	for i := 0; i < 20; i++ {
		seen[p.Draw(rng)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestDelayCron(t *testing.T) {
	p, err := ParsePeriod("@hourly")
	require.NoError(t, err)
	require.True(t, p.IsCron())

	last := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 1, 11, 40, 0, 0, time.UTC)
	assert.Equal(t, 20*time.Minute, Delay(p, last, now, nil))

	// missed activation fires now
	now = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Duration(0), Delay(p, last, now, nil))
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		cron    bool
		every   time.Duration
		wantErr bool
	}{
		{in: "55m", every: 55 * time.Minute},
		{in: "02:30", every: 2*time.Hour + 30*time.Minute},
		{in: "every:1h", every: time.Hour},
		{in: "*/5 * * * *", cron: true},
		{in: "cron:0 9 * * *", cron: true},
		{in: "@every 10m", cron: true},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "00:75", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "* * *", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cron, p.IsCron())
			if !tt.cron {
				assert.Equal(t, tt.every, p.Draw(nil))
			}
		})
	}
}
