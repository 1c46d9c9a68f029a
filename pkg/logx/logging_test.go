package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSender) SendAlert(_ context.Context, text string) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, text)
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestWriterFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "INFO").With(String("comp", "bot"))
	log.Debug("hidden")
	log.Info("posted", Int64("id", 7), Err(errors.New("nope")), Err(nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "posted", line["message"])
	assert.Equal(t, "bot", line["comp"])
	assert.Equal(t, float64(7), line["id"])
	assert.Equal(t, "nope", line["err"])
	assert.Contains(t, line["caller"], "logging_test.go:")
}

func TestZeroLoggerIsNop(t *testing.T) {
	var log Logger
	assert.True(t, log.IsZero())
	log.Info("nothing happens")
	assert.False(t, Nop().IsZero())
}

func TestAlertForwarding(t *testing.T) {
	sender := &recordingSender{}
	svc, log := New(Config{
		Level: "DEBUG",
		Alert: AlertConfig{Enabled: true, MinLevel: "WARN", RatePerSec: 100},
	}, sender)
	defer svc.Close()

	log.Info("routine")
	log.Warn("reply failed", String("task", "mentions"))

	require.Eventually(t, func() bool { return len(sender.all()) == 1 }, time.Second, 5*time.Millisecond)
	msg := sender.all()[0]
	assert.Contains(t, msg, "[WARN] reply failed")
	assert.Contains(t, msg, "- task=mentions")

	// nil sender disables delivery without touching the log pipeline
	svc.SetAlertSender(nil)
	log.Error("dropped")
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sender.all(), 1)
}

func TestFormatAlertJSON(t *testing.T) {
	got := formatAlertJSON([]byte(`{"level":"error","time":"x","message":"boom","b":2,"a":"1"}`))
	assert.Equal(t, "[ERROR] boom\n- a=1\n- b=2", got)
	assert.Equal(t, "not json", formatAlertJSON([]byte("not json\n")))
}

func TestLevels(t *testing.T) {
	for _, s := range []string{"", "trace", "Debug", "INFO", "warning", "ERROR"} {
		assert.True(t, ValidLevel(s), s)
	}
	assert.False(t, ValidLevel("LOUD"))
	assert.Equal(t, LevelWarn, parseLevel("warn", LevelInfo))
	assert.Equal(t, LevelInfo, parseLevel("bogus", LevelInfo))
}
