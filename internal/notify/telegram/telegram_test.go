package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAlert(t *testing.T) {
	var (
		mu   sync.Mutex
		got  map[string]any
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		got = decodeBody(r.Header.Get("Content-Type"), body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`)
	}))
	defer srv.Close()

	s, err := New(Config{Token: "123:abc", ChatID: -100, ThreadID: 9, URL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, s.SendAlert(context.Background(), "WRN state flush failed"))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasSuffix(path, "/sendMessage"), path)
	assert.Equal(t, "WRN state flush failed", got["text"])
	assert.EqualValues(t, "-100", toString(got["chat_id"]))
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{ChatID: 1})
	assert.Error(t, err)
	_, err = New(Config{Token: "123:abc"})
	assert.Error(t, err)
}

func TestSendAlertCancelled(t *testing.T) {
	s, err := New(Config{Token: "123:abc", ChatID: 1, URL: "http://127.0.0.1:0"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SendAlert(ctx, "x"), context.Canceled)
}

func decodeBody(contentType string, body []byte) map[string]any {
	out := map[string]any{}
	if strings.HasPrefix(contentType, "application/json") {
		_ = json.Unmarshal(body, &out)
		return out
	}
	vals, _ := url.ParseQuery(string(body))
	for k := range vals {
		out[k] = vals.Get(k)
	}
	return out
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
