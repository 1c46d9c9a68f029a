package debugsrv

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	logx "windfarm/pkg/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func get(t *testing.T, url, bearer string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestStatusAndPprof(t *testing.T) {
	s := New(logx.Nop(), func() any { return map[string]int{"active": 2} })
	require.NoError(t, s.Reconfigure(context.Background(), Config{Enabled: true, Addr: "127.0.0.1:0"}))
	defer s.Stop(context.Background())

	base := "http://" + s.Addr()
	code, body := get(t, base+"/status", "")
	require.Equal(t, http.StatusOK, code)
	var got map[string]int
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 2, got["active"])

	code, _ = get(t, base+"/debug/pprof/cmdline", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestTokenRequired(t *testing.T) {
	s := New(logx.Nop(), func() any { return "ok" })
	require.NoError(t, s.Reconfigure(context.Background(), Config{Enabled: true, Addr: "127.0.0.1:0", Token: "sekrit"}))
	defer s.Stop(context.Background())

	base := "http://" + s.Addr()
	code, _ := get(t, base+"/status", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, base+"/status", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, base+"/status", "sekrit")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, base+"/status?token=sekrit", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestReconfigureStopsAndRestarts(t *testing.T) {
	s := New(logx.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, s.Reconfigure(ctx, Config{Enabled: false, Addr: "127.0.0.1:0"}))
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"}))
	first := s.Addr()
	require.NotEmpty(t, first)

	// unchanged config keeps the listener
	require.NoError(t, s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"}))
	assert.Equal(t, first, s.Addr())

	require.NoError(t, s.Reconfigure(ctx, Config{Enabled: false}))
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Stop(ctx))
}
