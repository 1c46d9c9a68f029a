package config

import (
	"bytes"
	"encoding/json"
)

// Placeholder is the value shipped in the default config for every credential.
// A credential equal to it is treated as unset.
const Placeholder = "xxx"

type Config struct {
	APIKeys APIKeys `json:"api_keys"`

	Causes Causes `json:"causes"`
	// Effects defaults to the cause texts when empty.
	Effects []string `json:"effects,omitempty"`

	Tweets   TaskConfig `json:"tweets"`
	Mentions TaskConfig `json:"mentions"`
	Search   TaskConfig `json:"search"`

	Platform PlatformConfig `json:"platform"`
	State    StateConfig    `json:"state"`
	Logging  LoggingConfig  `json:"logging"`
	Alerts   AlertsConfig   `json:"alerts"`
	Debug    DebugConfig    `json:"debug"`
}

// APIKeys holds the OAuth1 credentials. Each field can be overridden from the
// environment using the upper-cased dotted key (e.g. API_KEYS.CONSUMER_KEY).
type APIKeys struct {
	ConsumerKey    string `json:"consumer_key" env:"API_KEYS.CONSUMER_KEY"`
	ConsumerSecret string `json:"consumer_secret" env:"API_KEYS.CONSUMER_SECRET"`
	AccessKey      string `json:"access_key" env:"API_KEYS.ACCESS_KEY"`
	AccessSecret   string `json:"access_secret" env:"API_KEYS.ACCESS_SECRET"`
}

// Causes lists cause phrases by grammatical number. "wind farms" is plural
// ("wind farms cause ..."), "fluoride" is singular ("fluoride causes ...").
type Causes struct {
	Singular []string `json:"singular"`
	Plural   []string `json:"plural"`
}

// UnmarshalJSON replaces both lists so that a config file listing only one
// of them does not inherit the other from the embedded defaults.
func (c *Causes) UnmarshalJSON(b []byte) error {
	type plain Causes
	var p plain
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return err
	}
	*c = Causes(p)
	return nil
}

// TaskConfig configures one periodic task (tweets, mentions or search).
//
// Timer accepts:
//   - a number of seconds: 3600
//   - a [min, max) range of seconds, picked uniformly per cycle: [1800, 7200]
//   - a schedule string: "45m", "01:30" (HH:MM interval) or a cron
//     expression such as "*/30 * * * *" or "@hourly"
type TaskConfig struct {
	Enabled bool   `json:"enabled"`
	Timer   Period `json:"timer"`
	// Count is the page size for mention/search fetches. Ignored for tweets.
	Count int `json:"count,omitempty"`
}

// PlatformConfig tunes the shared API client.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type PlatformConfig struct {
	// RatePerSec and Burst shape the token bucket shared by all tasks.
	RatePerSec  float64 `json:"rate_per_sec,omitempty"`
	Burst       int     `json:"burst,omitempty"`
	HTTPTimeout string  `json:"http_timeout,omitempty"`
}

// StateConfig selects the cursor store.
//
// Driver values:
//   - "file": JSON document, atomically replaced on every flush
//   - "sqlite": SQLite database file
//   - "memory": nothing persisted (dry runs, tests)
type StateConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type AlertsConfig struct {
	Telegram TelegramAlerts `json:"telegram"`
}

// TelegramAlerts forwards warn+ log lines to an operator chat.
type TelegramAlerts struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty" env:"ALERTS.TELEGRAM.TOKEN"`
	ChatID     int64  `json:"chat_id,omitempty"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// DebugConfig controls the optional HTTP server exposing /status and
// net/http/pprof. A non-loopback Addr requires Token.
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty" env:"DEBUG.TOKEN"`
}
