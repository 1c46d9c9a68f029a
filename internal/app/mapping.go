package app

import (
	"fmt"
	"strings"
	"time"

	"windfarm/internal/config"
	"windfarm/internal/notify/telegram"
	"windfarm/internal/observability/debugsrv"
	twitterclient "windfarm/internal/platform/twitter"
	"windfarm/internal/storage"
	logx "windfarm/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Alert: logx.AlertConfig{
			Enabled:    cfg.Alerts.Telegram.Enabled,
			MinLevel:   cfg.Alerts.Telegram.MinLevel,
			RatePerSec: cfg.Alerts.Telegram.RatePerSec,
		},
	}
}

// mapAlertSender returns nil when alerts are disabled.
func mapAlertSender(cfg *config.Config) (logx.AlertSender, error) {
	tc := cfg.Alerts.Telegram
	if !tc.Enabled {
		return nil, nil
	}
	s, err := telegram.New(telegram.Config{
		Token:    tc.Token,
		ChatID:   tc.ChatID,
		ThreadID: tc.ThreadID,
	})
	if err != nil {
		return nil, config.Errorf("alerts.telegram", "%v", err)
	}
	return s, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.State
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "none", "memory":
		return storage.Config{Driver: "memory"}, nil
	case "file":
		if path == "" {
			return storage.Config{}, fmt.Errorf("state.path is required when state.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("state.path is required when state.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("state.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown state.driver: %s", sc.Driver)
	}
}

type platformSettings struct {
	client twitterclient.Config
	rps    float64
	burst  int
}

func mapPlatformConfig(cfg *config.Config) (platformSettings, error) {
	timeout, err := config.ParseDurationOrDefault("platform.http_timeout", cfg.Platform.HTTPTimeout, 30*time.Second)
	if err != nil {
		return platformSettings{}, err
	}
	k := cfg.APIKeys
	return platformSettings{
		client: twitterclient.Config{
			ConsumerKey:    k.ConsumerKey,
			ConsumerSecret: k.ConsumerSecret,
			AccessKey:      k.AccessKey,
			AccessSecret:   k.AccessSecret,
			HTTPTimeout:    timeout,
		},
		rps:   cfg.Platform.RatePerSec,
		burst: cfg.Platform.Burst,
	}, nil
}

func mapDebugConfig(cfg *config.Config) debugsrv.Config {
	d := cfg.Debug
	return debugsrv.Config{
		Enabled: d.Enabled,
		Addr:    strings.TrimSpace(d.Addr),
		Token:   strings.TrimSpace(d.Token),
	}
}
