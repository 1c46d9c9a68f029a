package config

import (
	"reflect"
	"strings"

	logx "windfarm/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections and safe
// structured attrs for logging. Secrets (credentials, alert token) are never
// included; only whether they changed.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.APIKeys != newCfg.APIKeys {
		changed = append(changed, "api_keys")
	}

	if !reflect.DeepEqual(oldCfg.Causes, newCfg.Causes) || !reflect.DeepEqual(oldCfg.EffectPool(), newCfg.EffectPool()) {
		changed = append(changed, "words")
		attrs = append(attrs,
			logx.Int("words.causes", len(newCfg.Causes.Singular)+len(newCfg.Causes.Plural)),
			logx.Int("words.effects", len(newCfg.EffectPool())),
		)
	}

	for _, t := range []struct {
		name     string
		old, new TaskConfig
	}{
		{"tweets", oldCfg.Tweets, newCfg.Tweets},
		{"mentions", oldCfg.Mentions, newCfg.Mentions},
		{"search", oldCfg.Search, newCfg.Search},
	} {
		if !reflect.DeepEqual(t.old, t.new) {
			changed = append(changed, t.name)
			attrs = append(attrs,
				logx.Bool(t.name+".enabled", t.new.Enabled),
				logx.String(t.name+".timer", t.new.Timer.String()),
			)
		}
	}

	if oldCfg.Platform != newCfg.Platform {
		changed = append(changed, "platform")
	}
	if oldCfg.State != newCfg.State {
		changed = append(changed, "state")
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	ot, nt := oldCfg.Alerts.Telegram, newCfg.Alerts.Telegram
	if ot.Enabled != nt.Enabled || ot.ChatID != nt.ChatID || ot.ThreadID != nt.ThreadID ||
		ot.MinLevel != nt.MinLevel || ot.RatePerSec != nt.RatePerSec ||
		strings.TrimSpace(ot.Token) != strings.TrimSpace(nt.Token) {
		changed = append(changed, "alerts")
		attrs = append(attrs,
			logx.Bool("alerts.telegram.enabled", nt.Enabled),
			logx.Bool("alerts.telegram.token_set", strings.TrimSpace(nt.Token) != ""),
		)
	}

	if oldCfg.Debug != newCfg.Debug {
		changed = append(changed, "debug")
		attrs = append(attrs,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", newCfg.Debug.Addr),
		)
	}

	return changed, attrs
}

// RestartRequired reports the changed sections that are only read at startup.
func RestartRequired(sections []string) []string {
	var out []string
	for _, s := range sections {
		switch s {
		case "api_keys", "platform", "state":
			out = append(out, s)
		}
	}
	return out
}
