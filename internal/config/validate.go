package config

import (
	"errors"
	"net"
	"strings"

	logx "windfarm/pkg/logx"
)

// Check reports a configuration error when any credential is empty or still
// set to Placeholder.
func (k APIKeys) Check() error {
	fields := []struct{ name, val string }{
		{"api_keys.consumer_key", k.ConsumerKey},
		{"api_keys.consumer_secret", k.ConsumerSecret},
		{"api_keys.access_key", k.AccessKey},
		{"api_keys.access_secret", k.AccessSecret},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.val)
		if v == "" || v == Placeholder {
			return Errorf(f.name, "not configured; set it in the config file or via the %s environment variable", strings.ToUpper(f.name))
		}
	}
	return nil
}

// EffectPool returns the configured effects, or the cause texts when no
// distinct effect list is configured.
func (c *Config) EffectPool() []string {
	if len(c.Effects) > 0 {
		return append([]string(nil), c.Effects...)
	}
	out := make([]string, 0, len(c.Causes.Singular)+len(c.Causes.Plural))
	out = append(out, c.Causes.Singular...)
	out = append(out, c.Causes.Plural...)
	return out
}

// Validate performs structural checks. Credentials are checked separately at
// authentication time (see APIKeys.Check) so that a config reload never fails
// on them.
func (c *Config) Validate() error {
	if c == nil {
		return Errorf("", "config is nil")
	}
	var errs []error

	if len(c.Causes.Singular)+len(c.Causes.Plural) == 0 {
		errs = append(errs, Errorf("causes", "at least one singular or plural cause is required"))
	}
	for _, list := range []struct {
		name  string
		items []string
	}{
		{"causes.singular", c.Causes.Singular},
		{"causes.plural", c.Causes.Plural},
		{"effects", c.Effects},
	} {
		for _, s := range list.items {
			if strings.TrimSpace(s) == "" {
				errs = append(errs, Errorf(list.name, "blank entry"))
				break
			}
		}
	}
	if len(c.EffectPool()) == 0 {
		errs = append(errs, Errorf("effects", "no effects available"))
	}

	for _, t := range []struct {
		name string
		cfg  TaskConfig
		page bool
	}{
		{"tweets", c.Tweets, false},
		{"mentions", c.Mentions, true},
		{"search", c.Search, true},
	} {
		if err := t.cfg.validate(t.name, t.page); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Platform.RatePerSec < 0 {
		errs = append(errs, Errorf("platform.rate_per_sec", "must be >= 0"))
	}
	if c.Platform.Burst < 0 {
		errs = append(errs, Errorf("platform.burst", "must be >= 0"))
	}
	if _, err := ParseDurationField("platform.http_timeout", c.Platform.HTTPTimeout); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.State.Driver)) {
	case "memory", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.State.Path) == "" {
			errs = append(errs, Errorf("state.path", "required for driver %q", c.State.Driver))
		}
	default:
		errs = append(errs, Errorf("state.driver", "unknown driver %q", c.State.Driver))
	}
	if _, err := ParseDurationField("state.busy_timeout", c.State.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	if !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, Errorf("logging.level", "unknown level %q", c.Logging.Level))
	}

	if tg := c.Alerts.Telegram; tg.Enabled {
		if strings.TrimSpace(tg.Token) == "" {
			errs = append(errs, Errorf("alerts.telegram.token", "required when alerts are enabled"))
		}
		if tg.ChatID == 0 {
			errs = append(errs, Errorf("alerts.telegram.chat_id", "required when alerts are enabled"))
		}
		if !logx.ValidLevel(tg.MinLevel) {
			errs = append(errs, Errorf("alerts.telegram.min_level", "unknown level %q", tg.MinLevel))
		}
	}

	if d := c.Debug; d.Enabled {
		host, _, err := net.SplitHostPort(strings.TrimSpace(d.Addr))
		switch {
		case err != nil:
			errs = append(errs, Errorf("debug.addr", "%v", err))
		case !isLoopback(host) && strings.TrimSpace(d.Token) == "":
			errs = append(errs, Errorf("debug.token", "required when debug.addr is not a loopback address"))
		}
	}

	return errors.Join(errs...)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (t TaskConfig) validate(name string, paged bool) error {
	if paged && t.Count < 0 {
		return Errorf(name+".count", "must be >= 0")
	}
	if !t.Enabled {
		return nil
	}
	if paged && t.Count == 0 {
		return Errorf(name+".count", "must be > 0 when the task is enabled")
	}
	p := t.Timer
	switch {
	case p.IsZero():
		return Errorf(name+".timer", "required when the task is enabled")
	case len(p.Range) > 0:
		if len(p.Range) != 2 {
			return Errorf(name+".timer", "range must be [min, max]")
		}
		if p.Range[0] < 1 || p.Range[1] <= p.Range[0] {
			return Errorf(name+".timer", "range [%d, %d] must satisfy 1 <= min < max", p.Range[0], p.Range[1])
		}
	case strings.TrimSpace(p.Spec) != "":
		// Schedule strings are parsed by the scheduler when the task is wired.
	case p.Seconds <= 0:
		return Errorf(name+".timer", "must be > 0 seconds")
	}
	return nil
}
