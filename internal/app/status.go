package app

import (
	"windfarm/internal/bot"
	"windfarm/internal/runtime/supervisor"
)

// Status is served as JSON by the debug server.
type Status struct {
	ScreenName    string              `json:"screen_name"`
	ConfigPath    string              `json:"config_path"`
	Tasks         []bot.TaskStatus    `json:"tasks"`
	Timers        int64               `json:"active_timers"`
	Cursors       map[string]int64    `json:"cursors"`
	EventsDropped uint64              `json:"events_dropped"`
	Services      supervisor.Snapshot `json:"services"`
}

func (a *App) status() any {
	st := Status{
		ScreenName:    a.bot.Identity().ScreenName,
		ConfigPath:    a.cfgm.Path(),
		Tasks:         a.bot.Status(),
		Timers:        a.bot.Active(),
		Cursors:       a.cursors.Snapshot(),
		EventsDropped: a.bus.Dropped(),
	}
	if a.sup != nil {
		st.Services = a.sup.Snapshot()
	}
	return st
}
