// Package logx is windfarm's structured logger, a thin layer over zerolog.
//
// A Service owns the sinks (console, JSON file, operator alerts) and can be
// reconfigured while running; Loggers derived from it follow every Apply.
package logx
