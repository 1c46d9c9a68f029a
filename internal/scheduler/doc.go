// Package scheduler runs one-shot, self-rescheduling task timers.
//
// A task is scheduled with its period and the time it last ran. The timer
// fires once; the task callback records its new run time and calls Schedule
// again. This keeps the period recomputed (and re-jittered) every cycle and
// lets a restarted process resume where it left off:
//   - no previous run: fire immediately
//   - overdue, or last run in the future (clock skew): fire immediately
//   - otherwise: wait for the rest of the period
//
// Timer goroutines run under a runtime supervisor. Stop cancels every pending
// timer and waits for callbacks that already fired.
package scheduler
