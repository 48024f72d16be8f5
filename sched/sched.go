// Package sched provides the timer facility the protocol runs on.
//
// The protocol code never sleeps or blocks: every delayed action is a
// "run this function at time T" request against a Scheduler. Two
// implementations exist: Virtual, a deterministic event loop over a
// virtual clock (simulation and tests), and Wall, a thin wrapper over
// time.AfterFunc for live deployments. Times are float64 seconds.
package sched

// Timer is a handle for a scheduled callback.
type Timer interface {
	// Cancel prevents the callback from firing. It reports whether the
	// callback was still pending.
	Cancel() bool
}

// Scheduler hands out the clock and future callbacks.
type Scheduler interface {
	// Now returns the current time in seconds. Monotonic.
	Now() float64

	// ScheduleAt arranges for fn to run at time t. A t in the past fires
	// as soon as possible. fn may call back into the scheduler.
	ScheduleAt(t float64, fn func()) Timer
}
