package sched

import "time"

// Wall schedules against the real clock. Now is seconds since the
// scheduler was created; callbacks fire on timer goroutines, so callers
// that need serialized handlers must serialize themselves.
type Wall struct {
	start time.Time
}

// NewWall returns a wall-clock scheduler with the clock starting now.
func NewWall() *Wall {
	return &Wall{start: time.Now()}
}

func (w *Wall) Now() float64 {
	return time.Since(w.start).Seconds()
}

func (w *Wall) ScheduleAt(t float64, fn func()) Timer {
	d := time.Duration((t - w.Now()) * float64(time.Second))
	if d < 0 {
		d = 0
	}
	return wallTimer{t: time.AfterFunc(d, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (t wallTimer) Cancel() bool {
	return t.t.Stop()
}
