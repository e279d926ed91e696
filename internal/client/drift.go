package client

import "math"

// DriftCorrector decides when the local widget is far enough from the room's
// authoritative time to seek, and holds off further corrections until that
// seek settles.
type DriftCorrector struct {
	threshold    float64
	timeoutBeats int

	isSeeking bool
	beats     int
}

func NewDriftCorrector(threshold float64, timeoutBeats int) *DriftCorrector {
	return &DriftCorrector{
		threshold:    threshold,
		timeoutBeats: timeoutBeats,
	}
}

// Correct reports whether the widget must seek to remote. A seek starts the
// seeking phase; no further seek is requested until it ends.
func (d *DriftCorrector) Correct(local, remote float64) bool {
	if d.isSeeking {
		return false
	}

	if math.Abs(local-remote) <= d.threshold {
		return false
	}

	d.isSeeking = true
	d.beats = 0

	return true
}

func (d *DriftCorrector) IsSeeking() bool {
	return d.isSeeking
}

// Settle ends the seeking phase.
func (d *DriftCorrector) Settle() {
	d.isSeeking = false
	d.beats = 0
}

// Tick counts one heartbeat interval and ends a seek that never settled. It
// reports whether this tick timed the seek out.
func (d *DriftCorrector) Tick() bool {
	if !d.isSeeking {
		return false
	}

	d.beats++
	if d.beats >= d.timeoutBeats {
		d.Settle()
		return true
	}

	return false
}
