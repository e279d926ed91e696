package client

import "fmt"

// PlayerState mirrors the embedded player's state codes.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

func (s PlayerState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Widget is the embedded player the client drives. Implementations report
// state changes through a listener of their own; those reports must reach the
// Session through OnWidgetState.
type Widget interface {
	// Load cues a video without starting it.
	Load(videoId string)
	Play()
	Pause()
	SeekTo(seconds float64, allowSeekAhead bool)
	CurrentTime() float64
	State() PlayerState
}
