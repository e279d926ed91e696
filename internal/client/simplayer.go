package client

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SimPlayer is a Widget without a screen. Its position advances with the
// clock while playing and it reports every state change to the listener.
type SimPlayer struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	duration time.Duration
	listener func(PlayerState)

	videoId  string
	state    PlayerState
	position float64
	since    time.Time
	endTimer clockwork.Timer
	timerGen int
}

// NewSimPlayer creates a player where every video lasts duration.
func NewSimPlayer(clock clockwork.Clock, duration time.Duration) *SimPlayer {
	return &SimPlayer{
		clock:    clock,
		duration: duration,
		state:    StateUnstarted,
	}
}

// SetListener must be called before the player is used.
func (p *SimPlayer) SetListener(listener func(PlayerState)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listener = listener
}

func (p *SimPlayer) notify(states ...PlayerState) {
	p.mu.Lock()
	listener := p.listener
	p.mu.Unlock()

	if listener == nil {
		return
	}
	for _, s := range states {
		listener(s)
	}
}

func (p *SimPlayer) VideoId() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.videoId
}

func (p *SimPlayer) Load(videoId string) {
	p.mu.Lock()
	p.stopTimer()
	p.videoId = videoId
	p.position = 0
	p.state = StateCued
	p.mu.Unlock()

	p.notify(StateCued)
}

func (p *SimPlayer) Play() {
	p.mu.Lock()
	if p.videoId == "" || p.state == StatePlaying {
		p.mu.Unlock()
		return
	}

	if p.state == StateEnded {
		p.position = 0
	}
	p.state = StatePlaying
	p.since = p.clock.Now()
	p.scheduleEnd()
	p.mu.Unlock()

	p.notify(StatePlaying)
}

func (p *SimPlayer) Pause() {
	p.mu.Lock()
	if p.state != StatePlaying && p.state != StateBuffering {
		p.mu.Unlock()
		return
	}

	p.position = p.currentTime()
	p.state = StatePaused
	p.stopTimer()
	p.mu.Unlock()

	p.notify(StatePaused)
}

// SeekTo moves the position. A playing player reports buffering and then
// playing again, like the real widget.
func (p *SimPlayer) SeekTo(seconds float64, _ bool) {
	p.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	if end := p.duration.Seconds(); seconds > end {
		seconds = end
	}

	p.position = seconds
	p.since = p.clock.Now()
	playing := p.state == StatePlaying
	if playing {
		p.scheduleEnd()
	}
	p.mu.Unlock()

	if playing {
		p.notify(StateBuffering, StatePlaying)
	}
}

func (p *SimPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentTime()
}

func (p *SimPlayer) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *SimPlayer) currentTime() float64 {
	if p.state != StatePlaying {
		return p.position
	}

	t := p.position + p.clock.Since(p.since).Seconds()
	if end := p.duration.Seconds(); t > end {
		return end
	}
	return t
}

func (p *SimPlayer) stopTimer() {
	if p.endTimer != nil {
		p.endTimer.Stop()
		p.endTimer = nil
	}
}

func (p *SimPlayer) scheduleEnd() {
	p.stopTimer()

	p.timerGen++
	gen := p.timerGen
	remaining := p.duration - time.Duration(p.position*float64(time.Second))
	p.endTimer = p.clock.AfterFunc(remaining, func() {
		p.mu.Lock()
		if p.state != StatePlaying || p.timerGen != gen {
			p.mu.Unlock()
			return
		}
		p.position = p.duration.Seconds()
		p.state = StateEnded
		p.endTimer = nil
		p.mu.Unlock()

		p.notify(StateEnded)
	})
}
