package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/pkg/ytvideodata"
	"github.com/sourcegraph/conc"
)

var ErrNotConnected = errors.New("session is not connected")

type SessionConfig struct {
	RoomId            string
	HeartbeatInterval time.Duration
	DriftThreshold    float64
	SeekTimeoutBeats  int
	TokenTTL          time.Duration
	Clock             clockwork.Clock
	// OnError receives failures that happen off the caller's goroutine, such as
	// a failed metadata lookup.
	OnError func(error)
}

// Session runs the client event loop. Every remote message, widget event,
// heartbeat and lookup completion is applied to the Reconciler from one
// goroutine, in arrival order.
type Session struct {
	rec    *Reconciler
	lookup VideoLookup
	clock  clockwork.Clock
	cfg    SessionConfig
	logger *slog.Logger
	queue  *eventQueue

	transport Transport

	mu      sync.Mutex
	running bool
	mirror  Mirror
	phase   Phase
	seeking bool
}

func NewSession(widget Widget, lookup VideoLookup, cfg SessionConfig, logger *slog.Logger) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.RoomId == "" {
		cfg.RoomId = protocol.DefaultRoomId
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = time.Second
	}
	if cfg.OnError == nil {
		cfg.OnError = func(err error) {
			logger.Warn("session error", "error", err)
		}
	}

	s := &Session{
		lookup: lookup,
		clock:  cfg.Clock,
		cfg:    cfg,
		logger: logger,
		queue:  newEventQueue(),
	}
	s.rec = NewReconciler(cfg.RoomId, widget, s.send, ReconcilerConfig{
		Clock:            cfg.Clock,
		DriftThreshold:   cfg.DriftThreshold,
		SeekTimeoutBeats: cfg.SeekTimeoutBeats,
		TokenTTL:         cfg.TokenTTL,
	}, logger)

	return s
}

// send is only called from the loop goroutine.
func (s *Session) send(out *protocol.Output) {
	if s.transport == nil {
		s.logger.Debug("dropping message while disconnected", "type", out.Type)
		return
	}

	if err := s.transport.Send(out); err != nil {
		s.cfg.OnError(fmt.Errorf("failed to send %s: %w", out.Type, err))
	}
}

// Run joins the room over t and processes events until ctx is done or the
// connection fails. The mirror starts empty on every run.
func (s *Session) Run(ctx context.Context, t Transport) error {
	// work queued after the previous run ended fails with ErrNotConnected
	s.runQueued()

	s.transport = t
	s.setRunning(true)
	defer func() {
		s.transport = nil
		s.setRunning(false)
		s.runQueued()
	}()

	s.rec.Reset()
	s.rec.Join()
	s.publish()

	readErr := make(chan error, 1)
	var wg conc.WaitGroup
	wg.Go(func() {
		for {
			msg, err := t.Receive()
			if err != nil {
				readErr <- err
				return
			}
			s.queue.push(func() {
				s.handleMessage(msg)
			})
		}
	})
	defer wg.Wait()
	defer t.Close()

	ticker := s.clock.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			s.runQueued()
			return fmt.Errorf("connection lost: %w", err)
		case <-ticker.Chan():
			s.rec.Tick()
			s.publish()
		case <-s.queue.ready():
			s.runQueued()
		}
	}
}

func (s *Session) setRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = running
}

func (s *Session) runQueued() {
	for _, fn := range s.queue.drain() {
		fn()
	}
	s.publish()
}

func (s *Session) handleMessage(msg protocol.Message) {
	if err := s.rec.HandleMessage(msg); err != nil {
		s.cfg.OnError(fmt.Errorf("failed to handle %s: %w", msg.Type, err))
	}
}

func (s *Session) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mirror = s.rec.Mirror()
	s.phase = s.rec.Phase()
	s.seeking = s.rec.IsSeeking()
}

// State returns the mirror as of the last processed event.
func (s *Session) State() (Mirror, Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mirror.clone(), s.phase
}

func (s *Session) IsSeeking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seeking
}

// OnWidgetState is the widget listener. It never blocks.
func (s *Session) OnWidgetState(state PlayerState) {
	s.queue.push(func() {
		s.rec.HandleWidgetEvent(state)
	})
}

// do runs fn on the loop and waits for its result. It fails with
// ErrNotConnected when no Run is in progress.
func (s *Session) do(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return ErrNotConnected
	}

	done := make(chan error, 1)
	s.queue.push(func() {
		if s.transport == nil {
			done <- ErrNotConnected
			return
		}
		done <- fn()
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) PlayAt(ctx context.Context, index int) error {
	return s.do(ctx, func() error {
		return s.rec.PlayAt(index)
	})
}

func (s *Session) Pause(ctx context.Context) error {
	return s.do(ctx, s.rec.Pause)
}

func (s *Session) Next(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.rec.Next()
		return nil
	})
}

func (s *Session) Prev(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.rec.Prev()
		return nil
	})
}

func (s *Session) RemoveVideo(ctx context.Context, index int) error {
	return s.do(ctx, func() error {
		return s.rec.RemoveVideo(index)
	})
}

// AddVideo validates rawURL before any network call, then looks the video up
// in the background. The add-video intent is emitted once the lookup succeeds;
// a failed lookup is reported through OnError and leaves the playlist as is.
func (s *Session) AddVideo(ctx context.Context, rawURL string) error {
	if _, err := ytvideodata.ExtractID(rawURL); err != nil {
		return err
	}

	go func() {
		meta, err := s.lookup.Lookup(ctx, rawURL)
		if err != nil {
			s.cfg.OnError(fmt.Errorf("failed to look up %s: %w", rawURL, err))
			return
		}

		s.queue.push(func() {
			s.rec.AddVideo(meta)
		})
	}()

	return nil
}
