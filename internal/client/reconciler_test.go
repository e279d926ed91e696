package client

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWidget changes state synchronously and queues the events it would report.
type fakeWidget struct {
	state    PlayerState
	time     float64
	videoId  string
	calls    []string
	reported []PlayerState
}

func (w *fakeWidget) set(s PlayerState) {
	if w.state == s {
		return
	}
	w.state = s
	w.reported = append(w.reported, s)
}

func (w *fakeWidget) Load(videoId string) {
	w.calls = append(w.calls, "load "+videoId)
	w.videoId = videoId
	w.time = 0
	w.set(StateCued)
}

func (w *fakeWidget) Play() {
	w.calls = append(w.calls, "play")
	w.set(StatePlaying)
}

func (w *fakeWidget) Pause() {
	w.calls = append(w.calls, "pause")
	w.set(StatePaused)
}

func (w *fakeWidget) SeekTo(seconds float64, _ bool) {
	w.calls = append(w.calls, fmt.Sprintf("seek %.1f", seconds))
	w.time = seconds
	if w.state == StatePlaying {
		w.reported = append(w.reported, StateBuffering, StatePlaying)
	}
}

func (w *fakeWidget) CurrentTime() float64 { return w.time }

func (w *fakeWidget) State() PlayerState { return w.state }

type harness struct {
	t      *testing.T
	widget *fakeWidget
	rec    *Reconciler
	clock  *clockwork.FakeClock
	sent   []protocol.Output
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:      t,
		widget: &fakeWidget{state: StateUnstarted},
		clock:  clockwork.NewFakeClock(),
	}
	h.rec = NewReconciler("r1", h.widget, func(out *protocol.Output) {
		h.sent = append(h.sent, *out)
	}, ReconcilerConfig{
		Clock:            h.clock,
		DriftThreshold:   1.0,
		SeekTimeoutBeats: 3,
		TokenTTL:         2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return h
}

// remote delivers a relay message and then every event the widget reported.
func (h *harness) remote(typ string, payload any) {
	h.t.Helper()

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(h.t, err)
		raw = b
	}

	require.NoError(h.t, h.rec.HandleMessage(protocol.Message{Type: typ, Payload: raw}))
	h.flush()
}

func (h *harness) flush() {
	for len(h.widget.reported) > 0 {
		s := h.widget.reported[0]
		h.widget.reported = h.widget.reported[1:]
		h.rec.HandleWidgetEvent(s)
	}
}

// user acts on the widget directly.
func (h *harness) user(s PlayerState) {
	h.widget.set(s)
	h.flush()
}

func (h *harness) takeSent() []protocol.Output {
	sent := h.sent
	h.sent = nil
	return sent
}

func playlist(ids ...string) []protocol.VideoMeta {
	videos := make([]protocol.VideoMeta, 0, len(ids))
	for _, id := range ids {
		videos = append(videos, protocol.VideoMeta{Id: id})
	}
	return videos
}

func (h *harness) init(snapshot protocol.RoomSnapshot) {
	h.remote(protocol.EventInit, snapshot)
}

func TestInitLoadsAndResumes(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{
		Playlist:     playlist("a", "b"),
		CurrentIndex: 1,
		IsPlaying:    true,
		CurrentTime:  42,
	})

	assert.Equal(t, PhaseReady, h.rec.Phase())
	assert.Equal(t, []string{"load b", "seek 42.0", "play"}, h.widget.calls)
	assert.Empty(t, h.takeSent(), "applying init emits no intents")
	assert.Equal(t, 0, h.rec.guard.Pending())
}

func TestInitEmptyStaysIdle(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{})

	assert.Equal(t, PhaseIdle, h.rec.Phase())
	assert.Empty(t, h.widget.calls)

	h.user(StatePlaying)
	assert.Empty(t, h.takeSent(), "idle clients emit nothing")
}

func TestRemotePlayIsNotEchoed(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a", "b")})

	h.remote(protocol.EventPlayVideo, protocol.PlayVideoOutput{CurrentIndex: 1, IsPlaying: true})
	assert.Equal(t, []string{"load a", "load b", "play"}, h.widget.calls)
	assert.Equal(t, StatePlaying, h.widget.state)

	h.remote(protocol.EventPauseVideo, nil)
	assert.Equal(t, StatePaused, h.widget.state)

	h.remote(protocol.EventPlayVideo, protocol.PlayVideoOutput{CurrentIndex: 1, IsPlaying: true})
	assert.Equal(t, StatePlaying, h.widget.state)

	assert.Empty(t, h.takeSent(), "remote commands are never re-emitted")
	assert.Equal(t, 1, h.rec.Mirror().CurrentIndex)
	assert.True(t, h.rec.Mirror().IsPlaying)
}

func TestNoTokenWhenAlreadyInTargetState(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a")})

	h.user(StatePlaying)
	require.Len(t, h.takeSent(), 1)

	// relay echo of the user's own play
	h.remote(protocol.EventPlayVideo, protocol.PlayVideoOutput{CurrentIndex: 0, IsPlaying: true})
	assert.Equal(t, 0, h.rec.guard.Pending())

	// a later genuine pause still gets through
	h.user(StatePaused)
	sent := h.takeSent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.EventPauseVideo, sent[0].Type)
}

func TestUserWidgetActionsEmitIntents(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a", "b"), CurrentIndex: 1})

	h.user(StatePlaying)
	sent := h.takeSent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.Output{
		Type:    protocol.EventPlayVideo,
		Payload: protocol.PlayVideoInput{RoomId: "r1", Index: 1},
	}, sent[0])
	assert.True(t, h.rec.Mirror().IsPlaying, "the mirror is updated optimistically")

	h.user(StateBuffering)
	assert.Empty(t, h.takeSent())

	h.user(StatePlaying)
	assert.Empty(t, h.takeSent(), "mirror already playing")

	h.user(StatePaused)
	sent = h.takeSent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.EventPauseVideo, sent[0].Type)
}

func TestDriftCorrection(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a"), IsPlaying: true})
	h.widget.time = 10
	h.widget.calls = nil

	h.remote(protocol.EventPlaybackTimeUpdate, protocol.PlaybackTimeUpdateOutput{Time: 10.9})
	assert.Empty(t, h.widget.calls, "drift within threshold")

	// hold back the widget's reports to observe the seeking phase
	require.NoError(t, h.rec.HandleMessage(protocol.Message{
		Type:    protocol.EventPlaybackTimeUpdate,
		Payload: json.RawMessage(`{"time":20}`),
	}))
	assert.Equal(t, []string{"seek 20.0"}, h.widget.calls)
	assert.True(t, h.rec.IsSeeking())

	require.NoError(t, h.rec.HandleMessage(protocol.Message{
		Type:    protocol.EventPlaybackTimeUpdate,
		Payload: json.RawMessage(`{"time":30}`),
	}))
	assert.Equal(t, []string{"seek 20.0"}, h.widget.calls, "exactly one seek")

	h.rec.HandleWidgetEvent(StatePaused)
	h.rec.Tick()
	assert.Empty(t, h.takeSent(), "no intents and no heartbeat while seeking")

	h.flush()
	assert.False(t, h.rec.IsSeeking(), "settles when the widget reports playing")
	assert.Empty(t, h.takeSent())
}

func TestSeekingTimesOut(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a"), IsPlaying: true})
	h.widget.reported = nil

	require.NoError(t, h.rec.HandleMessage(protocol.Message{
		Type:    protocol.EventPlaybackTimeUpdate,
		Payload: json.RawMessage(`{"time":20}`),
	}))
	h.widget.reported = nil
	require.True(t, h.rec.IsSeeking())

	h.rec.Tick()
	h.rec.Tick()
	assert.True(t, h.rec.IsSeeking())
	h.rec.Tick()
	assert.False(t, h.rec.IsSeeking())
}

func TestPauseDuringSeekIsSentAfterTimeout(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a"), IsPlaying: true})

	// the widget never reports the end of the seek
	require.NoError(t, h.rec.HandleMessage(protocol.Message{
		Type:    protocol.EventPlaybackTimeUpdate,
		Payload: json.RawMessage(`{"time":20}`),
	}))
	h.widget.reported = nil
	require.True(t, h.rec.IsSeeking())

	h.user(StatePaused)
	assert.Empty(t, h.takeSent(), "no intents while seeking")

	h.rec.Tick()
	h.rec.Tick()
	assert.Empty(t, h.takeSent())
	h.rec.Tick()

	assert.False(t, h.rec.IsSeeking())
	assert.False(t, h.rec.Mirror().IsPlaying)
	assert.Equal(t, []protocol.Output{{
		Type:    protocol.EventPauseVideo,
		Payload: protocol.PauseVideoInput{RoomId: "r1"},
	}}, h.takeSent())

	// no heartbeats once the room is believed paused
	h.rec.Tick()
	assert.Empty(t, h.takeSent())
}

func TestSeekTimeoutKeepsMatchingWidget(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a"), IsPlaying: true})

	require.NoError(t, h.rec.HandleMessage(protocol.Message{
		Type:    protocol.EventPlaybackTimeUpdate,
		Payload: json.RawMessage(`{"time":20}`),
	}))
	h.widget.reported = nil

	h.rec.Tick()
	h.rec.Tick()
	h.rec.Tick()

	sent := h.takeSent()
	require.Len(t, sent, 1, "only the heartbeat")
	assert.Equal(t, protocol.EventPlaybackTimeUpdate, sent[0].Type)
	assert.True(t, h.rec.Mirror().IsPlaying)
}

func TestHeartbeat(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a")})

	h.rec.Tick()
	assert.Empty(t, h.takeSent(), "paused rooms send no heartbeat")

	h.remote(protocol.EventPlayVideo, protocol.PlayVideoOutput{CurrentIndex: 0, IsPlaying: true})
	h.widget.time = 5
	h.rec.Tick()

	assert.Equal(t, []protocol.Output{{
		Type:    protocol.EventPlaybackTimeUpdate,
		Payload: protocol.PlaybackTimeUpdateInput{RoomId: "r1", Time: 5},
	}}, h.takeSent())
}

func TestNavigationBounds(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a", "b")})

	h.rec.Prev()
	assert.Empty(t, h.takeSent(), "prev at the first entry")

	assert.ErrorIs(t, h.rec.PlayAt(2), ErrIndexOutOfRange)
	assert.ErrorIs(t, h.rec.PlayAt(-1), ErrIndexOutOfRange)
	assert.Empty(t, h.takeSent())

	h.rec.Next()
	sent := h.takeSent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.PlayVideoInput{RoomId: "r1", Index: 1}, sent[0].Payload)

	// user controls never move the widget by themselves
	assert.Equal(t, []string{"load a"}, h.widget.calls)

	h.remote(protocol.EventPlayVideo, protocol.PlayVideoOutput{CurrentIndex: 1, IsPlaying: true})
	h.rec.Next()
	assert.Empty(t, h.takeSent(), "next at the last entry")

	h.rec.Prev()
	sent = h.takeSent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.PlayVideoInput{RoomId: "r1", Index: 0}, sent[0].Payload)
}

func TestEndedAdvances(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a", "b"), IsPlaying: true})

	h.user(StateEnded)
	sent := h.takeSent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.PlayVideoInput{RoomId: "r1", Index: 1}, sent[0].Payload)

	h.remote(protocol.EventPlayVideo, protocol.PlayVideoOutput{CurrentIndex: 1, IsPlaying: true})
	h.user(StateEnded)
	assert.Empty(t, h.takeSent(), "no wraparound")
}

func TestPlaylistUpdates(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{})

	h.remote(protocol.EventPlaylistUpdated, protocol.PlaylistUpdatedOutput{Playlist: playlist("a", "b", "c")})
	assert.Equal(t, PhaseReady, h.rec.Phase())
	assert.Equal(t, "a", h.widget.videoId)

	h.remote(protocol.EventPlayVideo, protocol.PlayVideoOutput{CurrentIndex: 2, IsPlaying: true})
	h.remote(protocol.EventPlaylistUpdated, protocol.PlaylistUpdatedOutput{Playlist: playlist("a")})
	assert.Equal(t, 0, h.rec.Mirror().CurrentIndex, "index clamped")
	assert.Equal(t, "a", h.widget.videoId)
	assert.Equal(t, StatePlaying, h.widget.state)

	h.remote(protocol.EventPlaylistUpdated, protocol.PlaylistUpdatedOutput{})
	assert.Equal(t, PhaseIdle, h.rec.Phase())
	assert.False(t, h.rec.Mirror().IsPlaying)
	assert.Equal(t, StatePaused, h.widget.state)
	assert.Empty(t, h.takeSent())
}

func TestRemoveVideo(t *testing.T) {
	h := newHarness(t)
	h.init(protocol.RoomSnapshot{Playlist: playlist("a", "b", "c")})

	require.NoError(t, h.rec.RemoveVideo(1))
	assert.ErrorIs(t, h.rec.RemoveVideo(3), ErrIndexOutOfRange)

	sent := h.takeSent()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.UpdatePlaylistInput{RoomId: "r1", Playlist: playlist("a", "c")}, sent[0].Payload)
	assert.Len(t, h.rec.Mirror().Playlist, 3, "the mirror waits for the broadcast")
}
