package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/lockstep/internal/protocol"
)

var (
	ErrIndexOutOfRange = errors.New("video index out of range")
	ErrNotReady        = errors.New("playlist is empty")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReady
)

func (p Phase) String() string {
	if p == PhaseReady {
		return "ready"
	}
	return "idle"
}

// Mirror is the client's copy of the room state.
type Mirror struct {
	Playlist     []protocol.VideoMeta `json:"playlist"`
	CurrentIndex int                  `json:"current_index"`
	IsPlaying    bool                 `json:"is_playing"`
	CurrentTime  float64              `json:"current_time"`
}

func (m Mirror) clone() Mirror {
	m.Playlist = slices.Clone(m.Playlist)
	return m
}

type ReconcilerConfig struct {
	Clock            clockwork.Clock
	DriftThreshold   float64
	SeekTimeoutBeats int
	TokenTTL         time.Duration
}

// Reconciler keeps the widget in line with the room and turns genuine user
// actions on the widget into intents. It is not safe for concurrent use; the
// Session calls it from a single goroutine.
type Reconciler struct {
	roomId string
	widget Widget
	send   func(*protocol.Output)
	guard  *suppressionGuard
	drift  *DriftCorrector
	logger *slog.Logger

	mirror   Mirror
	phase    Phase
	loadedId string
}

func NewReconciler(roomId string, widget Widget, send func(*protocol.Output), cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = 1.0
	}
	if cfg.SeekTimeoutBeats <= 0 {
		cfg.SeekTimeoutBeats = 3
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 3 * time.Second
	}

	return &Reconciler{
		roomId: roomId,
		widget: widget,
		send:   send,
		guard:  newSuppressionGuard(clock, cfg.TokenTTL),
		drift:  NewDriftCorrector(cfg.DriftThreshold, cfg.SeekTimeoutBeats),
		logger: logger,
	}
}

func (r *Reconciler) Mirror() Mirror {
	return r.mirror.clone()
}

func (r *Reconciler) Phase() Phase {
	return r.phase
}

func (r *Reconciler) IsSeeking() bool {
	return r.drift.IsSeeking()
}

// Reset discards the mirror, as on a new connection.
func (r *Reconciler) Reset() {
	r.mirror = Mirror{}
	r.phase = PhaseIdle
	r.loadedId = ""
	r.guard.Reset()
	r.drift.Settle()
}

func (r *Reconciler) Join() {
	r.send(&protocol.Output{
		Type:    protocol.EventJoinRoom,
		Payload: protocol.JoinRoomInput{RoomId: r.roomId},
	})
}

func decode[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode payload: %w", err)
	}

	return payload, nil
}

// HandleMessage applies a broadcast from the relay.
func (r *Reconciler) HandleMessage(msg protocol.Message) error {
	switch msg.Type {
	case protocol.EventInit:
		snapshot, err := decode[protocol.RoomSnapshot](msg.Payload)
		if err != nil {
			return err
		}
		r.applyInit(snapshot)
	case protocol.EventPlaylistUpdated:
		updated, err := decode[protocol.PlaylistUpdatedOutput](msg.Payload)
		if err != nil {
			return err
		}
		r.applyPlaylist(updated.Playlist)
	case protocol.EventPlayVideo:
		played, err := decode[protocol.PlayVideoOutput](msg.Payload)
		if err != nil {
			return err
		}
		r.applyPlayVideo(played.CurrentIndex, played.IsPlaying)
	case protocol.EventPauseVideo:
		r.mirror.IsPlaying = false
		r.commandPause()
	case protocol.EventPlaybackTimeUpdate:
		update, err := decode[protocol.PlaybackTimeUpdateOutput](msg.Payload)
		if err != nil {
			return err
		}
		r.applyTime(update.Time)
	case protocol.EventIntentRejected:
		rejected, err := decode[protocol.IntentRejectedOutput](msg.Payload)
		if err != nil {
			return err
		}
		r.logger.Debug("intent rejected", "type", rejected.Type, "reason", rejected.Reason)
	default:
		r.logger.Debug("unknown message", "type", msg.Type)
	}

	return nil
}

func (r *Reconciler) applyInit(snapshot protocol.RoomSnapshot) {
	r.Reset()
	r.mirror = Mirror{
		Playlist:     snapshot.Playlist,
		CurrentIndex: snapshot.CurrentIndex,
		IsPlaying:    snapshot.IsPlaying,
		CurrentTime:  snapshot.CurrentTime,
	}

	if len(r.mirror.Playlist) == 0 {
		return
	}
	r.phase = PhaseReady

	r.loadCurrent()
	if snapshot.CurrentTime > 0 {
		r.widget.SeekTo(snapshot.CurrentTime, true)
	}
	r.commandPlayback()
}

func (r *Reconciler) applyPlaylist(playlist []protocol.VideoMeta) {
	r.mirror.Playlist = playlist

	switch {
	case len(playlist) == 0:
		r.mirror.CurrentIndex = 0
		r.mirror.IsPlaying = false
		r.commandPause()
		r.phase = PhaseIdle
		return
	case r.mirror.CurrentIndex >= len(playlist):
		r.mirror.CurrentIndex = len(playlist) - 1
	}

	r.phase = PhaseReady
	if r.loadedId != playlist[r.mirror.CurrentIndex].Id {
		r.loadCurrent()
		r.commandPlayback()
	}
}

func (r *Reconciler) applyPlayVideo(index int, isPlaying bool) {
	if index < 0 || index >= len(r.mirror.Playlist) {
		r.logger.Warn("play-video outside of the mirrored playlist", "index", index, "length", len(r.mirror.Playlist))
		return
	}

	changed := index != r.mirror.CurrentIndex || r.loadedId != r.mirror.Playlist[index].Id
	if index != r.mirror.CurrentIndex {
		r.mirror.CurrentTime = 0
	}
	r.mirror.CurrentIndex = index
	r.mirror.IsPlaying = isPlaying
	r.phase = PhaseReady

	if changed {
		r.drift.Settle()
		r.loadCurrent()
	}
	r.commandPlayback()
}

func (r *Reconciler) applyTime(t float64) {
	r.mirror.CurrentTime = t

	if r.phase != PhaseReady || !r.mirror.IsPlaying {
		return
	}

	if r.drift.Correct(r.widget.CurrentTime(), t) {
		r.logger.Debug("correcting drift", "local", r.widget.CurrentTime(), "remote", t)
		r.widget.SeekTo(t, true)
	}
}

func (r *Reconciler) loadCurrent() {
	id := r.mirror.Playlist[r.mirror.CurrentIndex].Id
	r.loadedId = id
	r.widget.Load(id)
}

func (r *Reconciler) commandPlayback() {
	if r.mirror.IsPlaying {
		r.commandPlay()
	} else {
		r.commandPause()
	}
}

func (r *Reconciler) commandPlay() {
	if r.widget.State() == StatePlaying {
		return
	}

	r.guard.Arm(StatePlaying)
	r.widget.Play()
}

func (r *Reconciler) commandPause() {
	switch r.widget.State() {
	case StatePlaying, StateBuffering:
		r.guard.Arm(StatePaused)
		r.widget.Pause()
	}
}

// targetState is what the widget reports once it has caught up with the room.
func (r *Reconciler) targetState() PlayerState {
	if r.mirror.IsPlaying {
		return StatePlaying
	}
	return StatePaused
}

// HandleWidgetEvent processes a state change reported by the widget.
func (r *Reconciler) HandleWidgetEvent(state PlayerState) {
	if r.drift.IsSeeking() && state == r.targetState() {
		r.drift.Settle()
	}

	if r.guard.Consume(state) {
		return
	}

	if r.drift.IsSeeking() || r.phase != PhaseReady {
		return
	}

	switch state {
	case StatePlaying:
		if r.mirror.IsPlaying {
			return
		}
		r.mirror.IsPlaying = true
		r.emitPlay(r.mirror.CurrentIndex)
	case StatePaused:
		if !r.mirror.IsPlaying {
			return
		}
		r.mirror.IsPlaying = false
		r.emitPause()
	case StateEnded:
		r.Next()
	}
}

// Tick runs once per heartbeat interval.
func (r *Reconciler) Tick() {
	if r.drift.Tick() {
		r.reconcileAfterSeek()
	}

	if r.phase != PhaseReady || !r.mirror.IsPlaying || r.drift.IsSeeking() {
		return
	}

	if r.widget.State() != StatePlaying {
		return
	}

	t := r.widget.CurrentTime()
	r.mirror.CurrentTime = t
	r.send(&protocol.Output{
		Type: protocol.EventPlaybackTimeUpdate,
		Payload: protocol.PlaybackTimeUpdateInput{
			RoomId: r.roomId,
			Time:   t,
		},
	})
}

// reconcileAfterSeek handles a widget left in a stable state other than the
// room's while a seek was pending, which only a user action produces.
func (r *Reconciler) reconcileAfterSeek() {
	state := r.widget.State()
	if state == r.targetState() {
		return
	}

	switch state {
	case StatePlaying, StatePaused, StateEnded:
		r.logger.Debug("widget diverged during seek", "state", state)
		r.HandleWidgetEvent(state)
	}
}

func (r *Reconciler) emitPlay(index int) {
	r.send(&protocol.Output{
		Type: protocol.EventPlayVideo,
		Payload: protocol.PlayVideoInput{
			RoomId: r.roomId,
			Index:  index,
		},
	})
}

func (r *Reconciler) emitPause() {
	r.send(&protocol.Output{
		Type:    protocol.EventPauseVideo,
		Payload: protocol.PauseVideoInput{RoomId: r.roomId},
	})
}

// PlayAt asks the room to play the entry at index.
func (r *Reconciler) PlayAt(index int) error {
	if index < 0 || index >= len(r.mirror.Playlist) {
		return ErrIndexOutOfRange
	}

	r.emitPlay(index)
	return nil
}

func (r *Reconciler) Pause() error {
	if r.phase != PhaseReady {
		return ErrNotReady
	}

	r.emitPause()
	return nil
}

// Next moves to the following entry. It does nothing on the last one.
func (r *Reconciler) Next() {
	if r.mirror.CurrentIndex+1 < len(r.mirror.Playlist) {
		r.emitPlay(r.mirror.CurrentIndex + 1)
	}
}

// Prev moves to the previous entry. It does nothing on the first one.
func (r *Reconciler) Prev() {
	if r.mirror.CurrentIndex > 0 && len(r.mirror.Playlist) > 0 {
		r.emitPlay(r.mirror.CurrentIndex - 1)
	}
}

func (r *Reconciler) AddVideo(video protocol.VideoMeta) {
	r.send(&protocol.Output{
		Type: protocol.EventAddVideo,
		Payload: protocol.AddVideoInput{
			RoomId: r.roomId,
			Video:  video,
		},
	})
}

// RemoveVideo asks the room to replace its playlist with one lacking index.
func (r *Reconciler) RemoveVideo(index int) error {
	if index < 0 || index >= len(r.mirror.Playlist) {
		return ErrIndexOutOfRange
	}

	r.send(&protocol.Output{
		Type: protocol.EventUpdatePlaylist,
		Payload: protocol.UpdatePlaylistInput{
			RoomId:   r.roomId,
			Playlist: slices.Delete(slices.Clone(r.mirror.Playlist), index, index+1),
		},
	})
	return nil
}
