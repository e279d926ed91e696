// Package protocol holds the websocket envelope, event names and payloads
// exchanged between the relay and its clients.
package protocol

import "encoding/json"

const DefaultRoomId = "default-room"

// client -> relay
const (
	EventJoinRoom       = "join-room"
	EventUpdatePlaylist = "update-playlist"
	EventAddVideo       = "add-video"
	EventAlive          = "alive"
)

// relay -> client
const (
	EventInit            = "init"
	EventPlaylistUpdated = "playlist-updated"
	EventIntentRejected  = "intent-rejected"
)

// both directions
const (
	EventPlayVideo          = "play-video"
	EventPauseVideo         = "pause-video"
	EventPlaybackTimeUpdate = "playback-time-update"
)

// Message is an inbound envelope with the payload left undecoded.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type VideoMeta struct {
	Id           string `json:"id" validate:"required,max=64"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	AuthorName   string `json:"author_name"`
}
