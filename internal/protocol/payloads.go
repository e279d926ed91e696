package protocol

type JoinRoomInput struct {
	RoomId string `json:"room_id" validate:"required,max=64"`
}

type UpdatePlaylistInput struct {
	RoomId   string      `json:"room_id" validate:"required,max=64"`
	Playlist []VideoMeta `json:"playlist" validate:"dive"`
}

type AddVideoInput struct {
	RoomId string    `json:"room_id" validate:"required,max=64"`
	Video  VideoMeta `json:"video"`
}

// PlayVideoInput.IsPlaying defaults to true when omitted.
type PlayVideoInput struct {
	RoomId    string `json:"room_id" validate:"required,max=64"`
	Index     int    `json:"index" validate:"gte=0"`
	IsPlaying *bool  `json:"is_playing,omitempty"`
}

type PauseVideoInput struct {
	RoomId string `json:"room_id" validate:"required,max=64"`
}

type PlaybackTimeUpdateInput struct {
	RoomId string  `json:"room_id" validate:"required,max=64"`
	Time   float64 `json:"time" validate:"gte=0"`
}

// RoomSnapshot is the init payload.
type RoomSnapshot struct {
	Playlist     []VideoMeta `json:"playlist"`
	CurrentIndex int         `json:"current_index"`
	IsPlaying    bool        `json:"is_playing"`
	CurrentTime  float64     `json:"current_time"`
	UpdatedAt    int64       `json:"updated_at"`
}

type PlaylistUpdatedOutput struct {
	Playlist []VideoMeta `json:"playlist"`
}

type PlayVideoOutput struct {
	CurrentIndex int  `json:"current_index"`
	IsPlaying    bool `json:"is_playing"`
}

type PlaybackTimeUpdateOutput struct {
	Time float64 `json:"time"`
}

type IntentRejectedOutput struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
