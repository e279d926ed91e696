package room

import "github.com/sharetube/lockstep/internal/protocol"

type Room struct {
	RoomId       string               `json:"room_id"`
	Playlist     []protocol.VideoMeta `json:"playlist"`
	CurrentIndex int                  `json:"current_index"`
	IsPlaying    bool                 `json:"is_playing"`
	CurrentTime  float64              `json:"current_time"`
	UpdatedAt    int64                `json:"updated_at"`
	DriverId     string               `json:"driver_id"`
	MemberIds    []string             `json:"member_ids"`
}

func (r Room) Snapshot() protocol.RoomSnapshot {
	return protocol.RoomSnapshot{
		Playlist:     r.Playlist,
		CurrentIndex: r.CurrentIndex,
		IsPlaying:    r.IsPlaying,
		CurrentTime:  r.CurrentTime,
		UpdatedAt:    r.UpdatedAt,
	}
}
