package room

type Player struct {
	CurrentIndex int     `redis:"current_index"`
	IsPlaying    bool    `redis:"is_playing"`
	CurrentTime  float64 `redis:"current_time"`
	UpdatedAt    int64   `redis:"updated_at"`
	DriverId     string  `redis:"driver_id"`
}

type CreateRoomParams struct {
	RoomId string
	Player Player
}

// UpdatePlayerParams leaves nil fields untouched.
type UpdatePlayerParams struct {
	CurrentIndex *int
	IsPlaying    *bool
	CurrentTime  *float64
	DriverId     *string
	UpdatedAt    int64
	RoomId       string
}
