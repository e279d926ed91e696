package room

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrMemberNotFound = errors.New("member not found")
	ErrPlayerNotFound = errors.New("player not found")
)
