package room

import "context"

// Repository is the RoomState store contract implemented by the inmemory and
// redis packages.
type Repository interface {
	CreateRoom(context.Context, *CreateRoomParams) error
	IsRoomExists(context.Context, string) (bool, error)
	GetRoomIds(context.Context) ([]string, error)

	AddMember(context.Context, *AddMemberParams) error
	RemoveMember(context.Context, *RemoveMemberParams) error
	GetMemberIds(context.Context, string) ([]string, error)
	IsMember(ctx context.Context, roomId, memberId string) (bool, error)

	GetVideos(context.Context, string) ([]Video, error)
	GetVideosLength(context.Context, string) (int, error)
	SetVideos(context.Context, *SetVideosParams) error
	AddVideo(context.Context, *AddVideoParams) (int, error)

	GetPlayer(context.Context, string) (Player, error)
	UpdatePlayer(context.Context, *UpdatePlayerParams) error
}
