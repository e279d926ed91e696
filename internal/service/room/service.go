package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/lockstep/internal/repository/connection"
	"github.com/sharetube/lockstep/internal/repository/room"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrNotMember            = errors.New("member has not joined the room")
	ErrIndexOutOfRange      = errors.New("video index out of range")
	ErrNotPlaying           = errors.New("player is not playing")
	ErrNotDriver            = errors.New("member is not driving playback")
	ErrPlaylistLimitReached = errors.New("playlist limit reached")
	ErrMembersLimitReached  = errors.New("members limit reached")
)

type iRoomRepo interface {
	// room
	CreateRoom(context.Context, *room.CreateRoomParams) error
	IsRoomExists(context.Context, string) (bool, error)
	GetRoomIds(context.Context) ([]string, error)
	// member
	AddMember(context.Context, *room.AddMemberParams) error
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMemberIds(context.Context, string) ([]string, error)
	IsMember(ctx context.Context, roomId, memberId string) (bool, error)
	// video
	GetVideos(context.Context, string) ([]room.Video, error)
	GetVideosLength(context.Context, string) (int, error)
	SetVideos(context.Context, *room.SetVideosParams) error
	AddVideo(context.Context, *room.AddVideoParams) (int, error)
	// player
	GetPlayer(context.Context, string) (room.Player, error)
	UpdatePlayer(context.Context, *room.UpdatePlayerParams) error
}

type iConnRepo interface {
	GetConn(string) (connection.Sender, error)
}

type Config struct {
	MembersLimit  int
	PlaylistLimit int
	Clock         clockwork.Clock
}

// service owns every RoomState. Mutations of one room are serialized by that
// room's lock, and their broadcasts are queued before the lock is released, so
// members observe events in apply order.
type service struct {
	roomRepo      iRoomRepo
	connRepo      iConnRepo
	clock         clockwork.Clock
	logger        *slog.Logger
	membersLimit  int
	playlistLimit int

	mu          sync.Mutex
	roomLocks   map[string]*sync.Mutex
	memberRooms map[string]string
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, cfg *Config, logger *slog.Logger) *service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &service{
		roomRepo:      roomRepo,
		connRepo:      connRepo,
		clock:         clock,
		logger:        logger,
		membersLimit:  cfg.MembersLimit,
		playlistLimit: cfg.PlaylistLimit,
		roomLocks:     make(map[string]*sync.Mutex),
		memberRooms:   make(map[string]string),
	}
}
