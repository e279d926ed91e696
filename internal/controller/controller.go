package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/lockstep/internal/repository/connection"
	"github.com/sharetube/lockstep/internal/service/room"
	"github.com/sharetube/lockstep/pkg/validator"
	"github.com/sharetube/lockstep/pkg/wsrouter"
	"github.com/sharetube/lockstep/pkg/ytvideodata"
)

type iRoomService interface {
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	UpdatePlaylist(context.Context, *room.UpdatePlaylistParams) (room.UpdatePlaylistResponse, error)
	AddVideo(context.Context, *room.AddVideoParams) (room.AddVideoResponse, error)
	PlayVideo(context.Context, *room.PlayVideoParams) (room.PlayVideoResponse, error)
	PauseVideo(context.Context, *room.PauseVideoParams) error
	UpdatePlaybackTime(context.Context, *room.UpdatePlaybackTimeParams) error
	GetRoom(context.Context, string) (room.Room, error)
}

type iConnRepo interface {
	Add(connection.Sender, string) error
	RemoveByMemberId(string) (connection.Sender, error)
}

type iVideoInfo interface {
	Resolve(ctx context.Context, rawURL string) (*ytvideodata.VideoData, error)
}

type Config struct {
	NegativeAcks bool
	PingPeriod   time.Duration
	WriteWait    time.Duration
	ReadLimit    int64
	SendBuffer   int
}

type controller struct {
	roomService iRoomService
	connRepo    iConnRepo
	videoInfo   iVideoInfo
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsRouter    *wsrouter.WSRouter
	logger      *slog.Logger
	cfg         Config
}

func NewController(roomService iRoomService, connRepo iConnRepo, videoInfo iVideoInfo, cfg *Config, logger *slog.Logger) *controller {
	c := *cfg
	if c.PingPeriod <= 0 {
		c.PingPeriod = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}

	ctrl := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		connRepo:    connRepo,
		videoInfo:   videoInfo,
		validate:    validator.NewValidator(),
		logger:      logger,
		cfg:         c,
	}
	ctrl.wsRouter = ctrl.getWSRouter()

	return ctrl
}
