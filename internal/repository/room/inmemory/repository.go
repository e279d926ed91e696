package inmemory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sharetube/lockstep/internal/repository/room"
	"golang.org/x/exp/maps"
)

type roomEntry struct {
	player  room.Player
	videos  []room.Video
	members []string
}

type repo struct {
	rooms  map[string]*roomEntry
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewRepo keeps rooms for the lifetime of the process.
func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:  make(map[string]*roomEntry),
		logger: logger,
	}
}

func (r *repo) getRoom(roomId string) (*roomEntry, error) {
	entry, ok := r.rooms[roomId]
	if !ok {
		return nil, room.ErrRoomNotFound
	}

	return entry, nil
}

func (r *repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[params.RoomId]; ok {
		return room.ErrRoomExists
	}

	r.rooms[params.RoomId] = &roomEntry{player: params.Player}
	r.logger.DebugContext(ctx, "room created", "room_id", params.RoomId)

	return nil
}

func (r *repo) IsRoomExists(_ context.Context, roomId string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomId]
	return ok, nil
}

func (r *repo) GetRoomIds(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomIds := maps.Keys(r.rooms)
	slices.Sort(roomIds)

	return roomIds, nil
}

func (r *repo) GetPlayer(_ context.Context, roomId string) (room.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, err := r.getRoom(roomId)
	if err != nil {
		return room.Player{}, err
	}

	return entry.player, nil
}

func (r *repo) UpdatePlayer(_ context.Context, params *room.UpdatePlayerParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.getRoom(params.RoomId)
	if err != nil {
		return err
	}

	if params.CurrentIndex != nil {
		entry.player.CurrentIndex = *params.CurrentIndex
	}
	if params.IsPlaying != nil {
		entry.player.IsPlaying = *params.IsPlaying
	}
	if params.CurrentTime != nil {
		entry.player.CurrentTime = *params.CurrentTime
	}
	if params.DriverId != nil {
		entry.player.DriverId = *params.DriverId
	}
	entry.player.UpdatedAt = params.UpdatedAt

	return nil
}

func (r *repo) GetVideos(_ context.Context, roomId string) ([]room.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, err := r.getRoom(roomId)
	if err != nil {
		return nil, err
	}

	return slices.Clone(entry.videos), nil
}

func (r *repo) GetVideosLength(_ context.Context, roomId string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, err := r.getRoom(roomId)
	if err != nil {
		return 0, err
	}

	return len(entry.videos), nil
}

func (r *repo) SetVideos(_ context.Context, params *room.SetVideosParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.getRoom(params.RoomId)
	if err != nil {
		return err
	}

	entry.videos = slices.Clone(params.Videos)

	return nil
}

func (r *repo) AddVideo(_ context.Context, params *room.AddVideoParams) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.getRoom(params.RoomId)
	if err != nil {
		return 0, err
	}

	entry.videos = append(entry.videos, params.Video)

	return len(entry.videos), nil
}

func (r *repo) AddMember(_ context.Context, params *room.AddMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.getRoom(params.RoomId)
	if err != nil {
		return err
	}

	if !slices.Contains(entry.members, params.MemberId) {
		entry.members = append(entry.members, params.MemberId)
	}

	return nil
}

func (r *repo) RemoveMember(_ context.Context, params *room.RemoveMemberParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.getRoom(params.RoomId)
	if err != nil {
		return err
	}

	index := slices.Index(entry.members, params.MemberId)
	if index == -1 {
		return room.ErrMemberNotFound
	}
	entry.members = slices.Delete(entry.members, index, index+1)

	return nil
}

func (r *repo) GetMemberIds(_ context.Context, roomId string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, err := r.getRoom(roomId)
	if err != nil {
		return nil, err
	}

	return slices.Clone(entry.members), nil
}

func (r *repo) IsMember(_ context.Context, roomId, memberId string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, err := r.getRoom(roomId)
	if err != nil {
		return false, err
	}

	return slices.Contains(entry.members, memberId), nil
}
