package redis

import (
	"context"
	"fmt"
	"slices"

	"github.com/sharetube/lockstep/internal/repository/room"
)

func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	added, err := r.rc.SAdd(ctx, roomsKey, params.RoomId).Result()
	if err != nil {
		return fmt.Errorf("failed to add room: %w", err)
	}

	if added == 0 {
		return room.ErrRoomExists
	}

	pipe := r.rc.TxPipeline()

	playerKey := r.getPlayerKey(params.RoomId)
	r.hSetStruct(ctx, pipe, playerKey, params.Player)
	r.expire(ctx, pipe, playerKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.rc.SRem(ctx, roomsKey, params.RoomId)
		return fmt.Errorf("failed to set player: %w", err)
	}

	r.logger.DebugContext(ctx, "room created", "room_id", params.RoomId)

	return nil
}

func (r repo) IsRoomExists(ctx context.Context, roomId string) (bool, error) {
	exists, err := r.rc.SIsMember(ctx, roomsKey, roomId).Result()
	if err != nil || !exists {
		return false, err
	}

	// the rooms set has no ttl, so an expired player means the room is gone
	n, err := r.rc.Exists(ctx, r.getPlayerKey(roomId)).Result()
	if err != nil {
		return false, err
	}

	if n == 0 {
		r.rc.SRem(ctx, roomsKey, roomId)
		return false, nil
	}

	return true, nil
}

func (r repo) GetRoomIds(ctx context.Context) ([]string, error) {
	roomIds, err := r.rc.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(roomIds)

	return roomIds, nil
}
