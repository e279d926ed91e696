package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/lockstep/internal/repository/room"
	omitnilpointers "github.com/sharetube/lockstep/pkg/omit-nil-pointers"
)

func (r repo) GetPlayer(ctx context.Context, roomId string) (room.Player, error) {
	playerKey := r.getPlayerKey(roomId)
	res := r.rc.HGetAll(ctx, playerKey)
	if err := res.Err(); err != nil {
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	if len(res.Val()) == 0 {
		return room.Player{}, room.ErrPlayerNotFound
	}

	var player room.Player
	if err := res.Scan(&player); err != nil {
		return room.Player{}, fmt.Errorf("failed to scan player: %w", err)
	}

	r.expire(ctx, r.rc, playerKey)

	return player, nil
}

func (r repo) UpdatePlayer(ctx context.Context, params *room.UpdatePlayerParams) error {
	playerKey := r.getPlayerKey(params.RoomId)
	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrPlayerNotFound
	}

	fields := omitnilpointers.OmitNilPointers(map[string]any{
		"current_index": params.CurrentIndex,
		"is_playing":    params.IsPlaying,
		"current_time":  params.CurrentTime,
		"driver_id":     params.DriverId,
		"updated_at":    params.UpdatedAt,
	})

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, playerKey, omitnilpointers.Pairs(fields)...)
	r.expire(ctx, pipe, playerKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	return nil
}
