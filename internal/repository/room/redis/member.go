package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/lockstep/internal/repository/room"
)

func (r repo) AddMember(ctx context.Context, params *room.AddMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.checkRoomExists(ctx, params.RoomId); err != nil {
		return err
	}

	membersKey := r.getMembersKey(params.RoomId)
	if err := r.addWithIncrement(ctx, r.rc, membersKey, params.MemberId).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}
	r.expire(ctx, r.rc, membersKey)

	return nil
}

func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	res, err := r.rc.ZRem(ctx, r.getMembersKey(params.RoomId), params.MemberId).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if res == 0 {
		return room.ErrMemberNotFound
	}

	return nil
}

func (r repo) GetMemberIds(ctx context.Context, roomId string) ([]string, error) {
	if err := r.checkRoomExists(ctx, roomId); err != nil {
		return nil, err
	}

	membersKey := r.getMembersKey(roomId)
	memberIds, err := r.rc.ZRange(ctx, membersKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	r.expire(ctx, r.rc, membersKey)

	return memberIds, nil
}

func (r repo) IsMember(ctx context.Context, roomId, memberId string) (bool, error) {
	if err := r.checkRoomExists(ctx, roomId); err != nil {
		return false, err
	}

	if err := r.rc.ZScore(ctx, r.getMembersKey(roomId), memberId).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
