package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"github.com/sharetube/lockstep/internal/repository/room"
)

func (r repo) GetVideosLength(ctx context.Context, roomId string) (int, error) {
	if err := r.checkRoomExists(ctx, roomId); err != nil {
		return 0, err
	}

	playlistKey := r.getPlaylistKey(roomId)
	length, err := r.rc.LLen(ctx, playlistKey).Result()
	if err != nil {
		return 0, err
	}

	return int(length), nil
}

func (r repo) GetVideos(ctx context.Context, roomId string) ([]room.Video, error) {
	if err := r.checkRoomExists(ctx, roomId); err != nil {
		return nil, err
	}

	playlistKey := r.getPlaylistKey(roomId)
	raw, err := r.rc.LRange(ctx, playlistKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	videos := make([]room.Video, 0, len(raw))
	for _, item := range raw {
		var video room.Video
		if err := json.Unmarshal([]byte(item), &video); err != nil {
			return nil, fmt.Errorf("failed to decode video: %w", err)
		}
		videos = append(videos, video)
	}

	r.expire(ctx, r.rc, playlistKey)

	return videos, nil
}

func (r repo) encodeVideos(videos []room.Video) ([]any, error) {
	encoded := make([]any, 0, len(videos))
	for _, video := range videos {
		b, err := json.Marshal(video)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, string(b))
	}

	return encoded, nil
}

func (r repo) SetVideos(ctx context.Context, params *room.SetVideosParams) error {
	if err := r.checkRoomExists(ctx, params.RoomId); err != nil {
		return err
	}

	encoded, err := r.encodeVideos(params.Videos)
	if err != nil {
		return fmt.Errorf("failed to encode videos: %w", err)
	}

	playlistKey := r.getPlaylistKey(params.RoomId)
	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, playlistKey)
	for _, chunk := range lo.Chunk(encoded, 100) {
		pipe.RPush(ctx, playlistKey, chunk...)
	}
	r.expire(ctx, pipe, playlistKey)

	return r.executePipe(ctx, pipe)
}

func (r repo) AddVideo(ctx context.Context, params *room.AddVideoParams) (int, error) {
	if err := r.checkRoomExists(ctx, params.RoomId); err != nil {
		return 0, err
	}

	encoded, err := r.encodeVideos([]room.Video{params.Video})
	if err != nil {
		return 0, fmt.Errorf("failed to encode video: %w", err)
	}

	playlistKey := r.getPlaylistKey(params.RoomId)
	pipe := r.rc.TxPipeline()
	pushCmd := pipe.RPush(ctx, playlistKey, encoded...)
	r.expire(ctx, pipe, playlistKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		return 0, err
	}

	return int(pushCmd.Val()), nil
}
