package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/internal/service/room"
	"github.com/sharetube/lockstep/pkg/ctxlogger"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, input protocol.JoinRoomInput) error {
	if err := c.validate.Struct(input); err != nil {
		return err
	}

	memberId := c.getMemberIdFromCtx(ctx)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", input.RoomId))

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		MemberId: memberId,
		RoomId:   input.RoomId,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.logger.InfoContext(ctx, "member joined room",
		"is_created", joinRoomResp.IsCreated,
		"members", len(joinRoomResp.Room.MemberIds),
	)

	return nil
}

func (c controller) handleUpdatePlaylist(ctx context.Context, _ *websocket.Conn, input protocol.UpdatePlaylistInput) error {
	if err := c.validate.Struct(input); err != nil {
		return err
	}

	if _, err := c.roomService.UpdatePlaylist(ctx, &room.UpdatePlaylistParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   input.RoomId,
		Playlist: input.Playlist,
	}); err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return nil
}

func (c controller) handleAddVideo(ctx context.Context, _ *websocket.Conn, input protocol.AddVideoInput) error {
	if err := c.validate.Struct(input); err != nil {
		return err
	}

	if _, err := c.roomService.AddVideo(ctx, &room.AddVideoParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   input.RoomId,
		Video:    input.Video,
	}); err != nil {
		return fmt.Errorf("failed to add video: %w", err)
	}

	return nil
}

func (c controller) handlePlayVideo(ctx context.Context, _ *websocket.Conn, input protocol.PlayVideoInput) error {
	if err := c.validate.Struct(input); err != nil {
		return err
	}

	isPlaying := true
	if input.IsPlaying != nil {
		isPlaying = *input.IsPlaying
	}

	if _, err := c.roomService.PlayVideo(ctx, &room.PlayVideoParams{
		SenderId:  c.getMemberIdFromCtx(ctx),
		RoomId:    input.RoomId,
		Index:     input.Index,
		IsPlaying: isPlaying,
	}); err != nil {
		return fmt.Errorf("failed to play video: %w", err)
	}

	return nil
}

func (c controller) handlePauseVideo(ctx context.Context, _ *websocket.Conn, input protocol.PauseVideoInput) error {
	if err := c.validate.Struct(input); err != nil {
		return err
	}

	if err := c.roomService.PauseVideo(ctx, &room.PauseVideoParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   input.RoomId,
	}); err != nil {
		return fmt.Errorf("failed to pause video: %w", err)
	}

	return nil
}

func (c controller) handlePlaybackTimeUpdate(ctx context.Context, _ *websocket.Conn, input protocol.PlaybackTimeUpdateInput) error {
	if err := c.validate.Struct(input); err != nil {
		return err
	}

	if err := c.roomService.UpdatePlaybackTime(ctx, &room.UpdatePlaybackTimeParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   input.RoomId,
		Time:     input.Time,
	}); err != nil {
		return fmt.Errorf("failed to update playback time: %w", err)
	}

	return nil
}
