package room

import (
	"context"
	"fmt"

	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/internal/repository/room"
)

type UpdatePlaylistParams struct {
	SenderId string
	RoomId   string
	Playlist []protocol.VideoMeta
}

type UpdatePlaylistResponse struct {
	Playlist     []protocol.VideoMeta
	CurrentIndex int
	IsPlaying    bool
}

// UpdatePlaylist replaces the playlist. A current index past the new end is
// clamped to the last entry; an empty playlist stops playback.
func (s *service) UpdatePlaylist(ctx context.Context, params *UpdatePlaylistParams) (UpdatePlaylistResponse, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	if err := s.checkMember(ctx, params.RoomId, params.SenderId); err != nil {
		return UpdatePlaylistResponse{}, err
	}

	if s.playlistLimit > 0 && len(params.Playlist) > s.playlistLimit {
		return UpdatePlaylistResponse{}, ErrPlaylistLimitReached
	}

	if err := s.roomRepo.SetVideos(ctx, &room.SetVideosParams{
		Videos: toVideos(params.Playlist),
		RoomId: params.RoomId,
	}); err != nil {
		return UpdatePlaylistResponse{}, fmt.Errorf("failed to set videos: %w", err)
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
	if err != nil {
		return UpdatePlaylistResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	index, isPlaying := player.CurrentIndex, player.IsPlaying
	switch {
	case len(params.Playlist) == 0:
		index, isPlaying = 0, false
	case index >= len(params.Playlist):
		index = len(params.Playlist) - 1
	}
	clamped := index != player.CurrentIndex || isPlaying != player.IsPlaying

	update := room.UpdatePlayerParams{
		UpdatedAt: s.now(),
		RoomId:    params.RoomId,
	}
	if clamped {
		var zero float64
		update.CurrentIndex = &index
		update.IsPlaying = &isPlaying
		update.CurrentTime = &zero
	}

	if err := s.roomRepo.UpdatePlayer(ctx, &update); err != nil {
		return UpdatePlaylistResponse{}, fmt.Errorf("failed to update player: %w", err)
	}

	if err := s.broadcast(ctx, params.RoomId, &protocol.Output{
		Type:    protocol.EventPlaylistUpdated,
		Payload: protocol.PlaylistUpdatedOutput{Playlist: params.Playlist},
	}); err != nil {
		return UpdatePlaylistResponse{}, fmt.Errorf("failed to broadcast: %w", err)
	}

	if clamped {
		if err := s.broadcast(ctx, params.RoomId, &protocol.Output{
			Type: protocol.EventPlayVideo,
			Payload: protocol.PlayVideoOutput{
				CurrentIndex: index,
				IsPlaying:    isPlaying,
			},
		}); err != nil {
			return UpdatePlaylistResponse{}, fmt.Errorf("failed to broadcast: %w", err)
		}
	}

	return UpdatePlaylistResponse{
		Playlist:     params.Playlist,
		CurrentIndex: index,
		IsPlaying:    isPlaying,
	}, nil
}

type AddVideoParams struct {
	SenderId string
	RoomId   string
	Video    protocol.VideoMeta
}

type AddVideoResponse struct {
	Playlist []protocol.VideoMeta
}

func (s *service) AddVideo(ctx context.Context, params *AddVideoParams) (AddVideoResponse, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	if err := s.checkMember(ctx, params.RoomId, params.SenderId); err != nil {
		return AddVideoResponse{}, err
	}

	length, err := s.roomRepo.GetVideosLength(ctx, params.RoomId)
	if err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to get videos length: %w", err)
	}

	if s.playlistLimit > 0 && length >= s.playlistLimit {
		return AddVideoResponse{}, ErrPlaylistLimitReached
	}

	if _, err := s.roomRepo.AddVideo(ctx, &room.AddVideoParams{
		Video:  toVideos([]protocol.VideoMeta{params.Video})[0],
		RoomId: params.RoomId,
	}); err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to add video: %w", err)
	}

	if err := s.roomRepo.UpdatePlayer(ctx, &room.UpdatePlayerParams{
		UpdatedAt: s.now(),
		RoomId:    params.RoomId,
	}); err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to update player: %w", err)
	}

	videos, err := s.roomRepo.GetVideos(ctx, params.RoomId)
	if err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to get videos: %w", err)
	}

	playlist := toPlaylist(videos)
	if err := s.broadcast(ctx, params.RoomId, &protocol.Output{
		Type:    protocol.EventPlaylistUpdated,
		Payload: protocol.PlaylistUpdatedOutput{Playlist: playlist},
	}); err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to broadcast: %w", err)
	}

	return AddVideoResponse{Playlist: playlist}, nil
}
