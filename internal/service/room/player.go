package room

import (
	"context"
	"fmt"

	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/internal/repository/room"
)

type PlayVideoParams struct {
	SenderId  string
	RoomId    string
	Index     int
	IsPlaying bool
}

type PlayVideoResponse struct {
	CurrentIndex int
	IsPlaying    bool
}

// PlayVideo selects a playlist entry. Selecting another entry restarts it from
// zero, and a member that starts playback becomes the room's driver.
func (s *service) PlayVideo(ctx context.Context, params *PlayVideoParams) (PlayVideoResponse, error) {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	if err := s.checkMember(ctx, params.RoomId, params.SenderId); err != nil {
		return PlayVideoResponse{}, err
	}

	length, err := s.roomRepo.GetVideosLength(ctx, params.RoomId)
	if err != nil {
		return PlayVideoResponse{}, fmt.Errorf("failed to get videos length: %w", err)
	}

	if params.Index < 0 || params.Index >= length {
		return PlayVideoResponse{}, ErrIndexOutOfRange
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
	if err != nil {
		return PlayVideoResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	update := room.UpdatePlayerParams{
		CurrentIndex: &params.Index,
		IsPlaying:    &params.IsPlaying,
		UpdatedAt:    s.now(),
		RoomId:       params.RoomId,
	}
	if params.Index != player.CurrentIndex {
		var zero float64
		update.CurrentTime = &zero
	}
	if params.IsPlaying {
		update.DriverId = &params.SenderId
	}

	if err := s.roomRepo.UpdatePlayer(ctx, &update); err != nil {
		return PlayVideoResponse{}, fmt.Errorf("failed to update player: %w", err)
	}

	if err := s.broadcast(ctx, params.RoomId, &protocol.Output{
		Type: protocol.EventPlayVideo,
		Payload: protocol.PlayVideoOutput{
			CurrentIndex: params.Index,
			IsPlaying:    params.IsPlaying,
		},
	}); err != nil {
		return PlayVideoResponse{}, fmt.Errorf("failed to broadcast: %w", err)
	}

	return PlayVideoResponse{
		CurrentIndex: params.Index,
		IsPlaying:    params.IsPlaying,
	}, nil
}

type PauseVideoParams struct {
	SenderId string
	RoomId   string
}

func (s *service) PauseVideo(ctx context.Context, params *PauseVideoParams) error {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	if err := s.checkMember(ctx, params.RoomId, params.SenderId); err != nil {
		return err
	}

	isPlaying := false
	if err := s.roomRepo.UpdatePlayer(ctx, &room.UpdatePlayerParams{
		IsPlaying: &isPlaying,
		UpdatedAt: s.now(),
		RoomId:    params.RoomId,
	}); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	if err := s.broadcast(ctx, params.RoomId, &protocol.Output{
		Type: protocol.EventPauseVideo,
	}); err != nil {
		return fmt.Errorf("failed to broadcast: %w", err)
	}

	return nil
}

type UpdatePlaybackTimeParams struct {
	SenderId string
	RoomId   string
	Time     float64
}

// UpdatePlaybackTime records the driver's position and relays it to everyone
// else. The first member to report while nobody drives claims the role.
func (s *service) UpdatePlaybackTime(ctx context.Context, params *UpdatePlaybackTimeParams) error {
	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	if err := s.checkMember(ctx, params.RoomId, params.SenderId); err != nil {
		return err
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}

	if !player.IsPlaying {
		return ErrNotPlaying
	}

	if player.DriverId != "" && player.DriverId != params.SenderId {
		return ErrNotDriver
	}

	update := room.UpdatePlayerParams{
		CurrentTime: &params.Time,
		UpdatedAt:   s.now(),
		RoomId:      params.RoomId,
	}
	if player.DriverId == "" {
		update.DriverId = &params.SenderId
	}

	if err := s.roomRepo.UpdatePlayer(ctx, &update); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	if err := s.broadcast(ctx, params.RoomId, &protocol.Output{
		Type:    protocol.EventPlaybackTimeUpdate,
		Payload: protocol.PlaybackTimeUpdateOutput{Time: params.Time},
	}, params.SenderId); err != nil {
		return fmt.Errorf("failed to broadcast: %w", err)
	}

	return nil
}
