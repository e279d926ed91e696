package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/internal/repository/room"
)

type JoinRoomParams struct {
	MemberId string
	RoomId   string
}

type JoinRoomResponse struct {
	Room      Room
	IsCreated bool
}

// JoinRoom creates the room on first use, leaves the previously joined room
// and delivers an init snapshot to the joiner before any later broadcast.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if prev := s.getMemberRoom(params.MemberId); prev != "" && prev != params.RoomId {
		if _, err := s.LeaveRoom(ctx, &LeaveRoomParams{MemberId: params.MemberId}); err != nil {
			s.logger.WarnContext(ctx, "failed to leave previous room", "room_id", prev, "error", err)
		}
	}

	unlock := s.lockRoom(params.RoomId)
	defer unlock()

	exists, err := s.roomRepo.IsRoomExists(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check if room exists: %w", err)
	}

	var isCreated bool
	if !exists {
		err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
			RoomId: params.RoomId,
			Player: room.Player{UpdatedAt: s.now()},
		})
		if err != nil && !errors.Is(err, room.ErrRoomExists) {
			return JoinRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}
		isCreated = err == nil
		s.logger.InfoContext(ctx, "room created", "room_id", params.RoomId)
	}

	isMember, err := s.roomRepo.IsMember(ctx, params.RoomId, params.MemberId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check membership: %w", err)
	}

	if !isMember {
		memberIds, err := s.roomRepo.GetMemberIds(ctx, params.RoomId)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to get member ids: %w", err)
		}

		if s.membersLimit > 0 && len(memberIds) >= s.membersLimit {
			return JoinRoomResponse{}, ErrMembersLimitReached
		}

		if err := s.roomRepo.AddMember(ctx, &room.AddMemberParams{
			MemberId: params.MemberId,
			RoomId:   params.RoomId,
		}); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to add member: %w", err)
		}
	}

	s.setMemberRoom(params.MemberId, params.RoomId)

	r, err := s.getRoom(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	s.sendToMember(ctx, params.MemberId, &protocol.Output{
		Type:    protocol.EventInit,
		Payload: r.Snapshot(),
	})

	return JoinRoomResponse{
		Room:      r,
		IsCreated: isCreated,
	}, nil
}

type LeaveRoomParams struct {
	MemberId string
}

type LeaveRoomResponse struct {
	RoomId string
}

func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	roomId := s.getMemberRoom(params.MemberId)
	if roomId == "" {
		return LeaveRoomResponse{}, ErrNotMember
	}

	unlock := s.lockRoom(roomId)
	defer unlock()

	s.setMemberRoom(params.MemberId, "")

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		MemberId: params.MemberId,
		RoomId:   roomId,
	}); err != nil {
		if errors.Is(err, room.ErrMemberNotFound) || errors.Is(err, room.ErrRoomNotFound) {
			return LeaveRoomResponse{RoomId: roomId}, nil
		}
		return LeaveRoomResponse{}, fmt.Errorf("failed to remove member: %w", err)
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	if err != nil {
		return LeaveRoomResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	if player.DriverId == params.MemberId {
		noDriver := ""
		if err := s.roomRepo.UpdatePlayer(ctx, &room.UpdatePlayerParams{
			DriverId:  &noDriver,
			UpdatedAt: player.UpdatedAt,
			RoomId:    roomId,
		}); err != nil {
			return LeaveRoomResponse{}, fmt.Errorf("failed to clear driver: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "member left room", "room_id", roomId, "member_id", params.MemberId)

	return LeaveRoomResponse{RoomId: roomId}, nil
}

func (s *service) GetRoom(ctx context.Context, roomId string) (Room, error) {
	unlock := s.lockRoom(roomId)
	defer unlock()

	exists, err := s.roomRepo.IsRoomExists(ctx, roomId)
	if err != nil {
		return Room{}, fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return Room{}, ErrRoomNotFound
	}

	return s.getRoom(ctx, roomId)
}

func (s *service) GetRoomIds(ctx context.Context) ([]string, error) {
	return s.roomRepo.GetRoomIds(ctx)
}

// GetMemberRoomId returns the room the member is currently joined to.
func (s *service) GetMemberRoomId(memberId string) (string, bool) {
	roomId := s.getMemberRoom(memberId)
	return roomId, roomId != ""
}
