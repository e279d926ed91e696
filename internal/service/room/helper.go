package room

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/internal/repository/room"
)

func (s *service) lockRoom(roomId string) func() {
	s.mu.Lock()
	l, ok := s.roomLocks[roomId]
	if !ok {
		l = &sync.Mutex{}
		s.roomLocks[roomId] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *service) getMemberRoom(memberId string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.memberRooms[memberId]
}

func (s *service) setMemberRoom(memberId, roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomId == "" {
		delete(s.memberRooms, memberId)
		return
	}
	s.memberRooms[memberId] = roomId
}

func (s *service) now() int64 {
	return s.clock.Now().UnixMilli()
}

// checkMember must be called with the room lock held.
func (s *service) checkMember(ctx context.Context, roomId, memberId string) error {
	exists, err := s.roomRepo.IsRoomExists(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return ErrRoomNotFound
	}

	isMember, err := s.roomRepo.IsMember(ctx, roomId, memberId)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	if !isMember {
		return ErrNotMember
	}

	return nil
}

func toVideos(playlist []protocol.VideoMeta) []room.Video {
	return lo.Map(playlist, func(v protocol.VideoMeta, _ int) room.Video {
		return room.Video{
			Id:           v.Id,
			Title:        v.Title,
			ThumbnailURL: v.ThumbnailURL,
			AuthorName:   v.AuthorName,
		}
	})
}

func toPlaylist(videos []room.Video) []protocol.VideoMeta {
	return lo.Map(videos, func(v room.Video, _ int) protocol.VideoMeta {
		return protocol.VideoMeta{
			Id:           v.Id,
			Title:        v.Title,
			ThumbnailURL: v.ThumbnailURL,
			AuthorName:   v.AuthorName,
		}
	})
}

// getRoom must be called with the room lock held.
func (s *service) getRoom(ctx context.Context, roomId string) (Room, error) {
	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	if err != nil {
		return Room{}, fmt.Errorf("failed to get player: %w", err)
	}

	videos, err := s.roomRepo.GetVideos(ctx, roomId)
	if err != nil {
		return Room{}, fmt.Errorf("failed to get videos: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return Room{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	return Room{
		RoomId:       roomId,
		Playlist:     toPlaylist(videos),
		CurrentIndex: player.CurrentIndex,
		IsPlaying:    player.IsPlaying,
		CurrentTime:  player.CurrentTime,
		UpdatedAt:    player.UpdatedAt,
		DriverId:     player.DriverId,
		MemberIds:    memberIds,
	}, nil
}

func (s *service) sendToMember(ctx context.Context, memberId string, out *protocol.Output) {
	conn, err := s.connRepo.GetConn(memberId)
	if err != nil {
		s.logger.DebugContext(ctx, "member has no connection", "member_id", memberId, "error", err)
		return
	}

	if err := conn.Send(out); err != nil {
		s.logger.WarnContext(ctx, "failed to send message", "member_id", memberId, "type", out.Type, "error", err)
	}
}

// broadcast must be called with the room lock held. Members listed in except are skipped.
func (s *service) broadcast(ctx context.Context, roomId string, out *protocol.Output, except ...string) error {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	for _, memberId := range memberIds {
		if slices.Contains(except, memberId) {
			continue
		}
		s.sendToMember(ctx, memberId, out)
	}

	return nil
}
