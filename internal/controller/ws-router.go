package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/internal/service/room"
	"github.com/sharetube/lockstep/pkg/validator"
	"github.com/sharetube/lockstep/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, protocol.EventAlive, c.handleAlive)
	// room
	wsrouter.Handle(mux, protocol.EventJoinRoom, c.handleJoinRoom)
	// playlist
	wsrouter.Handle(mux, protocol.EventUpdatePlaylist, c.handleUpdatePlaylist)
	wsrouter.Handle(mux, protocol.EventAddVideo, c.handleAddVideo)
	// player
	wsrouter.Handle(mux, protocol.EventPlayVideo, c.handlePlayVideo)
	wsrouter.Handle(mux, protocol.EventPauseVideo, c.handlePauseVideo)
	wsrouter.Handle(mux, protocol.EventPlaybackTimeUpdate, c.handlePlaybackTimeUpdate)

	return mux
}

var rejections = []error{
	wsrouter.ErrUnknownMessageType,
	wsrouter.ErrInvalidPayload,
	room.ErrRoomNotFound,
	room.ErrNotMember,
	room.ErrIndexOutOfRange,
	room.ErrNotPlaying,
	room.ErrNotDriver,
	room.ErrPlaylistLimitReached,
	room.ErrMembersLimitReached,
}

func isRejection(err error) bool {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return true
	}

	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// handleWSError keeps the connection open. Rejected intents leave the room
// untouched and are reported back only when negative acks are enabled.
func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) error {
	if !isRejection(err) {
		c.logger.ErrorContext(ctx, "failed to handle websocket message", "error", err)
		return nil
	}

	c.logger.DebugContext(ctx, "intent rejected", "error", err)

	// every playing member heartbeats, only the driver's are applied
	if !c.cfg.NegativeAcks || errors.Is(err, room.ErrNotDriver) {
		return nil
	}

	if wc := c.getConnFromCtx(ctx); wc != nil {
		if err := wc.Send(&protocol.Output{
			Type: protocol.EventIntentRejected,
			Payload: protocol.IntentRejectedOutput{
				Type:   wsrouter.GetMessageTypeFromCtx(ctx),
				Reason: err.Error(),
			},
		}); err != nil {
			c.logger.DebugContext(ctx, "failed to send intent rejection", "error", err)
		}
	}

	return nil
}
