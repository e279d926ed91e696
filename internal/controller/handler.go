package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/lockstep/internal/service/room"
	"github.com/sharetube/lockstep/pkg/ctxlogger"
	"github.com/sourcegraph/conc"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	memberId := uuid.NewString()
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("member_id", memberId))

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}

	wc := newWSConn(conn, c.cfg.SendBuffer)
	if err := c.connRepo.Add(wc, memberId); err != nil {
		c.logger.WarnContext(ctx, "failed to add connection", "error", err)
		wc.close()
		return
	}
	defer c.disconnect(ctx, memberId, wc)

	c.logger.InfoContext(ctx, "member connected")

	ctx = context.WithValue(ctx, memberIdCtxKey, memberId)
	ctx = context.WithValue(ctx, connCtxKey, wc)

	pongWait := c.cfg.PingPeriod + c.cfg.WriteWait
	if c.cfg.ReadLimit > 0 {
		conn.SetReadLimit(c.cfg.ReadLimit)
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var wg conc.WaitGroup
	wg.Go(func() {
		c.writePump(ctx, wc)
	})
	wg.Go(func() {
		defer wc.close()
		if err := c.wsRouter.ServeConn(ctx, conn); err != nil {
			c.logger.DebugContext(ctx, "websocket read loop stopped", "error", err)
		}
	})
	wg.Wait()
}

func (c controller) disconnect(ctx context.Context, memberId string, wc *wsConn) {
	wc.close()

	if _, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		MemberId: memberId,
	}); err != nil && !errors.Is(err, room.ErrNotMember) {
		c.logger.WarnContext(ctx, "failed to leave room", "error", err)
	}

	if _, err := c.connRepo.RemoveByMemberId(memberId); err != nil {
		c.logger.WarnContext(ctx, "failed to remove connection", "error", err)
	}

	c.logger.InfoContext(ctx, "member disconnected")
}
