package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/lockstep/internal/protocol"
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// wsConn owns all writes to a websocket. Messages are queued by Send and
// written in order by writePump.
type wsConn struct {
	conn      *websocket.Conn
	send      chan *protocol.Output
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, bufferSize int) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan *protocol.Output, bufferSize),
		done: make(chan struct{}),
	}
}

// Send never blocks. A member that falls a full buffer behind is disconnected
// and gets a fresh init when it joins again.
func (w *wsConn) Send(out *protocol.Output) error {
	select {
	case <-w.done:
		return ErrConnClosed
	default:
	}

	select {
	case w.send <- out:
		return nil
	default:
		w.close()
		return ErrSendBufferFull
	}
}

func (w *wsConn) close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}

func (c controller) writePump(ctx context.Context, w *wsConn) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()
	defer w.close()

	for {
		select {
		case <-w.done:
			return
		case out := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := w.conn.WriteJSON(out); err != nil {
				c.logger.DebugContext(ctx, "failed to write message", "type", out.Type, "error", err)
				return
			}
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				c.logger.DebugContext(ctx, "failed to write ping", "error", err)
				return
			}
		}
	}
}
