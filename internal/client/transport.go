package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/lockstep/internal/protocol"
)

const writeWait = 10 * time.Second

// Transport carries envelopes between the Session and the relay.
type Transport interface {
	Send(out *protocol.Output) error
	Receive() (protocol.Message, error)
	Close() error
}

type WSTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// WebsocketURL turns the relay base URL into its websocket endpoint.
func WebsocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/ws"

	return u.String(), nil
}

func Dial(ctx context.Context, serverURL string) (*WSTransport, error) {
	wsURL, err := WebsocketURL(serverURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}

	return &WSTransport{conn: conn}, nil
}

func (t *WSTransport) Send(out *protocol.Output) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteJSON(out)
}

func (t *WSTransport) Receive() (protocol.Message, error) {
	var msg protocol.Message
	err := t.conn.ReadJSON(&msg)
	return msg, err
}

func (t *WSTransport) Close() error {
	t.writeMu.Lock()
	t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	t.writeMu.Unlock()

	return t.conn.Close()
}
