package wsrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[json.RawMessage]) HandlerFunc[json.RawMessage]

// ErrorHandler is called with every error returned by a handler. Returning a non-nil
// error stops ServeConn.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error) error

type WSRouter struct {
	routes       map[string]HandlerFunc[json.RawMessage]
	middlewares  []Middleware
	errorHandler ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{
		routes: make(map[string]HandlerFunc[json.RawMessage]),
		errorHandler: func(context.Context, *websocket.Conn, error) error {
			return nil
		},
	}
}

func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *WSRouter) OnError(h ErrorHandler) {
	r.errorHandler = h
}

// Handle registers handler for messageType, decoding the payload into T.
// A missing or null payload leaves T at its zero value.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) error {
		var payload T
		if len(raw) != 0 && !bytes.Equal(raw, []byte("null")) {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
		}

		return handler(ctx, conn, payload)
	}
}

func (r *WSRouter) Dispatch(ctx context.Context, conn *websocket.Conn, messageType string, payload json.RawMessage) error {
	handler, ok := r.routes[messageType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, messageType)
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	return handler(context.WithValue(ctx, messageTypeKey, messageType), conn, payload)
}

// ServeConn reads messages until the connection fails or the error handler gives up.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if err := r.Dispatch(ctx, conn, msg.Type, msg.Payload); err != nil {
			if err := r.errorHandler(context.WithValue(ctx, messageTypeKey, msg.Type), conn, err); err != nil {
				return err
			}
		}
	}
}
