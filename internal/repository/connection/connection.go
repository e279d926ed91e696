package connection

import (
	"errors"

	"github.com/sharetube/lockstep/internal/protocol"
)

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// Sender queues an outbound message for a single client without blocking.
type Sender interface {
	Send(out *protocol.Output) error
}
