package inmemory

import (
	"log/slog"
	"sync"

	"github.com/sharetube/lockstep/internal/repository/connection"
)

type repo struct {
	connList map[connection.Sender]string
	idList   map[string]connection.Sender
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		connList: make(map[connection.Sender]string),
		idList:   make(map[string]connection.Sender),
		logger:   logger,
	}
}

func (r *repo) Add(conn connection.Sender, memberId string) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "member_id", memberId)
	if _, ok := r.connList[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.idList[memberId]; ok {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = memberId
	r.idList[memberId] = conn

	return nil
}

func (r *repo) RemoveByMemberId(memberId string) (connection.Sender, error) {
	funcName := "connection.inmemory.RemoveByMemberId"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "member_id", memberId)
	conn, ok := r.idList[memberId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, memberId)

	return conn, nil
}

func (r *repo) GetMemberId(conn connection.Sender) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberId, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return memberId, nil
}

func (r *repo) GetConn(memberId string) (connection.Sender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[memberId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.idList)
}
