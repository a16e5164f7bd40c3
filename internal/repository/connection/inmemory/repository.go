package inmemory

import (
	"sync"

	"github.com/LFronza/CineLink-sub000/internal/repository/connection"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

type connInfo struct {
	userId string
	roomId string
}

type repo struct {
	connList map[*wsconn.Conn]connInfo
	userList map[string]*wsconn.Conn
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*wsconn.Conn]connInfo),
		userList: make(map[string]*wsconn.Conn),
	}
}

func (r *repo) Add(conn *wsconn.Conn, userId, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connList[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.userList[userId]; ok {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = connInfo{userId: userId, roomId: roomId}
	r.userList[userId] = conn

	return nil
}

func (r *repo) RemoveByConn(conn *wsconn.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.connList[conn]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.userList, info.userId)

	return nil
}

func (r *repo) RemoveByUserId(userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.userList[userId]
	if !ok {
		return connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.userList, userId)

	return nil
}

func (r *repo) GetConn(userId string) (*wsconn.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.userList[userId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetUserId(conn *wsconn.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return info.userId, nil
}

func (r *repo) GetRoomConns(roomId string) []*wsconn.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*wsconn.Conn, 0)
	for conn, info := range r.connList {
		if info.roomId == roomId {
			conns = append(conns, conn)
		}
	}

	return conns
}
