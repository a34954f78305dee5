// Package lobby owns the matchmaking queue, the active-room registry,
// player sessions and the liveness monitor.
package lobby

import (
	"errors"
	"log"
	"sync"
	"time"

	"squirrel-server/apps/server/internal/codec"
	"squirrel-server/squirrel"
)

var (
	ErrAlreadyInQueue = errors.New("already in queue")
	ErrAlreadyInGame  = errors.New("already in game")
)

// Manager owns the waiting queue and the room registry. Lock order,
// process-wide: queue → rooms → a room → a session. No path acquires
// in reverse.
type Manager struct {
	queueMu sync.Mutex
	queue   []*PlayerSession

	roomsMu sync.Mutex
	rooms   map[string]*Room

	// Liveness tuning; tests shorten these.
	monitorInterval time.Duration
	staleAfter      time.Duration
}

func New() *Manager {
	return &Manager{
		rooms:           make(map[string]*Room),
		monitorInterval: 5 * time.Second,
		staleAfter:      15 * time.Second,
	}
}

// Join admits a session into the waiting queue, rejecting duplicates by
// uid (queued or already seated), then tries to form a room.
func (m *Manager) Join(session *PlayerSession) error {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	for _, queued := range m.queue {
		if queued.UID() == session.UID() {
			log.Printf("[Lobby] Player %s already in queue", session.UID())
			return ErrAlreadyInQueue
		}
	}
	if m.seated(session.UID()) {
		log.Printf("[Lobby] Player %s already in game", session.UID())
		return ErrAlreadyInGame
	}

	m.queue = append(m.queue, session)
	log.Printf("[Lobby] Player %s added to queue (len=%d)", session.UID(), len(m.queue))

	m.tryStartMatchLocked()
	return nil
}

func (m *Manager) seated(uid string) bool {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	for _, room := range m.rooms {
		if _, ok := room.Seat(uid); ok {
			return true
		}
	}
	return false
}

// tryStartMatchLocked forms rooms while four or more players wait.
// Seats are filled N, E, S, W in dequeue order. Caller holds queueMu.
func (m *Manager) tryStartMatchLocked() {
	for len(m.queue) >= 4 {
		seats := make(map[squirrel.Position]*PlayerSession, 4)
		for i, pos := range squirrel.Positions {
			seats[pos] = m.queue[i]
		}
		m.queue = append([]*PlayerSession(nil), m.queue[4:]...)

		room := newRoom(seats, squirrel.NewEngine(squirrel.VariantSquirrel))

		m.roomsMu.Lock()
		m.rooms[room.ID] = room
		m.roomsMu.Unlock()

		for pos, session := range seats {
			session.Send(codec.GameStart(room.ID, pos))
		}
		room.DealOut()
		log.Printf("[Lobby] Room %s started", room.ID)
	}
}

// FindByUID scans active rooms' seats, then the queue.
func (m *Manager) FindByUID(uid string) *PlayerSession {
	m.roomsMu.Lock()
	for _, room := range m.rooms {
		if pos, ok := room.Seat(uid); ok {
			s := room.Session(pos)
			m.roomsMu.Unlock()
			return s
		}
	}
	m.roomsMu.Unlock()

	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for _, queued := range m.queue {
		if queued.UID() == uid {
			return queued
		}
	}
	return nil
}

// BindSession rebinds the existing session for uid to a new outbound
// channel, or creates a fresh session when the manager holds none.
// Reports whether an existing session was rebound.
func (m *Manager) BindSession(uid, username string, outbound chan codec.Event) (*PlayerSession, bool) {
	if existing := m.FindByUID(uid); existing != nil {
		existing.Bind(outbound)
		log.Printf("[Lobby] Player %s rebound to new connection", uid)
		return existing, true
	}
	return NewSession(uid, username, outbound), false
}

// RoomOf returns the room and seat of a playing user.
func (m *Manager) RoomOf(uid string) (*Room, squirrel.Position, bool) {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	for _, room := range m.rooms {
		if pos, ok := room.Seat(uid); ok {
			return room, pos, true
		}
	}
	return nil, 0, false
}

// Room looks a room up by id.
func (m *Manager) Room(id string) *Room {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	return m.rooms[id]
}

// Rooms snapshots the registry for iteration outside the lock.
func (m *Manager) Rooms() []*Room {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, room)
	}
	return out
}

// QueueLen reports how many players are waiting.
func (m *Manager) QueueLen() int {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	return len(m.queue)
}

// CloseRoom removes a room from the registry and tells every seat why.
// game_close is the last event a closing room's seats receive.
func (m *Manager) CloseRoom(roomID, reason string) {
	m.roomsMu.Lock()
	room, ok := m.rooms[roomID]
	if ok {
		delete(m.rooms, roomID)
	}
	m.roomsMu.Unlock()

	if !ok {
		return
	}
	room.Broadcast(codec.GameClose(reason))
	log.Printf("[Lobby] Room %s closed: %s", roomID, reason)
}
