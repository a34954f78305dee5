package lobby

import (
	"log"
	"time"

	"squirrel-server/squirrel"
)

type eviction struct {
	roomID string
	pos    squirrel.Position
}

// StartMonitoring launches the liveness monitor: every interval it
// kicks seats whose last ping is older than the staleness bound and
// closes the rooms they leave behind. A panic inside an iteration is
// logged and stops the monitor; the process keeps running.
func (m *Manager) StartMonitoring() {
	go func() {
		for {
			if !m.monitorPass() {
				log.Printf("[Monitor] Stopped")
				return
			}
		}
	}()
}

func (m *Manager) monitorPass() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Monitor] Pass panicked: %v", r)
			ok = false
		}
	}()

	time.Sleep(m.monitorInterval)

	now := time.Now()
	var toKick []eviction
	for _, room := range m.Rooms() {
		for _, pos := range squirrel.Positions {
			seat := room.Session(pos)
			if seat == nil {
				continue
			}
			if elapsed := now.Sub(seat.LastPing()); elapsed > m.staleAfter {
				log.Printf("[Monitor] Kick: player %s (no ping for %v)", seat.UID(), elapsed.Round(time.Millisecond))
				toKick = append(toKick, eviction{roomID: room.ID, pos: pos})
			}
		}
	}

	closed := make(map[string]bool)
	for _, ev := range toKick {
		if room := m.Room(ev.roomID); room != nil {
			room.Kick(ev.pos)
		}
	}
	for _, ev := range toKick {
		if closed[ev.roomID] {
			continue
		}
		closed[ev.roomID] = true
		m.CloseRoom(ev.roomID, "Timeout")
	}
	return true
}
