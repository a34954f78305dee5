package lobby

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"squirrel-server/apps/server/internal/codec"
	"squirrel-server/card"
	"squirrel-server/squirrel"
)

// Room binds four seated sessions to one game state. All state access
// is serialised behind the room's lock; outbound traffic goes through
// each seat's session channel.
type Room struct {
	ID string

	mu     sync.Mutex
	seats  map[squirrel.Position]*PlayerSession
	state  *squirrel.GameState
	engine *squirrel.Engine
}

func newRoom(seats map[squirrel.Position]*PlayerSession, engine *squirrel.Engine) *Room {
	return &Room{
		ID:     uuid.NewString(),
		seats:  seats,
		state:  engine.StartMatch(),
		engine: engine,
	}
}

// Seat returns the position a user occupies, if any.
func (r *Room) Seat(uid string) (squirrel.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pos, s := range r.seats {
		if s.UID() == uid {
			return pos, true
		}
	}
	return 0, false
}

// Session returns the seated session for a position.
func (r *Room) Session(pos squirrel.Position) *PlayerSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seats[pos]
}

// Sessions returns the four seated sessions.
func (r *Room) Sessions() []*PlayerSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PlayerSession, 0, len(r.seats))
	for _, s := range r.seats {
		out = append(out, s)
	}
	return out
}

// Broadcast fans an event out to every seat.
func (r *Room) Broadcast(ev codec.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(ev)
}

func (r *Room) broadcastLocked(ev codec.Event) {
	for _, s := range r.seats {
		s.Send(ev)
	}
}

// Kick marks a seat disconnected and tells the other three. Game state
// is untouched; whether the room survives is the manager's call.
func (r *Room) Kick(pos squirrel.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seats[pos]
	if !ok {
		return
	}
	seat.MarkDisconnected()
	for other, s := range r.seats {
		if other != pos {
			s.Send(codec.PlayerDisconnected(pos))
		}
	}
}

// DealOut sends each seat its opening hand and tells the leader to act.
// Called once right after the room is formed.
func (r *Room) DealOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dealOutLocked()
}

func (r *Room) dealOutLocked() {
	for pos, s := range r.seats {
		s.Send(codec.YourHand(r.state.Hand(pos)))
	}
	r.seats[r.state.CurrentTurn()].Send(codec.YourTurn())
}

// Refresh re-sends a single seat its hand (and turn prompt when it is
// on the move). Used after a reconnect rebind.
func (r *Room) Refresh(pos squirrel.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seats[pos]
	if !ok {
		return
	}
	seat.Send(codec.YourHand(r.state.Hand(pos)))
	if r.state.CurrentTurn() == pos {
		seat.Send(codec.YourTurn())
	}
}

// PlayCard applies one move and drives everything that follows from it:
// trick resolution, the round boundary (eyes, fresh trump, redeal) and
// match termination. It reports whether the match ended; the caller is
// responsible for closing a finished room.
func (r *Room) PlayCard(pos squirrel.Position, c card.Card) (matchOver bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.PlayCard(pos, c); err != nil {
		return false, err
	}
	r.engine.OnEvent(squirrel.EventCardPlayed, r.state)
	r.broadcastLocked(codec.CardPlayed(pos, c))

	winner, done := r.state.ResolveTrick()
	if !done {
		r.seats[r.state.CurrentTurn()].Send(codec.YourTurn())
		return false, nil
	}
	r.engine.OnEvent(squirrel.EventTrickWon, r.state)
	r.broadcastLocked(codec.TrickWon(winner))

	if !r.state.RoundOver() {
		r.seats[winner].Send(codec.YourTurn())
		return false, nil
	}

	// Round boundary: eyes, a new trump, a new deal.
	r.engine.OnEvent(squirrel.EventRoundEnd, r.state)
	finalScores := r.state.TeamScores()
	r.state.UpdateEyeAfterRound()
	r.state.SetTrump(r.engine.RandomTrump())
	if err := r.state.Redeal(); err != nil {
		log.Printf("[Room %s] Redeal failed: %v", r.ID, err)
		return false, err
	}
	r.state.ResetScores()

	eyes := r.state.TeamEye()
	r.broadcastLocked(codec.EyeUpdated(eyes[1], eyes[2]))
	r.broadcastLocked(codec.TrumpUpdated(r.state.Trump()))
	r.dealOutLocked()

	if _, over := r.state.MatchWinner(); over {
		r.engine.OnEvent(squirrel.EventMatchEnd, r.state)
		r.broadcastLocked(codec.GameOver(finalScores))
		log.Printf("[Room %s] Match over, eyes %d:%d", r.ID, eyes[1], eyes[2])
		return true, nil
	}
	return false, nil
}

// State exposes the room's game state for in-package tests.
func (r *Room) State() *squirrel.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
