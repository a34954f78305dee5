package lobby

import (
	"errors"
	"testing"

	"squirrel-server/apps/server/internal/codec"
	"squirrel-server/squirrel"
)

func drain(ch chan codec.Event) []codec.Event {
	var out []codec.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasEvent[T any](events []codec.Event) (T, bool) {
	for _, ev := range events {
		if typed, ok := ev.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func newTestPlayer(uid string) (*PlayerSession, chan codec.Event) {
	ch := make(chan codec.Event, 32)
	return NewSession(uid, uid, ch), ch
}

func TestFourPlayersFormRoom(t *testing.T) {
	m := New()

	uids := []string{"p1", "p2", "p3", "p4"}
	chans := make(map[string]chan codec.Event, 4)
	for i, uid := range uids {
		session, ch := newTestPlayer(uid)
		chans[uid] = ch
		if err := m.Join(session); err != nil {
			t.Fatalf("join %s failed: %v", uid, err)
		}
		if i < 3 {
			if got := m.QueueLen(); got != i+1 {
				t.Fatalf("expected queue length %d, got %d", i+1, got)
			}
			if len(m.Rooms()) != 0 {
				t.Fatalf("room formed with only %d players", i+1)
			}
		}
	}

	if got := m.QueueLen(); got != 0 {
		t.Fatalf("expected drained queue, got %d", got)
	}
	rooms := m.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("expected one room, got %d", len(rooms))
	}

	for _, uid := range uids {
		events := drain(chans[uid])
		start, ok := hasEvent[codec.GameStartEvent](events)
		if !ok {
			t.Fatalf("%s missed game_start", uid)
		}
		if start.RoomID != rooms[0].ID {
			t.Fatalf("%s got room %s, want %s", uid, start.RoomID, rooms[0].ID)
		}
		hand, ok := hasEvent[codec.YourHandEvent](events)
		if !ok {
			t.Fatalf("%s missed your_hand", uid)
		}
		if len(hand.Cards) != 8 {
			t.Fatalf("%s dealt %d cards, want 8", uid, len(hand.Cards))
		}
		if _, ok := hasEvent[codec.YourTurnEvent](events); ok != (uid == "p1") {
			t.Fatalf("%s your_turn presence = %v, want %v", uid, ok, uid == "p1")
		}
	}

	// Dequeue order fills seats north, east, south, west.
	if pos, ok := rooms[0].Seat("p1"); !ok || pos != squirrel.North {
		t.Fatalf("expected p1 at north, got %v %v", pos, ok)
	}
	if pos, ok := rooms[0].Seat("p4"); !ok || pos != squirrel.West {
		t.Fatalf("expected p4 at west, got %v %v", pos, ok)
	}
}

func TestFifthPlayerWaits(t *testing.T) {
	m := New()
	for _, uid := range []string{"p1", "p2", "p3", "p4", "p5"} {
		session, _ := newTestPlayer(uid)
		if err := m.Join(session); err != nil {
			t.Fatalf("join %s failed: %v", uid, err)
		}
	}
	if got := m.QueueLen(); got != 1 {
		t.Fatalf("expected one waiting player, got %d", got)
	}
	if len(m.Rooms()) != 1 {
		t.Fatalf("expected one room, got %d", len(m.Rooms()))
	}
	if m.FindByUID("p5") == nil {
		t.Fatalf("expected p5 to remain findable in the queue")
	}
}

func TestJoinRejectsDuplicates(t *testing.T) {
	m := New()

	first, _ := newTestPlayer("p1")
	if err := m.Join(first); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	again, _ := newTestPlayer("p1")
	if err := m.Join(again); !errors.Is(err, ErrAlreadyInQueue) {
		t.Fatalf("expected ErrAlreadyInQueue, got %v", err)
	}

	for _, uid := range []string{"p2", "p3", "p4"} {
		session, _ := newTestPlayer(uid)
		if err := m.Join(session); err != nil {
			t.Fatalf("join %s failed: %v", uid, err)
		}
	}

	seated, _ := newTestPlayer("p1")
	if err := m.Join(seated); !errors.Is(err, ErrAlreadyInGame) {
		t.Fatalf("expected ErrAlreadyInGame, got %v", err)
	}
}

func TestFindByUID(t *testing.T) {
	m := New()
	for _, uid := range []string{"p1", "p2", "p3", "p4"} {
		session, _ := newTestPlayer(uid)
		if err := m.Join(session); err != nil {
			t.Fatalf("join %s failed: %v", uid, err)
		}
	}

	if m.FindByUID("p2") == nil {
		t.Fatalf("expected to find a seated player")
	}
	if m.FindByUID("ghost") != nil {
		t.Fatalf("expected nil for an unknown uid")
	}
}

func TestCloseRoomBroadcastsReason(t *testing.T) {
	m := New()
	chans := make(map[string]chan codec.Event, 4)
	for _, uid := range []string{"p1", "p2", "p3", "p4"} {
		session, ch := newTestPlayer(uid)
		chans[uid] = ch
		if err := m.Join(session); err != nil {
			t.Fatalf("join %s failed: %v", uid, err)
		}
	}
	room := m.Rooms()[0]
	for _, ch := range chans {
		drain(ch)
	}

	m.CloseRoom(room.ID, "Timeout")

	if m.Room(room.ID) != nil {
		t.Fatalf("closed room must leave the registry")
	}
	for uid, ch := range chans {
		events := drain(ch)
		closeEv, ok := hasEvent[codec.GameCloseEvent](events)
		if !ok {
			t.Fatalf("%s missed game_close", uid)
		}
		if closeEv.Reason != "Timeout" {
			t.Fatalf("expected reason Timeout, got %q", closeEv.Reason)
		}
		if len(events) != 1 {
			t.Fatalf("game_close must be the last event, %s got %d events", uid, len(events))
		}
	}

	// Closing twice is a no-op.
	m.CloseRoom(room.ID, "Timeout")
}

func TestBindSessionReconnect(t *testing.T) {
	m := New()
	chans := make(map[string]chan codec.Event, 4)
	for _, uid := range []string{"p1", "p2", "p3", "p4"} {
		session, ch := newTestPlayer(uid)
		chans[uid] = ch
		if err := m.Join(session); err != nil {
			t.Fatalf("join %s failed: %v", uid, err)
		}
	}
	room := m.Rooms()[0]
	original := m.FindByUID("p1")
	original.UnbindIf(chans["p1"])
	if original.Connected() {
		t.Fatalf("expected p1 disconnected after unbind")
	}

	fresh := make(chan codec.Event, 32)
	session, rebound := m.BindSession("p1", "p1", fresh)
	if !rebound {
		t.Fatalf("expected the seated session to be rebound")
	}
	if session != original {
		t.Fatalf("rebinding must reuse the seated session")
	}
	if !session.Connected() {
		t.Fatalf("rebound session must be connected")
	}

	pos, ok := room.Seat("p1")
	if !ok {
		t.Fatalf("p1 lost its seat across the reconnect")
	}
	room.Refresh(pos)

	events := drain(fresh)
	hand, ok := hasEvent[codec.YourHandEvent](events)
	if !ok {
		t.Fatalf("refresh must resend the hand")
	}
	if len(hand.Cards) != len(room.State().Hand(pos)) {
		t.Fatalf("refreshed hand has %d cards, state has %d", len(hand.Cards), len(room.State().Hand(pos)))
	}
	if _, ok := hasEvent[codec.YourTurnEvent](events); !ok {
		t.Fatalf("north is on the move and must be re-prompted")
	}
}

func TestBindSessionUnknownUserIsFresh(t *testing.T) {
	m := New()
	ch := make(chan codec.Event, 4)
	session, rebound := m.BindSession("newbie", "newbie", ch)
	if rebound {
		t.Fatalf("unknown uid must not rebind")
	}
	if session.UID() != "newbie" || !session.Connected() {
		t.Fatalf("expected a fresh connected session, got %+v", session)
	}
}
