// Package codec defines the JSON wire schema of the game socket:
// untagged inbound frames (Auth, otherwise op-discriminated Manage)
// and event-tagged outbound frames.
package codec

import (
	"encoding/json"
	"errors"
	"strings"

	"squirrel-server/card"
	"squirrel-server/squirrel"
)

var ErrInvalidFrame = errors.New("invalid frame")

// KeepaliveByte is the single-byte binary frame clients may send
// instead of a ping to refresh liveness.
const KeepaliveByte = 0x09

const (
	OpFindGame = "find_game"
	OpPlayCard = "play_card"
	OpSub      = "sub"
	OpUnsub    = "unsub"
)

// Auth is the first frame a connection must send.
type Auth struct {
	Token string `json:"token"`
}

// Manage is every other inbound frame, discriminated by Op.
type Manage struct {
	Op   string `json:"op"`
	Rank string `json:"rank,omitempty"`
	Suit string `json:"suit,omitempty"`
}

// Inbound is the decoded form of a text frame: exactly one of the two
// fields is set.
type Inbound struct {
	Auth   *Auth
	Manage *Manage
}

// DecodeInbound matches a text frame against Auth first, then Manage,
// mirroring the untagged union of the protocol.
func DecodeInbound(data []byte) (Inbound, error) {
	var probe struct {
		Token *string `json:"token"`
		Op    *string `json:"op"`
		Rank  string  `json:"rank"`
		Suit  string  `json:"suit"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Inbound{}, ErrInvalidFrame
	}

	if probe.Token != nil {
		return Inbound{Auth: &Auth{Token: *probe.Token}}, nil
	}
	if probe.Op != nil {
		return Inbound{Manage: &Manage{
			Op:   strings.ToLower(strings.TrimSpace(*probe.Op)),
			Rank: probe.Rank,
			Suit: probe.Suit,
		}}, nil
	}
	return Inbound{}, ErrInvalidFrame
}

// Card parses the Manage frame's card fields.
func (m *Manage) Card() (card.Card, error) {
	rank, err := card.ParseRank(m.Rank)
	if err != nil {
		return card.Card{}, err
	}
	suit, err := card.ParseSuit(m.Suit)
	if err != nil {
		return card.Card{}, err
	}
	return card.Card{Suit: suit, Rank: rank}, nil
}

// Event is any outbound frame; all carry an "event" discriminator and
// marshal directly to a text frame.
type Event any

// CardPayload is the wire form of a card.
type CardPayload struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

func cardPayload(c card.Card) CardPayload {
	return CardPayload{Suit: c.Suit.String(), Rank: c.Rank.String()}
}

type SuccessLoginEvent struct {
	Event    string `json:"event"`
	Username string `json:"username"`
}

func SuccessLogin(username string) Event {
	return SuccessLoginEvent{Event: "success_login", Username: username}
}

type GameStartEvent struct {
	Event    string            `json:"event"`
	RoomID   string            `json:"room_id"`
	Position squirrel.Position `json:"position"`
}

func GameStart(roomID string, pos squirrel.Position) Event {
	return GameStartEvent{Event: "game_start", RoomID: roomID, Position: pos}
}

type YourHandEvent struct {
	Event string        `json:"event"`
	Cards []CardPayload `json:"cards"`
}

func YourHand(cards []card.Card) Event {
	payload := make([]CardPayload, len(cards))
	for i, c := range cards {
		payload[i] = cardPayload(c)
	}
	return YourHandEvent{Event: "your_hand", Cards: payload}
}

type YourTurnEvent struct {
	Event string `json:"event"`
}

func YourTurn() Event {
	return YourTurnEvent{Event: "your_turn"}
}

type CardPlayedEvent struct {
	Event    string            `json:"event"`
	Position squirrel.Position `json:"position"`
	Card     CardPayload       `json:"card"`
}

func CardPlayed(pos squirrel.Position, c card.Card) Event {
	return CardPlayedEvent{Event: "card_played", Position: pos, Card: cardPayload(c)}
}

type TrickWonEvent struct {
	Event    string            `json:"event"`
	Position squirrel.Position `json:"position"`
}

func TrickWon(pos squirrel.Position) Event {
	return TrickWonEvent{Event: "trick_won", Position: pos}
}

type EyeUpdatedEvent struct {
	Event string `json:"event"`
	TeamA int    `json:"team_a"`
	TeamB int    `json:"team_b"`
}

func EyeUpdated(teamA, teamB int) Event {
	return EyeUpdatedEvent{Event: "eye_updated", TeamA: teamA, TeamB: teamB}
}

type TrumpUpdatedEvent struct {
	Event string `json:"event"`
	Trump string `json:"trump"`
}

func TrumpUpdated(trump card.Suit) Event {
	return TrumpUpdatedEvent{Event: "trump_updated", Trump: trump.String()}
}

type GameOverEvent struct {
	Event  string      `json:"event"`
	Scores map[int]int `json:"scores"`
}

func GameOver(scores map[int]int) Event {
	return GameOverEvent{Event: "game_over", Scores: scores}
}

type GameCloseEvent struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

func GameClose(reason string) Event {
	return GameCloseEvent{Event: "game_close", Reason: reason}
}

type PlayerDisconnectedEvent struct {
	Event    string            `json:"event"`
	Position squirrel.Position `json:"position"`
}

func PlayerDisconnected(pos squirrel.Position) Event {
	return PlayerDisconnectedEvent{Event: "player_disconnected", Position: pos}
}

type ErrorEvent struct {
	Event  string `json:"event"`
	Detail string `json:"detail"`
}

func Error(detail string) Event {
	return ErrorEvent{Event: "error", Detail: detail}
}
