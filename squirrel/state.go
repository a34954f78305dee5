package squirrel

import (
	"math/rand"

	"squirrel-server/card"
)

// MatchTarget is the eye total that ends a match.
const MatchTarget = 12

// lastTrickBonus is the Belote "dix de der": the side taking the final
// trick of a round collects ten extra points, bringing a round to 162.
const lastTrickBonus = 10

// PlayedCard is one entry of the current trick.
type PlayedCard struct {
	Position Position
	Card     card.Card
}

// GameState is the authoritative per-room state. It is not safe for
// concurrent use; the owning room serialises access behind its lock.
type GameState struct {
	hands       map[Position][]card.Card
	trump       card.Suit
	trick       []PlayedCard
	teamScores  map[int]int
	teamEye     map[int]int
	currentTurn Position
	firstRound  bool
	tricksDone  int

	rng *rand.Rand
}

// NewGameState deals a fresh 32-card round with the given trump.
// North leads the first trick.
func NewGameState(trump card.Suit, rng *rand.Rand) *GameState {
	s := &GameState{
		hands:       make(map[Position][]card.Card, 4),
		trump:       trump,
		teamScores:  map[int]int{1: 0, 2: 0},
		teamEye:     map[int]int{1: 0, 2: 0},
		currentTurn: North,
		firstRound:  true,
		rng:         rng,
	}
	dealt := card.Deal(rng)
	for i, pos := range Positions {
		s.hands[pos] = dealt[i]
	}
	return s
}

// NewGameStateWithHands builds a state from explicit hands, for rigged
// deals (tests, future bid/reveal protocols). The leader takes the
// first turn.
func NewGameStateWithHands(trump card.Suit, hands map[Position][]card.Card, leader Position) *GameState {
	s := &GameState{
		hands:       make(map[Position][]card.Card, 4),
		trump:       trump,
		teamScores:  map[int]int{1: 0, 2: 0},
		teamEye:     map[int]int{1: 0, 2: 0},
		currentTurn: leader,
		firstRound:  true,
		rng:         rand.New(rand.NewSource(1)),
	}
	for pos, h := range hands {
		s.hands[pos] = append([]card.Card(nil), h...)
	}
	return s
}

func (s *GameState) Trump() card.Suit       { return s.trump }
func (s *GameState) SetTrump(t card.Suit)   { s.trump = t }
func (s *GameState) CurrentTurn() Position  { return s.currentTurn }
func (s *GameState) FirstRound() bool       { return s.firstRound }
func (s *GameState) TricksCompleted() int   { return s.tricksDone }

// Hand returns a copy of the seat's current hand, in deal/display order.
func (s *GameState) Hand(pos Position) []card.Card {
	return append([]card.Card(nil), s.hands[pos]...)
}

// Trick returns a copy of the current (possibly partial) trick.
func (s *GameState) Trick() []PlayedCard {
	return append([]PlayedCard(nil), s.trick...)
}

// TeamScores returns the card points of the current round per team.
func (s *GameState) TeamScores() map[int]int {
	return map[int]int{1: s.teamScores[1], 2: s.teamScores[2]}
}

// TeamEye returns the accumulated eyes per team.
func (s *GameState) TeamEye() map[int]int {
	return map[int]int{1: s.teamEye[1], 2: s.teamEye[2]}
}

// PlayCard applies one move. It fails without mutating state when the
// seat is out of turn, does not hold the card, or could follow the lead
// suit but did not. There is no over-trump obligation.
func (s *GameState) PlayCard(pos Position, c card.Card) error {
	if pos != s.currentTurn {
		return ErrNotYourTurn
	}

	hand := s.hands[pos]
	idx := -1
	for i, hc := range hand {
		if hc == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCardNotInHand
	}

	if len(s.trick) > 0 {
		lead := s.trick[0].Card.Suit
		if c.Suit != lead && holdsSuit(hand, lead) {
			return ErrMustFollowSuit
		}
	}

	s.hands[pos] = append(hand[:idx:idx], hand[idx+1:]...)
	s.trick = append(s.trick, PlayedCard{Position: pos, Card: c})
	s.currentTurn = pos.Next()
	return nil
}

func holdsSuit(hand []card.Card, suit card.Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// ResolveTrick settles a complete trick: it picks the winner, credits
// the trick's points (plus the last-trick bonus when the round's cards
// are exhausted), clears the trick and hands the lead to the winner.
// It reports false while the trick is still short of four cards.
func (s *GameState) ResolveTrick() (Position, bool) {
	if len(s.trick) != 4 {
		return 0, false
	}

	lead := s.trick[0].Card.Suit
	winner := s.trick[0]
	for _, pc := range s.trick[1:] {
		if s.beats(pc.Card, winner.Card, lead) {
			winner = pc
		}
	}

	points := 0
	for _, pc := range s.trick {
		points += pc.Card.Points(s.trump)
	}
	if s.handsEmpty() {
		points += lastTrickBonus
	}
	s.teamScores[winner.Position.Team()] += points

	s.trick = s.trick[:0]
	s.tricksDone++
	s.currentTurn = winner.Position
	return winner.Position, true
}

// beats reports whether a outranks b within a trick. Cards compare by
// (class, jack priority, rank), larger wins; the first card played wins
// ties, which cannot occur between distinct cards of one deck.
func (s *GameState) beats(a, b card.Card, lead card.Suit) bool {
	ca, cb := s.classOf(a, lead), s.classOf(b, lead)
	if ca != cb {
		return ca > cb
	}
	if a.JackPriority() != b.JackPriority() {
		return a.JackPriority() > b.JackPriority()
	}
	return a.Rank > b.Rank
}

// classOf buckets a card for trick comparison: Jacks above everything,
// then trump, then the lead suit, then the rest.
func (s *GameState) classOf(c card.Card, lead card.Suit) int {
	switch {
	case c.Rank == card.Jack:
		return 3
	case c.Suit == s.trump:
		return 2
	case c.Suit == lead:
		return 1
	}
	return 0
}

func (s *GameState) handsEmpty() bool {
	for _, h := range s.hands {
		if len(h) > 0 {
			return false
		}
	}
	return true
}

// RoundOver reports whether all 32 cards of the round are played out.
func (s *GameState) RoundOver() bool {
	return len(s.trick) == 0 && s.handsEmpty()
}

// UpdateEyeAfterRound converts the round's card points into eyes.
// A 60–60 round is a draw and awards nothing. The winner takes one eye,
// plus one on the opening round, plus one when the loser stayed under 30.
func (s *GameState) UpdateEyeAfterRound() (int, bool) {
	a, b := s.teamScores[1], s.teamScores[2]
	if a == b {
		return 0, false
	}

	winner, loserScore := 1, b
	if b > a {
		winner, loserScore = 2, a
	}

	eyes := 1
	if s.firstRound {
		eyes++
	}
	if loserScore < 30 {
		eyes++
	}
	s.teamEye[winner] += eyes
	s.firstRound = false
	return winner, true
}

// Redeal replaces all hands with a fresh shuffle. The current trick must
// already be settled.
func (s *GameState) Redeal() error {
	if len(s.trick) != 0 {
		return ErrInvalidState("redeal with open trick")
	}
	dealt := card.Deal(s.rng)
	for i, pos := range Positions {
		s.hands[pos] = dealt[i]
	}
	s.tricksDone = 0
	return nil
}

// ResetScores zeroes the per-round card points.
func (s *GameState) ResetScores() {
	s.teamScores[1] = 0
	s.teamScores[2] = 0
}

// MatchWinner reports the team that reached the eye target, if any.
func (s *GameState) MatchWinner() (int, bool) {
	if s.teamEye[1] >= MatchTarget {
		return 1, true
	}
	if s.teamEye[2] >= MatchTarget {
		return 2, true
	}
	return 0, false
}

// PrimeEyes seeds the eye counters and first-round flag, for resuming
// or rigging a match in progress.
func (s *GameState) PrimeEyes(team1, team2 int, firstRound bool) {
	s.teamEye[1] = team1
	s.teamEye[2] = team2
	s.firstRound = firstRound
}
