package squirrel

import (
	"errors"
	"math/rand"
	"testing"

	"squirrel-server/card"
)

func TestPlayOutOfTurnRejected(t *testing.T) {
	s := singleCardState(card.Hearts,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)

	err := s.PlayCard(East, card.Card{Suit: card.Clubs, Rank: card.Ten})
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if len(s.Hand(East)) != 1 {
		t.Fatalf("rejected move must not mutate the hand")
	}
	if len(s.Trick()) != 0 {
		t.Fatalf("rejected move must not mutate the trick")
	}
}

func TestPlayCardNotInHandRejected(t *testing.T) {
	s := singleCardState(card.Hearts,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)

	err := s.PlayCard(North, card.Card{Suit: card.Spades, Rank: card.Ace})
	if !errors.Is(err, ErrCardNotInHand) {
		t.Fatalf("expected ErrCardNotInHand, got %v", err)
	}
}

func TestMustFollowSuit(t *testing.T) {
	s := NewGameStateWithHands(card.Spades, map[Position][]card.Card{
		North: {{Suit: card.Hearts, Rank: card.Ace}},
		East:  {{Suit: card.Hearts, Rank: card.Seven}, {Suit: card.Diamonds, Rank: card.Ace}},
		South: {{Suit: card.Hearts, Rank: card.Eight}},
		West:  {{Suit: card.Hearts, Rank: card.Nine}},
	}, North)

	play(t, s, card.Card{Suit: card.Hearts, Rank: card.Ace})

	err := s.PlayCard(East, card.Card{Suit: card.Diamonds, Rank: card.Ace})
	if !errors.Is(err, ErrMustFollowSuit) {
		t.Fatalf("expected ErrMustFollowSuit, got %v", err)
	}
	if err := s.PlayCard(East, card.Card{Suit: card.Hearts, Rank: card.Seven}); err != nil {
		t.Fatalf("following suit must be accepted: %v", err)
	}
}

func TestResolveTrickRequiresFourCards(t *testing.T) {
	s := singleCardState(card.Hearts,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)
	play(t, s, card.Card{Suit: card.Clubs, Rank: card.Ace})

	if _, done := s.ResolveTrick(); done {
		t.Fatalf("a one-card trick must not resolve")
	}
}

func TestEyeAwardFirstRoundSweep(t *testing.T) {
	s := singleCardState(card.Hearts,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)
	play(t, s,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)
	s.ResolveTrick()

	winner, awarded := s.UpdateEyeAfterRound()
	if !awarded || winner != 1 {
		t.Fatalf("expected team 1 to take the round, got winner=%d awarded=%v", winner, awarded)
	}
	// Base eye, first-round eye, loser-under-30 eye.
	if got := s.TeamEye()[1]; got != 3 {
		t.Fatalf("expected 3 eyes, got %d", got)
	}
	if s.FirstRound() {
		t.Fatalf("first-round flag must clear after an awarded round")
	}
}

func TestEyeAwardLaterRoundCloseScores(t *testing.T) {
	s := NewGameStateWithHands(card.Clubs, map[Position][]card.Card{
		North: {{Suit: card.Clubs, Rank: card.Jack}, {Suit: card.Hearts, Rank: card.Seven}},
		East:  {{Suit: card.Clubs, Rank: card.Nine}, {Suit: card.Hearts, Rank: card.Ace}},
		South: {{Suit: card.Clubs, Rank: card.Ace}, {Suit: card.Hearts, Rank: card.Ten}},
		West:  {{Suit: card.Clubs, Rank: card.Ten}, {Suit: card.Hearts, Rank: card.King}},
	}, North)
	s.PrimeEyes(0, 0, false)

	// North's club jack sweeps the trump trick: 20+14+11+10 = 55 for team 1.
	play(t, s,
		card.Card{Suit: card.Clubs, Rank: card.Jack},
		card.Card{Suit: card.Clubs, Rank: card.Nine},
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
	)
	if winner, done := s.ResolveTrick(); !done || winner != North {
		t.Fatalf("expected north to win the trump trick, got %v %v", winner, done)
	}

	// East's heart ace takes the rest: 11+10+4 plus the last-trick ten = 35.
	play(t, s,
		card.Card{Suit: card.Hearts, Rank: card.Seven},
		card.Card{Suit: card.Hearts, Rank: card.Ace},
		card.Card{Suit: card.Hearts, Rank: card.Ten},
		card.Card{Suit: card.Hearts, Rank: card.King},
	)
	if winner, done := s.ResolveTrick(); !done || winner != East {
		t.Fatalf("expected east to win the second trick, got %v %v", winner, done)
	}

	scores := s.TeamScores()
	if scores[1] != 55 || scores[2] != 35 {
		t.Fatalf("expected 55:35, got %d:%d", scores[1], scores[2])
	}

	winner, awarded := s.UpdateEyeAfterRound()
	if !awarded || winner != 1 {
		t.Fatalf("expected team 1 to take the round, got winner=%d awarded=%v", winner, awarded)
	}
	// Loser reached 30 and it was not the opening round: a single eye.
	if got := s.TeamEye()[1]; got != 1 {
		t.Fatalf("expected 1 eye, got %d", got)
	}
}

func TestEyeDrawAwardsNothing(t *testing.T) {
	s := NewGameStateWithHands(card.Hearts, map[Position][]card.Card{
		North: {{Suit: card.Clubs, Rank: card.Ace}, {Suit: card.Diamonds, Rank: card.Seven}},
		East:  {{Suit: card.Clubs, Rank: card.Ten}, {Suit: card.Diamonds, Rank: card.Ace}},
		South: {{Suit: card.Clubs, Rank: card.Eight}, {Suit: card.Diamonds, Rank: card.Eight}},
		West:  {{Suit: card.Clubs, Rank: card.Nine}, {Suit: card.Diamonds, Rank: card.Nine}},
	}, North)

	// Team 1 takes 21, team 2 takes 11 plus the last-trick ten: 21 each.
	play(t, s,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.Eight},
		card.Card{Suit: card.Clubs, Rank: card.Nine},
	)
	s.ResolveTrick()
	play(t, s,
		card.Card{Suit: card.Diamonds, Rank: card.Seven},
		card.Card{Suit: card.Diamonds, Rank: card.Ace},
		card.Card{Suit: card.Diamonds, Rank: card.Eight},
		card.Card{Suit: card.Diamonds, Rank: card.Nine},
	)
	s.ResolveTrick()

	scores := s.TeamScores()
	if scores[1] != scores[2] {
		t.Fatalf("rig broken: expected a drawn round, got %d:%d", scores[1], scores[2])
	}

	if winner, awarded := s.UpdateEyeAfterRound(); awarded {
		t.Fatalf("a drawn round must award nothing, got winner=%d", winner)
	}
	eyes := s.TeamEye()
	if eyes[1] != 0 || eyes[2] != 0 {
		t.Fatalf("expected 0:0 eyes, got %d:%d", eyes[1], eyes[2])
	}
	if !s.FirstRound() {
		t.Fatalf("a drawn round must keep the first-round flag")
	}
}

func TestRedealRequiresSettledTrick(t *testing.T) {
	s := singleCardState(card.Hearts,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)
	play(t, s, card.Card{Suit: card.Clubs, Rank: card.Ace})

	if err := s.Redeal(); err == nil {
		t.Fatalf("redeal with an open trick must fail")
	}

	play(t, s,
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)
	s.ResolveTrick()

	if err := s.Redeal(); err != nil {
		t.Fatalf("redeal after a settled trick failed: %v", err)
	}
	for _, pos := range Positions {
		if got := len(s.Hand(pos)); got != card.HandSize {
			t.Fatalf("%v holds %d cards after redeal, want %d", pos, got, card.HandSize)
		}
	}
	if s.TricksCompleted() != 0 {
		t.Fatalf("redeal must reset the trick counter")
	}
}

func TestMatchWinnerAtTarget(t *testing.T) {
	s := singleCardState(card.Hearts,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)
	s.PrimeEyes(11, 0, false)

	if _, over := s.MatchWinner(); over {
		t.Fatalf("11 eyes must not end the match")
	}

	play(t, s,
		card.Card{Suit: card.Clubs, Rank: card.Ace},
		card.Card{Suit: card.Clubs, Rank: card.Ten},
		card.Card{Suit: card.Clubs, Rank: card.King},
		card.Card{Suit: card.Clubs, Rank: card.Queen},
	)
	s.ResolveTrick()
	s.UpdateEyeAfterRound()

	winner, over := s.MatchWinner()
	if !over || winner != 1 {
		t.Fatalf("expected team 1 to win the match, got winner=%d over=%v", winner, over)
	}
}

func TestFullRoundTotals(t *testing.T) {
	s := NewGameState(card.Hearts, rand.New(rand.NewSource(3)))

	for !s.RoundOver() {
		pos := s.CurrentTurn()
		hand := s.Hand(pos)
		pick := hand[0]
		if trick := s.Trick(); len(trick) > 0 {
			lead := trick[0].Card.Suit
			for _, c := range hand {
				if c.Suit == lead {
					pick = c
					break
				}
			}
		}
		if err := s.PlayCard(pos, pick); err != nil {
			t.Fatalf("legal move %v rejected: %v", pick, err)
		}
		s.ResolveTrick()
	}

	if s.TricksCompleted() != 8 {
		t.Fatalf("expected 8 tricks, got %d", s.TricksCompleted())
	}
	scores := s.TeamScores()
	if total := scores[1] + scores[2]; total != 162 {
		t.Fatalf("expected a 162-point round, got %d (%d:%d)", total, scores[1], scores[2])
	}

	s.ResetScores()
	scores = s.TeamScores()
	if scores[1] != 0 || scores[2] != 0 {
		t.Fatalf("expected zeroed scores, got %d:%d", scores[1], scores[2])
	}
}
