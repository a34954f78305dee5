package card

import (
	"fmt"
	"strings"
)

// Suit 花色
type Suit byte

const (
	Clubs Suit = iota // ♣️
	Diamonds          // ♦️
	Hearts            // ♥️
	Spades            // ♠️
)

func (s Suit) String() string {
	switch s {
	case Clubs:
		return "clubs"
	case Diamonds:
		return "diamonds"
	case Hearts:
		return "hearts"
	case Spades:
		return "spades"
	}
	return "?"
}

// Suits in a fixed iteration order.
var Suits = [4]Suit{Clubs, Diamonds, Hearts, Spades}

// ParseSuit accepts the wire's short suit form: c, d, h, s (any case).
func ParseSuit(raw string) (Suit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "c":
		return Clubs, nil
	case "d":
		return Diamonds, nil
	case "h":
		return Hearts, nil
	case "s":
		return Spades, nil
	}
	return 0, fmt.Errorf("invalid suit: %q", raw)
}

// Rank 牌面值. Values follow the natural order Seven < ... < Ace so the
// raw byte compares correctly inside the trick comparator.
type Rank byte

const (
	Seven Rank = iota + 7
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

func (r Rank) String() string {
	switch r {
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "10"
	case Jack:
		return "j"
	case Queen:
		return "q"
	case King:
		return "k"
	case Ace:
		return "a"
	}
	return "?"
}

// Ranks in ascending order.
var Ranks = [8]Rank{Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// ParseRank accepts the wire's rank form: 7, 8, 9, 10, j, q, k, a (any case).
func ParseRank(raw string) (Rank, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "7":
		return Seven, nil
	case "8":
		return Eight, nil
	case "9":
		return Nine, nil
	case "10":
		return Ten, nil
	case "j":
		return Jack, nil
	case "q":
		return Queen, nil
	case "k":
		return King, nil
	case "a":
		return Ace, nil
	}
	return 0, fmt.Errorf("invalid rank: %q", raw)
}

// Card is a (suit, rank) pair; equality is structural.
type Card struct {
	Suit Suit
	Rank Rank
}

func (c Card) String() string {
	return c.Rank.String() + c.suitGlyph()
}

func (c Card) suitGlyph() string {
	switch c.Suit {
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	case Hearts:
		return "♥"
	case Spades:
		return "♠"
	}
	return "?"
}

// Points returns the card's point value under the given trump.
//
// Ace 11, Ten 10, King 4, Queen 3. The Jack is worth 20 in trump and 2
// otherwise; the Nine is worth 14 in trump and 0 otherwise. The schedule
// sums to 152 over a full deal; the last trick's +10 brings a round to 162.
func (c Card) Points(trump Suit) int {
	switch c.Rank {
	case Ace:
		return 11
	case Ten:
		return 10
	case King:
		return 4
	case Queen:
		return 3
	case Jack:
		if c.Suit == trump {
			return 20
		}
		return 2
	case Nine:
		if c.Suit == trump {
			return 14
		}
		return 0
	}
	return 0
}

// JackPriority orders Jacks against each other: Clubs > Diamonds >
// Hearts > Spades. Zero for anything that is not a Jack.
func (c Card) JackPriority() int {
	if c.Rank != Jack {
		return 0
	}
	switch c.Suit {
	case Clubs:
		return 4
	case Diamonds:
		return 3
	case Hearts:
		return 2
	case Spades:
		return 1
	}
	return 0
}
