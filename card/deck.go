package card

import "math/rand"

// DeckSize is the full Squirrel deck: 7..A in every suit.
const DeckSize = 32

// HandSize is the per-seat share of a deal.
const HandSize = DeckSize / 4

// NewDeck builds the 32-card deck in suit-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle permutes the deck in place.
func Shuffle(deck []Card, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// Deal shuffles a fresh deck and partitions it into four hands of eight,
// in deal order: hands[0] is the first seat dealt.
func Deal(rng *rand.Rand) [4][]Card {
	deck := NewDeck()
	Shuffle(deck, rng)

	var hands [4][]Card
	for i := range hands {
		hands[i] = make([]Card, HandSize)
		copy(hands[i], deck[i*HandSize:(i+1)*HandSize])
	}
	return hands
}
