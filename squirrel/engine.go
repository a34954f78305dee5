package squirrel

import (
	"math/rand"
	"time"

	"squirrel-server/card"
)

// Variant tags a rule set. New rule sets are added as cases here, not
// as new engine types.
type Variant byte

const (
	VariantSquirrel Variant = iota
)

func (v Variant) String() string {
	switch v {
	case VariantSquirrel:
		return "squirrel"
	}
	return "unknown"
}

// EventType enumerates the lifecycle notifications an engine receives.
type EventType byte

const (
	EventBeginMatch EventType = iota
	EventCardPlayed
	EventTrickWon
	EventRoundEnd
	EventMatchEnd
)

// Engine owns match setup (deal and initial trump) and observes
// lifecycle events. Today the only variant is Squirrel; the hooks are
// where variant-specific behaviour (bidding, contracts) would attach.
type Engine struct {
	variant Variant
	rng     *rand.Rand
}

func NewEngine(variant Variant) *Engine {
	return NewEngineWithSeed(variant, time.Now().UnixNano())
}

func NewEngineWithSeed(variant Variant, seed int64) *Engine {
	return &Engine{
		variant: variant,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (e *Engine) Variant() Variant { return e.variant }

// RandomTrump picks the next round's trump. A stand-in for a real
// bid/reveal protocol.
func (e *Engine) RandomTrump() card.Suit {
	return card.Suits[e.rng.Intn(len(card.Suits))]
}

// StartMatch deals a fresh state with a randomly chosen trump.
func (e *Engine) StartMatch() *GameState {
	state := NewGameState(e.RandomTrump(), e.rng)
	e.OnEvent(EventBeginMatch, state)
	return state
}

// OnEvent dispatches a lifecycle event to the active variant. The
// Squirrel variant needs no reaction today.
func (e *Engine) OnEvent(ev EventType, state *GameState) {
	switch e.variant {
	case VariantSquirrel:
		// No per-event behaviour yet.
	}
}
