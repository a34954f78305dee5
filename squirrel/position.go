package squirrel

// Position is a seat within a room. Play proceeds clockwise
// North → East → South → West.
type Position byte

const (
	North Position = iota
	East
	South
	West
)

// Positions in seating/deal order.
var Positions = [4]Position{North, East, South, West}

func (p Position) String() string {
	switch p {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return "?"
}

// Next returns the seat that acts after p.
func (p Position) Next() Position {
	return Position((byte(p) + 1) % 4)
}

// Team returns 1 for the N/S pair and 2 for E/W.
func (p Position) Team() int {
	if p == North || p == South {
		return 1
	}
	return 2
}

// MarshalJSON emits the lowercase seat name used on the wire.
func (p Position) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}
