package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Direction is one of the four moves a snake can make.
// The zero value is not a valid direction.
type Direction uint8

const (
	Up Direction = iota + 1
	Down
	Left
	Right
)

// Directions lists every valid direction in a fixed order.
var Directions = [...]Direction{Up, Down, Left, Right}

// ParseDirection converts the wire form ("up", "DOWN", ...) into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// Apply returns the position one step from p in direction d.
// Up increases y, matching the board orientation of the tournament server.
func (d Direction) Apply(p Position) Position {
	switch d {
	case Up:
		p.Y++
	case Down:
		p.Y--
	case Left:
		p.X--
	case Right:
		p.X++
	}
	return p
}

// MarshalJSON encodes the direction in lowercase wire form.
func (d Direction) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, uint8(d))
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the wire form in any letter case.
func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
