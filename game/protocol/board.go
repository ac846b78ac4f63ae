package protocol

// Origin is the bottom-left cell of every board.
var Origin = Position{X: 0, Y: 0}

// Center returns the middle cell, rounding toward the origin on even sides.
func (b Board) Center() Position {
	return Position{X: centerOf(b.Width), Y: centerOf(b.Height)}
}

func centerOf(n int) int {
	if n%2 == 0 {
		return n/2 - 1
	}
	return (n+1)/2 - 1
}

// UpperLeft, UpperRight, LowerRight and LowerLeft name the board corners.
func (b Board) UpperLeft() Position  { return Position{X: 0, Y: b.Height - 1} }
func (b Board) UpperRight() Position { return Position{X: b.Width - 1, Y: b.Height - 1} }
func (b Board) LowerRight() Position { return Position{X: b.Width - 1, Y: 0} }
func (b Board) LowerLeft() Position  { return Origin }

// Contains reports whether p lies on the board.
func (b Board) Contains(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < b.Width && p.Y < b.Height
}

// Occupied returns every cell covered by a snake body. Tails are skipped
// because they move away on the next turn unless the snake has just eaten,
// in which case the stacked segment still marks the cell.
func (b Board) Occupied() map[Position]struct{} {
	cells := make(map[Position]struct{})
	for _, s := range b.Snakes {
		n := len(s.Body)
		for i, p := range s.Body {
			if i == n-1 && n > 1 && s.Body[n-2] != p {
				continue
			}
			cells[p] = struct{}{}
		}
	}
	return cells
}
