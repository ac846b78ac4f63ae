package strategy

import "github.com/wricardo/battlesnake-agent/game/protocol"

// NoSafeMove is returned by SafeMove when every direction is deadly
const NoSafeMove = protocol.Right

// SafeMove picks a direction that keeps the snake on the board and out of
// every body. Among safe directions it avoids hazards and cells a snake of
// equal or greater length could also enter, then prefers the cell with the
// most free neighbours. Ties go to the first direction in protocol.Directions.
func SafeMove(req *protocol.MoveRequest) protocol.Direction {
	if req == nil {
		return NoSafeMove
	}
	board := req.Board
	head := req.HeadPosition()
	occupied := board.Occupied()

	hazards := make(map[protocol.Position]struct{}, len(board.Hazards))
	for _, p := range board.Hazards {
		hazards[p] = struct{}{}
	}

	contested := make(map[protocol.Position]struct{})
	myLength := req.You.BodyLength()
	for _, s := range board.Snakes {
		if s.ID == req.You.ID || s.BodyLength() < myLength {
			continue
		}
		for _, d := range protocol.Directions {
			contested[d.Apply(s.HeadPosition())] = struct{}{}
		}
	}

	free := func(p protocol.Position) bool {
		if !board.Contains(p) {
			return false
		}
		_, taken := occupied[p]
		return !taken
	}

	best := NoSafeMove
	bestScore := -1
	for _, d := range protocol.Directions {
		next := d.Apply(head)
		if !free(next) {
			continue
		}
		score := 0
		for _, n := range protocol.Directions {
			if free(n.Apply(next)) {
				score++
			}
		}
		if _, ok := contested[next]; !ok {
			score += 10
		}
		if _, ok := hazards[next]; !ok {
			score += 5
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}
