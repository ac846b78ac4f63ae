package snakes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
	"github.com/wricardo/battlesnake-agent/game/strategy"
)

func state(head protocol.Position, width, height int) protocol.GameState {
	you := protocol.Snake{ID: "me", Body: []protocol.Position{head}}
	return protocol.GameState{
		Game:  protocol.Game{ID: "g1"},
		Board: protocol.Board{Width: width, Height: height, Snakes: []protocol.Snake{you}},
		You:   you,
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name, strategy.Identity{}, nil)
		if err != nil || s == nil {
			t.Errorf("Expected %s to build, got %v", name, err)
		}
	}
	if _, err := New("EXAMPLE", strategy.Identity{}, nil); err != nil {
		t.Errorf("Expected case-insensitive lookup, got %v", err)
	}
	if _, err := New("nope", strategy.Identity{}, nil); !errors.Is(err, ErrUnknownSnake) {
		t.Errorf("Expected ErrUnknownSnake, got %v", err)
	}
}

func TestExample(t *testing.T) {
	s, _ := New("example", strategy.Identity{Color: "#ff0000"}, nil)
	ctx := context.Background()
	sc := session.NewContext(session.NewKey("g1", "me"), time.Now())

	m, err := s.Move(ctx, sc, &protocol.MoveRequest{GameState: state(protocol.Position{X: 3, Y: 3}, 7, 7)})
	if err != nil || m.Move != protocol.Right {
		t.Errorf("Expected right, got %s (%v)", m.Move, err)
	}
	d, _ := s.Describe(ctx)
	if d.Color != "#ff0000" {
		t.Errorf("Expected identity color, got %s", d.Color)
	}
}

func TestDown(t *testing.T) {
	s, _ := New("down", strategy.Identity{}, nil)
	ctx := context.Background()
	sc := session.NewContext(session.NewKey("g1", "me"), time.Now())

	tests := []struct {
		head protocol.Position
		want protocol.Direction
	}{
		{protocol.Position{X: 3, Y: 3}, protocol.Down},
		{protocol.Position{X: 3, Y: 0}, protocol.Left},
	}
	for _, tt := range tests {
		m, _ := s.Move(ctx, sc, &protocol.MoveRequest{GameState: state(tt.head, 7, 7)})
		if m.Move != tt.want {
			t.Errorf("At %+v expected %s, got %s", tt.head, tt.want, m.Move)
		}
	}
}

func TestPerimeterState(t *testing.T) {
	s := PerimeterState{Width: 3, Height: 3, Downs: 1, Lefts: 1}
	head := protocol.Position{X: 1, Y: 1}

	var moves []protocol.Direction
	for i := 0; i < 10; i++ {
		var d protocol.Direction
		d, s = s.Next(head)
		moves = append(moves, d)
		head = d.Apply(head)
	}

	want := []protocol.Direction{
		protocol.Down, protocol.Left,
		protocol.Up, protocol.Up, protocol.Right, protocol.Right,
		protocol.Down, protocol.Down, protocol.Left, protocol.Left,
	}
	for i := range want {
		if moves[i] != want[i] {
			t.Fatalf("Move %d: expected %s, got %s (all: %v)", i, want[i], moves[i], moves)
		}
	}
	if head != protocol.Origin {
		t.Errorf("Expected a full lap to end at the origin, got %+v", head)
	}
}

func TestPerimeter_UsesSessionData(t *testing.T) {
	s, _ := New("perimeter", strategy.Identity{}, nil)
	ctx := context.Background()
	sc := session.NewContext(session.NewKey("g1", "me"), time.Now())

	start := &protocol.StartRequest{GameState: state(protocol.Position{X: 0, Y: 2}, 5, 5)}
	if _, err := s.Start(ctx, sc, start); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sc.Commit()

	m, _ := s.Move(ctx, sc, &protocol.MoveRequest{GameState: state(protocol.Position{X: 0, Y: 2}, 5, 5)})
	sc.Commit()
	if m.Move != protocol.Down {
		t.Errorf("Expected down toward origin, got %s", m.Move)
	}

	m, _ = s.Move(ctx, sc, &protocol.MoveRequest{GameState: state(protocol.Position{X: 0, Y: 1}, 5, 5)})
	sc.Commit()
	if m.Move != protocol.Down {
		t.Errorf("Expected down toward origin, got %s", m.Move)
	}

	m, _ = s.Move(ctx, sc, &protocol.MoveRequest{GameState: state(protocol.Origin, 5, 5)})
	if m.Move != protocol.Up {
		t.Errorf("Expected perimeter walk to start going up, got %s", m.Move)
	}
	got, _ := session.DataAs[PerimeterState](sc)
	if !got.AtOrigin || got.Step != 1 {
		t.Errorf("Unexpected state %+v", got)
	}
}

func TestPerimeterStep_DegenerateBoard(t *testing.T) {
	if perimeterStep(1, 1, 0) != strategy.NoSafeMove {
		t.Error("Expected fallback on a 1x1 board")
	}
}
