package session

import (
	"testing"
	"time"

	"github.com/wricardo/battlesnake-agent/game/protocol"
)

type walkState struct {
	Steps int
}

func TestContext_StagedData(t *testing.T) {
	c := NewContext(NewKey("g1", "s1"), time.Now())

	c.SetData(walkState{Steps: 1})
	if got, _ := DataAs[walkState](c); got.Steps != 1 {
		t.Errorf("Expected staged value to be visible during the call, got %+v", got)
	}
	c.Commit()

	c.SetData(walkState{Steps: 2})
	c.Rollback()
	got, ok := DataAs[walkState](c)
	if !ok || got.Steps != 1 {
		t.Errorf("Expected rollback to keep committed value, got %+v (ok=%v)", got, ok)
	}
}

func TestContext_Stats(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewContext(NewKey("g1", "s1"), start)

	c.RecordMove(1, 10*time.Millisecond, start.Add(time.Second))
	c.RecordMove(2, 30*time.Millisecond, start.Add(2*time.Second))

	if c.MoveCount() != 2 {
		t.Errorf("Expected 2 moves, got %d", c.MoveCount())
	}
	if c.AverageMoveTime() != 20*time.Millisecond {
		t.Errorf("Expected 20ms average, got %v", c.AverageMoveTime())
	}
	info := c.Info()
	if info.LastTurn != 2 || !info.LastAccessedAt.Equal(start.Add(2*time.Second)) {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestContext_StartResponse(t *testing.T) {
	c := NewContext(NewKey("g1", "s1"), time.Now())
	if _, ok := c.StartResponse(); ok {
		t.Error("Expected no start response before start")
	}
	c.MarkStarted(protocol.StartResponse{Color: "#123456"})
	resp, ok := c.StartResponse()
	if !ok || resp.Color != "#123456" {
		t.Errorf("Expected cached start response, got %+v (ok=%v)", resp, ok)
	}
}

func TestKeyOf(t *testing.T) {
	state := &protocol.GameState{Game: protocol.Game{ID: "g1"}, You: protocol.Snake{ID: "s1"}}
	if KeyOf(state) != NewKey("g1", "s1") {
		t.Errorf("Unexpected key %s", KeyOf(state))
	}
	if KeyOf(state).String() != "g1/s1" {
		t.Errorf("Unexpected key string %s", KeyOf(state).String())
	}
}
