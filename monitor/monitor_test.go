package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wricardo/battlesnake-agent/game/dispatcher"
	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/session"
	"github.com/wricardo/battlesnake-agent/game/strategy"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name  string
		event dispatcher.TurnEvent
		want  string
	}{
		{"ok", dispatcher.TurnEvent{Kind: protocol.KindMove}, OutcomeOK},
		{"fallback", dispatcher.TurnEvent{Kind: protocol.KindMove, Err: strategy.ErrStrategyFailure, Fallback: true}, OutcomeFallback},
		{"malformed", dispatcher.TurnEvent{Kind: protocol.KindStart, Err: fmt.Errorf("%w: bad", protocol.ErrMalformedPayload)}, OutcomeMalformed},
		{"orphan", dispatcher.TurnEvent{Kind: protocol.KindEnd, Err: session.ErrOrphanSession}, OutcomeOrphan},
		{"other", dispatcher.TurnEvent{Kind: protocol.KindMove, Err: errors.New("boom")}, OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.event); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestObserveTurn(t *testing.T) {
	m := NewMetrics("test", nil)
	key := session.NewKey("g1", "s1")

	m.ObserveTurn(dispatcher.TurnEvent{Kind: protocol.KindStart, Key: key, Duration: time.Millisecond})
	m.ObserveTurn(dispatcher.TurnEvent{Kind: protocol.KindMove, Key: key, Turn: 1, Duration: time.Millisecond})
	m.ObserveTurn(dispatcher.TurnEvent{Kind: protocol.KindMove, Key: key, Turn: 2, Err: strategy.ErrStrategyFailure, Fallback: true})
	m.ObserveTurn(dispatcher.TurnEvent{Kind: protocol.KindMove, Err: session.ErrOrphanSession})

	survivor := &protocol.GameState{
		You:   protocol.Snake{ID: "s1"},
		Board: protocol.Board{Snakes: []protocol.Snake{{ID: "s1"}}},
	}
	m.ObserveTurn(dispatcher.TurnEvent{Kind: protocol.KindEnd, Key: key, Turn: 120, State: survivor})
	m.ObserveTurn(dispatcher.TurnEvent{Kind: protocol.KindEnd, Key: session.NewKey("g2", "s1"), Turn: 30, State: &protocol.GameState{}})

	checks := []struct {
		kind, outcome string
		want          float64
	}{
		{"start", OutcomeOK, 1},
		{"move", OutcomeOK, 1},
		{"move", OutcomeFallback, 1},
		{"move", OutcomeOrphan, 1},
		{"end", OutcomeOK, 2},
	}
	for _, c := range checks {
		got := testutil.ToFloat64(m.Callbacks.WithLabelValues(c.kind, c.outcome))
		if got != c.want {
			t.Errorf("callbacks{%s,%s}: expected %v, got %v", c.kind, c.outcome, c.want, got)
		}
	}

	if got := testutil.ToFloat64(m.GamesFinished.WithLabelValues("survived")); got != 1 {
		t.Errorf("Expected 1 survived game, got %v", got)
	}
	if got := testutil.ToFloat64(m.GamesFinished.WithLabelValues("eliminated")); got != 1 {
		t.Errorf("Expected 1 eliminated game, got %v", got)
	}
	if got := testutil.CollectAndCount(m.CallbackDuration); got != 3 {
		t.Errorf("Expected duration series for 3 kinds, got %d", got)
	}
}

func TestHandler(t *testing.T) {
	active := 3
	m := NewMetrics("battlesnake", func() int { return active })
	m.ObserveTurn(dispatcher.TurnEvent{Kind: protocol.KindDescribe})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"battlesnake_active_sessions 3",
		`battlesnake_callbacks_total{kind="describe",outcome="ok"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsAsDispatcherObserver(t *testing.T) {
	d := dispatcher.New(nil, dispatcher.Options{})
	m := NewMetrics("agent", d.Sessions().Len)
	d.AddObserver(m)

	start := &protocol.StartRequest{GameState: protocol.GameState{
		Game:  protocol.Game{ID: "g"},
		You:   protocol.Snake{ID: "s"},
		Board: protocol.Board{Width: 11, Height: 11, Snakes: []protocol.Snake{{ID: "s"}}},
	}}
	if _, err := d.Start(context.Background(), start); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if got := testutil.ToFloat64(m.Callbacks.WithLabelValues("start", OutcomeOK)); got != 1 {
		t.Errorf("Expected 1 start, got %v", got)
	}

	expected := `
# HELP agent_active_sessions Sessions between start and end
# TYPE agent_active_sessions gauge
agent_active_sessions 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "agent_active_sessions"); err != nil {
		t.Errorf("Unexpected active sessions metric: %v", err)
	}
}
