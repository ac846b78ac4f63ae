package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/battlesnake-agent/game/session"
)

func sampleGames() []session.GameSummary {
	return []session.GameSummary{
		{GameID: "g1", SnakeID: "s", Ruleset: "standard", Turns: 100, MoveCount: 100, ComputeTime: 100 * time.Millisecond, AverageMoveTime: time.Millisecond, Survived: true},
		{GameID: "g2", SnakeID: "s", Ruleset: "standard", Turns: 50, MoveCount: 50, ComputeTime: 150 * time.Millisecond, AverageMoveTime: 3 * time.Millisecond},
		{GameID: "g3", SnakeID: "s", Ruleset: "royale", Turns: 200, MoveCount: 10, ComputeTime: 3 * time.Second, AverageMoveTime: 300 * time.Millisecond, Survived: true},
		{GameID: "g4", SnakeID: "s", Turns: 5},
	}
}

func TestAnalyze(t *testing.T) {
	reports, slow := analyze(sampleGames(), 250*time.Millisecond)

	if len(reports) != 3 {
		t.Fatalf("Expected 3 rulesets, got %d", len(reports))
	}
	if reports[0].Ruleset != "royale" || reports[1].Ruleset != "standard" || reports[2].Ruleset != "unknown" {
		t.Errorf("Unexpected ruleset order: %s %s %s", reports[0].Ruleset, reports[1].Ruleset, reports[2].Ruleset)
	}

	standard := reports[1]
	if standard.Games != 2 {
		t.Errorf("Expected 2 standard games, got %d", standard.Games)
	}
	if standard.SurvivalRate() != 0.5 {
		t.Errorf("Expected survival rate 0.5, got %v", standard.SurvivalRate())
	}
	if standard.AverageTurns() != 75 {
		t.Errorf("Expected 75 average turns, got %v", standard.AverageTurns())
	}
	if standard.LongestGame != 100 {
		t.Errorf("Expected longest game 100, got %d", standard.LongestGame)
	}
	if standard.AverageMoveTime != 250*time.Millisecond/150 {
		t.Errorf("Expected move time weighted by moves, got %v", standard.AverageMoveTime)
	}

	if reports[2].AverageMoveTime != 0 {
		t.Errorf("Expected zero move time without moves, got %v", reports[2].AverageMoveTime)
	}

	if len(slow) != 1 || slow[0].GameID != "g3" {
		t.Errorf("Expected g3 to be slow, got %v", slow)
	}
}

func TestRulesetReport_Empty(t *testing.T) {
	var r RulesetReport
	if r.SurvivalRate() != 0 || r.AverageTurns() != 0 {
		t.Error("Expected zero rates for an empty report")
	}
}

func TestPrintReport(t *testing.T) {
	t.Run("games", func(t *testing.T) {
		var buf bytes.Buffer
		printReport(&buf, sampleGames(), 250*time.Millisecond)
		out := buf.String()

		for _, want := range []string{"=== standard ===", "Survived: 1 (50%)", "WARNING: 1 games", "Slow: g3/s"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("all fast", func(t *testing.T) {
		var buf bytes.Buffer
		printReport(&buf, sampleGames()[:2], time.Second)
		if !strings.Contains(buf.String(), "All games averaged under 1s") {
			t.Errorf("Expected all-fast message, got:\n%s", buf.String())
		}
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		printReport(&buf, nil, time.Second)
		if strings.TrimSpace(buf.String()) != "No finished games" {
			t.Errorf("Expected empty message, got %q", buf.String())
		}
	})
}

func TestReportFromFileArchive(t *testing.T) {
	archive, err := session.NewFileArchive(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	for _, g := range sampleGames() {
		g.EndedAt = time.Now()
		if err := archive.Save(g); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	games, err := archive.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	reports, _ := analyze(games, slowMoveThreshold)
	total := 0
	for _, r := range reports {
		total += r.Games
	}
	if total != 4 {
		t.Errorf("Expected 4 games across reports, got %d", total)
	}
}
