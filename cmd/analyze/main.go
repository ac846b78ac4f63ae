// Command analyze prints quick, human-readable heuristics about the finished
// games in an archive directory. It summarizes survival and game length per
// ruleset and highlights games whose average move time came close to the
// move timeout.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/wricardo/battlesnake-agent/game/session"
)

// slowMoveThreshold is the average move time worth a warning; tournament
// timeouts are typically 500ms including network latency
const slowMoveThreshold = 250 * time.Millisecond

// RulesetReport aggregates the games played under one ruleset
type RulesetReport struct {
	Ruleset         string
	Games           int
	Survived        int
	TotalTurns      int
	LongestGame     int
	AverageMoveTime time.Duration
}

// SurvivalRate is the fraction of games the snake survived
func (r RulesetReport) SurvivalRate() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.Survived) / float64(r.Games)
}

// AverageTurns is the mean game length
func (r RulesetReport) AverageTurns() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.TotalTurns) / float64(r.Games)
}

// analyze groups games by ruleset and returns the reports sorted by ruleset
// name, plus the games slower than threshold.
func analyze(games []session.GameSummary, threshold time.Duration) ([]RulesetReport, []session.GameSummary) {
	byRuleset := make(map[string]*RulesetReport)
	moveTime := make(map[string]time.Duration)
	moves := make(map[string]int64)
	var slow []session.GameSummary

	for _, g := range games {
		name := g.Ruleset
		if name == "" {
			name = "unknown"
		}
		r, ok := byRuleset[name]
		if !ok {
			r = &RulesetReport{Ruleset: name}
			byRuleset[name] = r
		}

		r.Games++
		r.TotalTurns += g.Turns
		if g.Survived {
			r.Survived++
		}
		if g.Turns > r.LongestGame {
			r.LongestGame = g.Turns
		}
		moveTime[name] += g.ComputeTime
		moves[name] += g.MoveCount

		if g.AverageMoveTime > threshold {
			slow = append(slow, g)
		}
	}

	reports := make([]RulesetReport, 0, len(byRuleset))
	for name, r := range byRuleset {
		if moves[name] > 0 {
			r.AverageMoveTime = moveTime[name] / time.Duration(moves[name])
		}
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Ruleset < reports[j].Ruleset })

	return reports, slow
}

func printReport(w io.Writer, games []session.GameSummary, threshold time.Duration) {
	if len(games) == 0 {
		fmt.Fprintln(w, "No finished games")
		return
	}

	reports, slow := analyze(games, threshold)
	for _, r := range reports {
		fmt.Fprintf(w, "\n=== %s ===\n", r.Ruleset)
		fmt.Fprintf(w, "Games: %d\n", r.Games)
		fmt.Fprintf(w, "Survived: %d (%.0f%%)\n", r.Survived, r.SurvivalRate()*100)
		fmt.Fprintf(w, "Average Turns: %.1f\n", r.AverageTurns())
		fmt.Fprintf(w, "Longest Game: %d turns\n", r.LongestGame)
		fmt.Fprintf(w, "Average Move Time: %s\n", r.AverageMoveTime)
	}

	fmt.Fprintln(w)
	if len(slow) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d games averaged more than %s per move\n", len(slow), threshold)
		for i, g := range slow {
			if i < 5 {
				fmt.Fprintf(w, "   Slow: %s/%s - %s over %d moves\n", g.GameID, g.SnakeID, g.AverageMoveTime, g.MoveCount)
			}
		}
		if len(slow) > 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(slow)-5)
		}
	} else {
		fmt.Fprintf(w, "✅ All games averaged under %s per move\n", threshold)
	}
}

func main() {
	dir := flag.String("dir", "games", "archive directory")
	threshold := flag.Duration("slow", slowMoveThreshold, "average move time worth a warning")
	flag.Parse()

	archive, err := session.NewFileArchive(*dir)
	if err != nil {
		fmt.Printf("Error opening archive: %v\n", err)
		os.Exit(1)
	}

	games, err := archive.List()
	if err != nil {
		fmt.Printf("Error reading archive: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, games, *threshold)
}
