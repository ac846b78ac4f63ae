// Command validate checks snake profile files. For every profile it checks:
//   - YAML or JSON structure and required fields
//   - Identity color format and fallback move
//   - The strategy name is a registered snake
//   - The strategy survives a short sample game without failing
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/battlesnake-agent/game/config"
	"github.com/wricardo/battlesnake-agent/game/dispatcher"
	"github.com/wricardo/battlesnake-agent/game/protocol"
	"github.com/wricardo/battlesnake-agent/game/snakes"
)

var errInvalidProfiles = errors.New("some profiles are invalid")

// sampleTurns is the length of the smoke-test game
const sampleTurns = 5

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateProfile loads and validates a single profile file
func validateProfile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	profile, err := config.ParseProfile(filePath, data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	strat, err := snakes.New(profile.Snake, profile.Identity, zap.NewNop())
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Snake %q is registered", profile.Snake))

	fallback, _ := profile.Fallback()
	d := dispatcher.New(strat, dispatcher.Options{
		Identity:     profile.Identity,
		FallbackMove: fallback,
	})
	if err := playSample(d); err != nil {
		result.fail("Sample game failed: %v", err)
		return result
	}
	if n := d.Stats().StrategyFailures; n > 0 {
		result.fail("Strategy failed %d times during a %d turn sample game", n, sampleTurns)
		return result
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Played %d sample turns", sampleTurns))

	return result
}

// playSample runs one short game on an empty 11x11 board. The snake moves
// as answered; leaving the board ends the sample early.
func playSample(d *dispatcher.Dispatcher) error {
	ctx := context.Background()
	you := protocol.Snake{
		ID:     "validate",
		Health: 100,
		Head:   protocol.Position{X: 5, Y: 5},
		Body:   []protocol.Position{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}},
		Length: 3,
	}
	state := protocol.GameState{
		Game:  protocol.Game{ID: "validate-sample", Ruleset: protocol.Ruleset{Name: "standard"}, Timeout: 500},
		Board: protocol.Board{Width: 11, Height: 11, Snakes: []protocol.Snake{you}},
		You:   you,
	}

	if _, err := d.Describe(ctx); err != nil {
		return err
	}
	if _, err := d.Start(ctx, &protocol.StartRequest{GameState: state}); err != nil {
		return err
	}

	for turn := 1; turn <= sampleTurns; turn++ {
		state.Turn = turn
		resp, err := d.Move(ctx, &protocol.MoveRequest{GameState: state})
		if err != nil {
			return err
		}
		if !resp.Move.Valid() {
			return fmt.Errorf("turn %d: invalid move %q", turn, resp.Move)
		}

		head := resp.Move.Apply(state.You.Head)
		if !state.Board.Contains(head) {
			break
		}
		state.You.Head = head
		state.You.Body = append([]protocol.Position{head}, state.You.Body[:len(state.You.Body)-1]...)
		state.Board.Snakes = []protocol.Snake{state.You}
	}

	_, err := d.End(ctx, &protocol.EndRequest{GameState: state})
	return err
}

// profileFiles expands the arguments into profile files. Directories are
// scanned for .yaml, .yml and .json files.
func profileFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	return files, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{cmd.String("dir")}
	}

	files, err := profileFiles(args)
	if err != nil {
		return fmt.Errorf("error finding profile files: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No profile files found")
		return nil
	}

	allValid := true
	for _, file := range files {
		result := validateProfile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Println("❌ Some profiles have errors")
		return errInvalidProfiles
	}
	fmt.Println("✅ All profiles are valid!")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate snake profile files",
		ArgsUsage: "[file or directory ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: "profiles",
				Usage: "profile directory, used when no arguments are given",
			},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
