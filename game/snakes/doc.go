// Package snakes contains ready-made strategies that can be selected by name
// from the command line or a profile.
//
//   - example: always moves right
//   - down: moves down to the bottom row, then left
//   - perimeter: walks to the origin, then circles the board edge
//   - default: strategy.Default, which plays strategy.SafeMove
package snakes
