// Package config loads snake profiles and runtime settings.
//
// A profile names the strategy a snake runs and the identity it reports to
// the tournament server (author, color, head, tail, version). Profiles are
// YAML or JSON files in a profile directory; the format follows the file
// extension. One profile is embedded in the binary and used whenever the
// directory holds no "default" profile.
//
// Profile Format:
//
//	name: perimeter
//	description: Walks down, then left, then around the board edge
//	snake: perimeter
//	fallback_move: up
//	identity:
//	  author: wricardo
//	  color: "#ff00aa"
//	  head: default
//	  tail: default
//
// Usage:
//
//	manager, err := config.NewManager("profiles")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := manager.Load("perimeter")
//
//	// List available profiles
//	profiles, err := manager.List()
//
// Settings:
//
// LoadSettings reads PORT, HOST and the BATTLESNAKE_* variables. Command
// line flags take their defaults from it.
package config
