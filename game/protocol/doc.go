// Package protocol models the Battlesnake callback protocol.
//
// The protocol package implements:
//   - Typed request payloads for the start, move and end callbacks
//   - Typed responses for describe, start, move and end
//   - Decoding with required-field validation
//   - All-or-nothing response encoding
//   - The closed Direction enumeration (up, down, left, right)
//   - Board geometry helpers (origin, center, corners, distance)
//
// Wire Format:
//
// Every callback carries the same game snapshot:
//
//	{
//	  "game":  {"id": "...", "ruleset": {...}, "timeout": 500},
//	  "turn":  14,
//	  "board": {"width": 11, "height": 11, "food": [...], "hazards": [...], "snakes": [...]},
//	  "you":   {"id": "...", "name": "...", "health": 90, "body": [...], "head": {...}}
//	}
//
// Unknown fields are ignored. Missing required fields (game id, board
// dimensions, snake list, you id, and the turn number on move) are reported
// as ErrMalformedPayload.
//
// Usage:
//
//	req, err := protocol.DecodeMoveRequest(r.Body)
//	if errors.Is(err, protocol.ErrMalformedPayload) {
//		// 400
//	}
//
//	err = protocol.EncodeResponse(w, protocol.MoveResponse{Move: protocol.Up})
package protocol
