// Package websocket streams the turns of running games to spectators.
//
// A Hub is registered as a dispatcher observer. Every start, move and end
// handled by the agent becomes a Message delivered to the clients watching
// that game id. Clients subscribe with GET /ws?game=<id>; they only receive,
// anything they send is discarded.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	d.AddObserver(hub)
//
// Concurrency:
//
// All client bookkeeping happens on the Run goroutine. ObserveTurn is called
// from request goroutines and only performs a non-blocking channel send, so a
// slow spectator can never delay a move response.
package websocket
