package dispatcher

import (
	"sync/atomic"
	"time"
)

// Stats are the dispatcher counters since startup
type Stats struct {
	StartedAt        time.Time `json:"started_at"`
	Describes        int64     `json:"describes"`
	Starts           int64     `json:"starts"`
	DuplicateStarts  int64     `json:"duplicate_starts"`
	Moves            int64     `json:"moves"`
	Ends             int64     `json:"ends"`
	Malformed        int64     `json:"malformed"`
	Orphans          int64     `json:"orphans"`
	StrategyFailures int64     `json:"strategy_failures"`
	EncodingErrors   int64     `json:"encoding_errors"`
	ActiveSessions   int       `json:"active_sessions"`
}

type counters struct {
	describes        atomic.Int64
	starts           atomic.Int64
	duplicateStarts  atomic.Int64
	moves            atomic.Int64
	ends             atomic.Int64
	malformed        atomic.Int64
	orphans          atomic.Int64
	strategyFailures atomic.Int64
	encodingErrors   atomic.Int64
}

func (c *counters) snapshot(startedAt time.Time, active int) Stats {
	return Stats{
		StartedAt:        startedAt,
		Describes:        c.describes.Load(),
		Starts:           c.starts.Load(),
		DuplicateStarts:  c.duplicateStarts.Load(),
		Moves:            c.moves.Load(),
		Ends:             c.ends.Load(),
		Malformed:        c.malformed.Load(),
		Orphans:          c.orphans.Load(),
		StrategyFailures: c.strategyFailures.Load(),
		EncodingErrors:   c.encodingErrors.Load(),
		ActiveSessions:   active,
	}
}
