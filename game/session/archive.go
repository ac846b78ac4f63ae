package session

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrGameNotFound = errors.New("game not found")

// GameSummary records how a finished session went
type GameSummary struct {
	GameID          string        `json:"game_id"`
	SnakeID         string        `json:"snake_id"`
	Ruleset         string        `json:"ruleset,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         time.Time     `json:"ended_at"`
	Turns           int           `json:"turns"`
	MoveCount       int64         `json:"move_count"`
	ComputeTime     time.Duration `json:"compute_time_ns"`
	AverageMoveTime time.Duration `json:"average_move_time_ns"`
	Survived        bool          `json:"survived"`
}

// Key returns the session key the summary belongs to
func (g GameSummary) Key() Key {
	return Key{GameID: g.GameID, SnakeID: g.SnakeID}
}

// Summarize builds the summary of c as it ends at now
func Summarize(c *Context, ruleset string, survived bool, now time.Time) GameSummary {
	info := c.Info()
	return GameSummary{
		GameID:          info.Key.GameID,
		SnakeID:         info.Key.SnakeID,
		Ruleset:         ruleset,
		StartedAt:       info.StartedAt,
		EndedAt:         now,
		Turns:           info.LastTurn,
		MoveCount:       info.MoveCount,
		ComputeTime:     info.ComputeTime,
		AverageMoveTime: info.AverageMoveTime,
		Survived:        survived,
	}
}

// GameArchive defines the interface for storing finished games
type GameArchive interface {
	// Save stores the summary, replacing any previous one for the same key
	Save(summary GameSummary) error

	// Load retrieves one summary by key
	Load(key Key) (GameSummary, error)

	// List returns all stored summaries, most recent first
	List() ([]GameSummary, error)

	// Delete removes a summary
	Delete(key Key) error
}

// MemoryArchive keeps summaries in memory
type MemoryArchive struct {
	mu    sync.RWMutex
	games map[Key]GameSummary

	// order is the save order, oldest first
	order []Key
	limit int
}

// NewMemoryArchive creates an empty, unbounded in-memory archive
func NewMemoryArchive() *MemoryArchive {
	return NewBoundedMemoryArchive(0)
}

// NewBoundedMemoryArchive creates an in-memory archive holding at most
// limit games; the oldest saved game is evicted first. A limit of zero or
// less keeps every game.
func NewBoundedMemoryArchive(limit int) *MemoryArchive {
	return &MemoryArchive{games: make(map[Key]GameSummary), limit: limit}
}

func (a *MemoryArchive) Save(summary GameSummary) error {
	key := summary.Key()
	if err := validKey(key); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.games[key]; !ok {
		a.order = append(a.order, key)
	}
	a.games[key] = summary

	for a.limit > 0 && len(a.order) > a.limit {
		delete(a.games, a.order[0])
		a.order = a.order[1:]
	}
	return nil
}

func (a *MemoryArchive) Load(key Key) (GameSummary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	summary, ok := a.games[key]
	if !ok {
		return GameSummary{}, ErrGameNotFound
	}
	return summary, nil
}

func (a *MemoryArchive) List() ([]GameSummary, error) {
	a.mu.RLock()
	result := make([]GameSummary, 0, len(a.games))
	for _, summary := range a.games {
		result = append(result, summary)
	}
	a.mu.RUnlock()

	sortSummaries(result)
	return result, nil
}

func (a *MemoryArchive) Delete(key Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.games[key]; !ok {
		return ErrGameNotFound
	}
	delete(a.games, key)
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

func sortSummaries(games []GameSummary) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].EndedAt.Equal(games[j].EndedAt) {
			return games[i].EndedAt.After(games[j].EndedAt)
		}
		return keyLess(games[i].Key(), games[j].Key())
	})
}
