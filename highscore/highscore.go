// Package highscore keeps the single persisted high score.
package highscore

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Store persists one integer.
type Store interface {
	Load() (int, error)
	Save(score int) error
}

// Tracker holds the best score seen this session and writes it through to
// its store whenever it is beaten. It never lowers the value.
type Tracker struct {
	mu     sync.Mutex
	store  Store
	logger *log.Logger
	best   int
}

// NewTracker seeds the tracker from store. A failed or nonsensical load
// counts as no high score at all.
func NewTracker(store Store, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	t := &Tracker{store: store, logger: logger}
	best, err := store.Load()
	switch {
	case err != nil:
		logger.Warn("high score unreadable, starting from 0", "err", err)
	case best < 0:
		logger.Warn("negative high score ignored", "value", best)
	default:
		t.best = best
	}
	return t
}

// Observe raises the high score to score if it is higher and returns the
// high score. Save errors are logged only.
func (t *Tracker) Observe(score int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if score <= t.best {
		return t.best
	}
	t.best = score
	if err := t.store.Save(score); err != nil {
		t.logger.Error("failed to save high score", "score", score, "err", err)
	}
	return t.best
}

// Best returns the current high score.
func (t *Tracker) Best() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.best
}
