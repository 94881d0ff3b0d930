package api

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-web/highscore"
	"github.com/hoshinonyaruko/snake-web/snake"
)

// Session is one player's game: an engine and the driver that ticks it.
type Session struct {
	ID     string
	Driver *snake.Driver

	mu       sync.Mutex
	lastSeen time.Time
	sockets  int
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// attach changes the socket count and returns how many remain.
func (s *Session) attach(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets += delta
	s.lastSeen = time.Now()
	return s.sockets
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.sockets == 0
}

// Hub owns every live session. All sessions share one high score tracker.
type Hub struct {
	tracker *highscore.Tracker
	logger  *log.Logger
	ctx     context.Context

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewHub(ctx context.Context, tracker *highscore.Tracker, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		tracker:  tracker,
		logger:   logger,
		ctx:      ctx,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new game and its driver.
func (h *Hub) Create() *Session {
	id := uuid.NewString()
	logger := h.logger.With("session", id)
	opts := []snake.DriverOption{snake.WithLogger(logger)}
	if h.tracker != nil {
		opts = append(opts, snake.WithScoreKeeper(h.tracker))
	}
	d := snake.NewDriver(snake.NewEngine(), opts...)
	s := &Session{ID: id, Driver: d, lastSeen: time.Now()}

	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	go func() {
		if err := d.Run(h.ctx); err != nil {
			logger.Error("driver stopped", "err", err)
		}
	}()
	logger.Info("session created")
	return s
}

func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// Delete stops the session's timer and forgets it.
func (h *Hub) Delete(id string) bool {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return false
	}
	s.Driver.Stop()
	h.logger.Info("session closed", "session", id)
	return true
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll stops every session.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.Driver.Stop()
	}
}

// Reap closes sessions with no websocket that were idle longer than ttl,
// checking every interval until ctx is done.
func (h *Hub) Reap(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.reapOnce(now, ttl)
		}
	}
}

func (h *Hub) reapOnce(now time.Time, ttl time.Duration) int {
	var stale []string
	h.mu.RLock()
	for id, s := range h.sessions {
		if last, idle := s.idleSince(); idle && now.Sub(last) > ttl {
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()
	for _, id := range stale {
		h.Delete(id)
	}
	return len(stale)
}
