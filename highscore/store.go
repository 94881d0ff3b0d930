package highscore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the high score as a JSON number in a file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns 0 when the file does not exist yet.
func (f *FileStore) Load() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var score int
	if err := json.Unmarshal(data, &score); err != nil {
		return 0, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return score, nil
}

// Save writes through a temp file so a crash never leaves half a number.
func (f *FileStore) Save(score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(score)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// MemoryStore keeps the score in memory only.
type MemoryStore struct {
	mu    sync.Mutex
	score int
}

func (m *MemoryStore) Load() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score, nil
}

func (m *MemoryStore) Save(score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = score
	return nil
}
