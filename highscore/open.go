package highscore

import (
	"fmt"

	"github.com/hoshinonyaruko/snake-web/sqlite"
)

// OpenStore builds the store named by kind: sqlite, file or memory.
// The returned close func releases it.
func OpenStore(kind, dbPath, scoreFile string) (Store, func() error, error) {
	noop := func() error { return nil }
	switch kind {
	case "", "sqlite":
		s, err := sqlite.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "file":
		return NewFileStore(scoreFile), noop, nil
	case "memory":
		return &MemoryStore{}, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown score store %q", kind)
}
