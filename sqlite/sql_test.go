package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestScoreStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if got, err := store.Load(); err != nil || got != 0 {
		t.Fatalf("empty Load = %d, %v", got, err)
	}
	if err := store.Save(12); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(); got != 12 {
		t.Errorf("Load = %d, want 12", got)
	}

	// 写入更小的值不会降低最高分
	if err := store.Save(5); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Load(); got != 12 {
		t.Errorf("Load after lower save = %d, want 12", got)
	}
}

func TestScoreStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.db")
	first, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Save(30); err != nil {
		t.Fatal(err)
	}
	first.Close()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewScoreStore(db)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if got, err := second.Load(); err != nil || got != 30 {
		t.Errorf("Load = %d, %v; want 30", got, err)
	}
}
