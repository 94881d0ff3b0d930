package structs

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		name string
		want Direction
		ok   bool
	}{
		{"up", Up, true},
		{"down", Down, true},
		{"left", Left, true},
		{"right", Right, true},
		{"UP", Direction{}, false},
		{"jump", Direction{}, false},
		{"", Direction{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDirection(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDirection(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
		if ok && got.String() != tt.name {
			t.Errorf("%v.String() = %q, want %q", got, got.String(), tt.name)
		}
	}
}

func TestDirectionValidAndOpposite(t *testing.T) {
	for _, d := range []Direction{{0, 0}, {1, 1}, {-1, 1}, {2, 0}} {
		if d.Valid() {
			t.Errorf("%v should not be valid", d)
		}
	}
	if !Down.Opposite(Up) || !Left.Opposite(Right) {
		t.Error("expected Down/Up and Left/Right to be opposites")
	}
	if Left.Opposite(Up) || Up.Opposite(Up) {
		t.Error("perpendicular or equal directions are not opposites")
	}
}

func TestBoard(t *testing.T) {
	snap := Snapshot{
		Snake:    []Cell{{1, 1}, {1, 2}},
		Food:     Cell{3, 0},
		GridSize: 4,
	}
	board := Board(snap)
	if len(board) != 4 || len(board[0]) != 4 {
		t.Fatalf("board is %dx%d, want 4x4", len(board[0]), len(board))
	}
	if board[1][1] != SnakeSegment || board[2][1] != SnakeSegment {
		t.Error("snake cells not marked")
	}
	if board[0][3] != Food {
		t.Error("food cell not marked")
	}
	if board[0][0] != Empty {
		t.Error("expected empty cell")
	}

	// 食物在蛇身下时显示蛇身
	snap.Food = Cell{1, 2}
	if got := Board(snap)[2][1]; got != SnakeSegment {
		t.Errorf("covered food cell = %v, want SnakeSegment", got)
	}
}

func TestSnapshotJSON(t *testing.T) {
	data, err := json.Marshal(Update{
		Snapshot: Snapshot{Status: GameOver},
		Event:    EventEat,
	})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"status":"game_over"`) || !strings.Contains(s, `"event":"eat"`) {
		t.Errorf("unexpected encoding: %s", s)
	}
}

func TestStatusAndEventDecode(t *testing.T) {
	var u Update
	if err := json.Unmarshal([]byte(`{"state":{"status":"game_over"},"event":"eat"}`), &u); err != nil {
		t.Fatal(err)
	}
	if u.Snapshot.Status != GameOver || u.Event != EventEat {
		t.Errorf("decoded %+v", u)
	}
	if err := json.Unmarshal([]byte(`{"state":{"status":"paused"}}`), &u); err == nil {
		t.Error("unknown status should fail")
	}
}
