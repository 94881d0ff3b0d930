package structs

import "fmt"

// 构建期常量
const (
	GridSize     = 30  // 网格边长 N
	DefaultSpeed = 200 // 默认刷新间隔，毫秒
	MinSpeed     = 50
	MaxSpeed     = 500
)

// Cell 描述网格上的一个格子。
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds reports whether c lies inside an n×n grid.
func (c Cell) InBounds(n int) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < n && c.Y < n
}

// Add returns c moved one step along d.
func (c Cell) Add(d Direction) Cell {
	return Cell{X: c.X + d.X, Y: c.Y + d.Y}
}

// Direction 是单位方向向量。
type Direction struct {
	X int `json:"x"`
	Y int `json:"y"`
}

var (
	Up    = Direction{X: 0, Y: -1}
	Down  = Direction{X: 0, Y: 1}
	Left  = Direction{X: -1, Y: 0}
	Right = Direction{X: 1, Y: 0}
)

// Valid reports whether d is one of the four cardinal unit vectors.
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Opposite reports whether d is the exact reverse of o.
func (d Direction) Opposite(o Direction) bool {
	return d.X == -o.X && d.Y == -o.Y
}

// String returns the input name of d ("up", "down", "left", "right"), or "" for anything else.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return ""
}

// ParseDirection maps the four named directional signals to their vectors.
func ParseDirection(name string) (Direction, bool) {
	switch name {
	case "up":
		return Up, true
	case "down":
		return Down, true
	case "left":
		return Left, true
	case "right":
		return Right, true
	}
	return Direction{}, false
}

// Status 游戏状态
type Status int

const (
	Running Status = iota
	GameOver
)

func (s Status) String() string {
	if s == GameOver {
		return "game_over"
	}
	return "running"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*s = Running
	case "game_over":
		*s = GameOver
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Event is what a single tick emitted for the sound notifier and UI banners.
type Event int

const (
	EventNone Event = iota
	EventEat
	EventGameOver
)

func (e Event) String() string {
	switch e {
	case EventEat:
		return "eat"
	case EventGameOver:
		return "game_over"
	}
	return ""
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Event) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*e = EventNone
	case "eat":
		*e = EventEat
	case "game_over":
		*e = EventGameOver
	default:
		return fmt.Errorf("unknown event %q", b)
	}
	return nil
}

// Snapshot 是交给渲染器的只读状态副本。
type Snapshot struct {
	Snake     []Cell    `json:"snake"`     // 蛇身，index 0 为蛇头
	Direction Direction `json:"direction"` // 当前方向
	Food      Cell      `json:"food"`      // 食物位置
	Score     int       `json:"score"`
	HighScore int       `json:"high_score"`
	Speed     int       `json:"speed"` // 刷新间隔，毫秒
	Slider    int       `json:"slider"`
	Status    Status    `json:"status"`
	GridSize  int       `json:"grid_size"`
}

// Update is published by the driver after every state change.
type Update struct {
	Snapshot Snapshot `json:"state"`
	Event    Event    `json:"event"`
}
