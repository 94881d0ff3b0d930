// 贪食蛇的状态机
package snake

import (
	"sync"

	"github.com/hoshinonyaruko/snake-web/structs"
)

// StartCell is where a fresh snake is placed.
var StartCell = structs.Cell{X: 10, Y: 10}

// Engine owns the whole game state. Every method takes the engine lock,
// so Tick and RequestDirectionChange never interleave.
type Engine struct {
	mu sync.Mutex

	size    int
	food    FoodSampler
	snake   []structs.Cell
	dir     structs.Direction // 上一次 Tick 使用的方向
	pending structs.Direction // 下一次 Tick 使用的方向
	foodPos structs.Cell
	score   int
	speed   int
	status  structs.Status
}

// Option configures an Engine.
type Option func(*Engine)

// WithFoodSampler replaces the default uniform sampler.
func WithFoodSampler(f FoodSampler) Option {
	return func(e *Engine) {
		e.food = f
	}
}

// WithGridSize overrides structs.GridSize. Sizes that cannot hold StartCell are ignored.
func WithGridSize(n int) Option {
	return func(e *Engine) {
		if StartCell.InBounds(n) {
			e.size = n
		}
	}
}

// NewEngine returns an engine in its starting state.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{size: structs.GridSize}
	for _, opt := range opts {
		opt(e)
	}
	if e.food == nil {
		e.food = NewRandomFood(0)
	}
	e.reset()
	return e
}

// Reset starts a new game. It works from any status.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

func (e *Engine) reset() {
	e.snake = []structs.Cell{StartCell}
	e.dir = structs.Up
	e.pending = structs.Up
	e.foodPos = e.food.Sample(e.size)
	e.score = 0
	e.speed = structs.DefaultSpeed
	e.status = structs.Running
}

// RequestDirectionChange buffers dir for the next Tick. It returns false and
// changes nothing when the game is over, dir is not a cardinal unit vector,
// or dir would reverse the direction the snake last moved in.
func (e *Engine) RequestDirectionChange(dir structs.Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != structs.Running || !dir.Valid() || dir.Opposite(e.dir) {
		return false
	}
	e.pending = dir
	return true
}

// Tick advances the game by one cell and reports what happened.
func (e *Engine) Tick() structs.Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != structs.Running {
		return structs.EventNone
	}

	head := e.snake[0].Add(e.pending)

	// 撞墙或咬到自己，蛇尾还没移走，也算在内
	if !head.InBounds(e.size) || e.occupied(head) {
		e.status = structs.GameOver
		return structs.EventGameOver
	}

	e.dir = e.pending

	e.snake = append(e.snake, structs.Cell{})
	copy(e.snake[1:], e.snake)
	e.snake[0] = head

	if head == e.foodPos {
		e.score++
		e.foodPos = e.food.Sample(e.size)
		return structs.EventEat
	}

	e.snake = e.snake[:len(e.snake)-1]
	return structs.EventNone
}

func (e *Engine) occupied(c structs.Cell) bool {
	for _, s := range e.snake {
		if s == c {
			return true
		}
	}
	return false
}

// SetSpeed stores the tick period in milliseconds clamped to
// [structs.MinSpeed, structs.MaxSpeed] and returns the stored value.
func (e *Engine) SetSpeed(ms int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = ClampSpeed(ms)
	return e.speed
}

// SetSpeedFromSlider maps an inverted slider value v to the period MaxSpeed-v.
func (e *Engine) SetSpeedFromSlider(v int) int {
	return e.SetSpeed(structs.MaxSpeed - v)
}

// Speed returns the tick period in milliseconds.
func (e *Engine) Speed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SliderValue is the slider position for the current period.
func (e *Engine) SliderValue() int {
	return structs.MaxSpeed - e.Speed()
}

// Status returns whether the game is still running.
func (e *Engine) Status() structs.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Score returns the current score.
func (e *Engine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

// Snapshot copies the state for a renderer. HighScore is left zero; the
// driver fills it in from its score keeper.
func (e *Engine) Snapshot() structs.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	body := make([]structs.Cell, len(e.snake))
	copy(body, e.snake)
	return structs.Snapshot{
		Snake:     body,
		Direction: e.dir,
		Food:      e.foodPos,
		Score:     e.score,
		Speed:     e.speed,
		Slider:    structs.MaxSpeed - e.speed,
		Status:    e.status,
		GridSize:  e.size,
	}
}

// ClampSpeed bounds a tick period to [structs.MinSpeed, structs.MaxSpeed].
func ClampSpeed(ms int) int {
	if ms < structs.MinSpeed {
		return structs.MinSpeed
	}
	if ms > structs.MaxSpeed {
		return structs.MaxSpeed
	}
	return ms
}
