package snake

import (
	"math/rand"
	"sync"
	"time"

	"github.com/hoshinonyaruko/snake-web/structs"
)

// FoodSampler picks the next food cell on an n×n grid.
type FoodSampler interface {
	Sample(n int) structs.Cell
}

// RandomFood samples each axis uniformly, ignoring where the snake is.
// Food may land on the body or on the previous food cell.
type RandomFood struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomFood returns a sampler with its own source; seed 0 means time-based.
func NewRandomFood(seed int64) *RandomFood {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomFood{rng: rand.New(rand.NewSource(seed))}
}

func (f *RandomFood) Sample(n int) structs.Cell {
	f.mu.Lock()
	defer f.mu.Unlock()
	return GenerateRandomPosition(f.rng, n)
}

// GenerateRandomPosition 生成随机位置，x、y 各自独立均匀分布在 [0, n)
func GenerateRandomPosition(rng *rand.Rand, n int) structs.Cell {
	return structs.Cell{
		X: rng.Intn(n),
		Y: rng.Intn(n),
	}
}
