package structs

// CellKind is what a renderer draws in one grid cell.
type CellKind int

const (
	Empty CellKind = iota
	SnakeSegment
	Food
)

// Board classifies every cell of the snapshot's grid, indexed [y][x].
// A segment lying on the food wins, since the snake is drawn over it.
func Board(s Snapshot) [][]CellKind {
	n := s.GridSize
	if n <= 0 {
		n = GridSize
	}
	board := make([][]CellKind, n)
	for y := range board {
		board[y] = make([]CellKind, n)
	}
	if s.Food.InBounds(n) {
		board[s.Food.Y][s.Food.X] = Food
	}
	for _, c := range s.Snake {
		if c.InBounds(n) {
			board[c.Y][c.X] = SnakeSegment
		}
	}
	return board
}
