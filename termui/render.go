package termui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hoshinonyaruko/snake-web/structs"
)

var (
	headStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	bodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	foodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Faint(true)
	overStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

const (
	cellEmpty = "  "
	cellBody  = "[]"
	cellHead  = "@@"
	cellFood  = "()"
)

// ClearScreen clears the terminal and moves cursor to top-left.
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}

// HideCursor hides the terminal cursor.
func HideCursor(w io.Writer) {
	fmt.Fprint(w, "\033[?25l")
}

// ShowCursor shows the terminal cursor.
func ShowCursor(w io.Writer) {
	fmt.Fprint(w, "\033[?25h")
}

// Render draws one frame from the top-left corner. Lines end in \r\n
// because the terminal is in raw mode.
func Render(w io.Writer, snap structs.Snapshot) error {
	var sb strings.Builder
	sb.WriteString("\033[H")

	board := structs.Board(snap)
	n := len(board)
	border := "+" + strings.Repeat("-", n*2) + "+\r\n"

	var head structs.Cell
	if len(snap.Snake) > 0 {
		head = snap.Snake[0]
	}

	sb.WriteString(border)
	for y, row := range board {
		sb.WriteByte('|')
		for x, kind := range row {
			switch {
			case kind == structs.SnakeSegment && x == head.X && y == head.Y:
				sb.WriteString(headStyle.Render(cellHead))
			case kind == structs.SnakeSegment:
				sb.WriteString(bodyStyle.Render(cellBody))
			case kind == structs.Food:
				sb.WriteString(foodStyle.Render(cellFood))
			default:
				sb.WriteString(cellEmpty)
			}
		}
		sb.WriteString("|\r\n")
	}
	sb.WriteString(border)

	status := fmt.Sprintf("Score: %d  High score: %d  Speed: %dms", snap.Score, snap.HighScore, snap.Speed)
	sb.WriteString(statusStyle.Render(status))
	sb.WriteString("\033[K\r\n")
	if snap.Status == structs.GameOver {
		sb.WriteString(overStyle.Render("GAME OVER  r: restart  q: quit"))
	} else {
		sb.WriteString("arrows/wasd/hjkl: move  +/-: speed  r: restart  q: quit")
	}
	sb.WriteString("\033[K\r\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// Bell is the terminal's sound cue: one beep on eat, two on game over.
func Bell(w io.Writer, ev structs.Event) {
	switch ev {
	case structs.EventEat:
		io.WriteString(w, "\a")
	case structs.EventGameOver:
		io.WriteString(w, "\a\a")
	}
}
