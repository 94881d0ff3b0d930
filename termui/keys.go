// Package termui 终端前端，本地终端和 SSH 会话共用
package termui

// Action is one decoded key press.
type Action int

const (
	ActionUp Action = iota + 1
	ActionDown
	ActionLeft
	ActionRight
	ActionReset
	ActionFaster
	ActionSlower
	ActionQuit
)

// SpeedStep is how much + and - change the tick period, in ms.
const SpeedStep = 25

// ParseKeys decodes raw terminal bytes. Arrow keys arrive as ESC [ A..D;
// a sequence split across two reads is dropped.
func ParseKeys(buf []byte) []Action {
	var actions []Action
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == '\x1b' {
			if i+2 < len(buf) && buf[i+1] == '[' {
				switch buf[i+2] {
				case 'A':
					actions = append(actions, ActionUp)
				case 'B':
					actions = append(actions, ActionDown)
				case 'C':
					actions = append(actions, ActionRight)
				case 'D':
					actions = append(actions, ActionLeft)
				}
				i += 2
			}
			continue
		}
		if a, ok := keyAction(b); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

func keyAction(b byte) (Action, bool) {
	switch b {
	case 'w', 'W', 'k', 'K':
		return ActionUp, true
	case 's', 'S', 'j', 'J':
		return ActionDown, true
	case 'a', 'A', 'h', 'H':
		return ActionLeft, true
	case 'd', 'D', 'l', 'L':
		return ActionRight, true
	case 'r', 'R':
		return ActionReset, true
	case '+', '=':
		return ActionFaster, true
	case '-', '_':
		return ActionSlower, true
	case 'q', 'Q', 0x03: // Ctrl-C
		return ActionQuit, true
	}
	return 0, false
}
