package api

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-web/structs"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServerMessage is pushed to the browser.
type ServerMessage struct {
	Type   string            `json:"type"` // config, state, sound
	Config *GameConfig       `json:"config,omitempty"`
	State  *structs.Snapshot `json:"state,omitempty"`
	Event  structs.Event     `json:"event,omitempty"`
}

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Action string `json:"action"`
	Value  int    `json:"value"`
}

// GameConfig 告诉前端网格和滑块的范围
type GameConfig struct {
	GridSize     int `json:"grid_size"`
	MinSpeed     int `json:"min_speed"`
	MaxSpeed     int `json:"max_speed"`
	DefaultSpeed int `json:"default_speed"`
}

func gameConfig() GameConfig {
	return GameConfig{
		GridSize:     structs.GridSize,
		MinSpeed:     structs.MinSpeed,
		MaxSpeed:     structs.MaxSpeed,
		DefaultSpeed: structs.DefaultSpeed,
	}
}

// messagesFor turns an update into what the browser needs: always the
// state, and a sound cue when the tick ate or ended the game.
func messagesFor(u structs.Update) []ServerMessage {
	snap := u.Snapshot
	msgs := []ServerMessage{{Type: "state", State: &snap}}
	if u.Event != structs.EventNone {
		msgs = append(msgs, ServerMessage{Type: "sound", Event: u.Event})
	}
	return msgs
}

// outbox buffers messages for one socket without ever blocking the driver.
// Only the newest state frame is kept; sound cues queue up and are dropped
// with a warning only when the queue is full.
type outbox struct {
	states chan ServerMessage
	sounds chan ServerMessage
	logger *log.Logger
}

func newOutbox(logger *log.Logger) *outbox {
	return &outbox{
		states: make(chan ServerMessage, 1),
		sounds: make(chan ServerMessage, 16),
		logger: logger,
	}
}

// push must be called from a single goroutine, the driver's.
func (o *outbox) push(u structs.Update) {
	for _, m := range messagesFor(u) {
		if m.Type == "sound" {
			select {
			case o.sounds <- m:
			default:
				o.logger.Warn("sound queue full, dropping", "event", m.Event)
			}
			continue
		}
		select {
		case o.states <- m:
			continue
		default:
		}
		// 旧帧作废
		select {
		case <-o.states:
		default:
		}
		o.states <- m
	}
}

// applyAction feeds one browser input into the session. Unknown actions are ignored.
func applyAction(s *Session, msg ClientMessage) {
	if dir, ok := structs.ParseDirection(msg.Action); ok {
		s.Driver.Direction(dir)
		return
	}
	switch msg.Action {
	case "reset", "restart":
		s.Driver.Reset()
	case "speed":
		s.Driver.SetSliderSpeed(msg.Value)
	case "period":
		s.Driver.SetSpeed(msg.Value)
	}
}

// WebSocketHandler streams one session to one browser. When the last socket
// of a session closes, the session ends.
func (h *Hub) WebSocketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := h.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		s.attach(1)
		var (
			detachOnce sync.Once
			remaining  int
		)
		detach := func() int {
			detachOnce.Do(func() { remaining = s.attach(-1) })
			return remaining
		}
		defer detach()

		logger := h.logger.With("session", s.ID, "remote", c.Request.RemoteAddr)
		logger.Info("websocket connected")

		done := make(chan struct{})
		var closeOnce sync.Once
		stop := func() { closeOnce.Do(func() { close(done) }) }

		out := newOutbox(logger)
		unsubscribe := s.Driver.Subscribe(out.push)
		defer unsubscribe()

		cfg := gameConfig()
		latest := s.Driver.Latest().Snapshot
		if err := conn.WriteJSON(ServerMessage{Type: "config", Config: &cfg}); err != nil {
			return
		}
		if err := conn.WriteJSON(ServerMessage{Type: "state", State: &latest}); err != nil {
			return
		}

		go func() {
			defer stop()
			for {
				var msg ClientMessage
				if err := conn.ReadJSON(&msg); err != nil {
					logger.Debug("read ended", "err", err)
					return
				}
				s.touch()
				applyAction(s, msg)
			}
		}()

		for {
			select {
			case <-done:
				// 还有别的页面连着就不结束
				if detach() == 0 {
					h.Delete(s.ID)
				}
				logger.Info("websocket closed")
				return
			case <-s.Driver.Done():
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			case m := <-out.states:
				if err := conn.WriteJSON(m); err != nil {
					logger.Warn("write failed", "err", err)
					stop()
				}
			case m := <-out.sounds:
				if err := conn.WriteJSON(m); err != nil {
					logger.Warn("write failed", "err", err)
					stop()
				}
			}
		}
	}
}
