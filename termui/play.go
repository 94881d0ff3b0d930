package termui

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/hoshinonyaruko/snake-web/snake"
	"github.com/hoshinonyaruko/snake-web/structs"
)

// Play runs one game on a terminal until the player quits, r ends or ctx
// is cancelled. keeper may be nil.
func Play(ctx context.Context, r io.Reader, w io.Writer, keeper snake.ScoreKeeper, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 只保留最新一帧，慢终端不会拖住 driver
	frames := make(chan structs.Update, 1)
	opts := []snake.DriverOption{
		snake.WithLogger(logger),
		snake.WithObserver(func(u structs.Update) {
			select {
			case frames <- u:
				return
			default:
			}
			select {
			case old := <-frames:
				// 声音不能丢
				if u.Event == structs.EventNone {
					u.Event = old.Event
				}
			default:
			}
			frames <- u
		}),
	}
	if keeper != nil {
		opts = append(opts, snake.WithScoreKeeper(keeper))
	}
	engine := snake.NewEngine()
	driver := snake.NewDriver(engine, opts...)

	HideCursor(w)
	ClearScreen(w)

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for u := range frames {
			if err := Render(w, u.Snapshot); err != nil {
				logger.Debug("render failed", "err", err)
				cancel()
				continue
			}
			Bell(w, u.Event)
		}
	}()

	input := make(chan []Action)
	go func() {
		defer close(input)
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				select {
				case input <- ParseKeys(buf[:n]):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	go driver.Run(ctx)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case actions, ok := <-input:
			if !ok {
				break loop
			}
			if quit := apply(driver, engine, actions); quit {
				break loop
			}
		}
	}

	driver.Stop()
	close(frames)
	<-rendered

	ShowCursor(w)
	logger.Info("game ended", "score", engine.Score())
	return nil
}

// apply forwards actions to the driver and reports whether the player quit.
func apply(d *snake.Driver, e *snake.Engine, actions []Action) bool {
	for _, a := range actions {
		switch a {
		case ActionUp:
			d.Direction(structs.Up)
		case ActionDown:
			d.Direction(structs.Down)
		case ActionLeft:
			d.Direction(structs.Left)
		case ActionRight:
			d.Direction(structs.Right)
		case ActionReset:
			d.Reset()
		case ActionFaster:
			d.SetSpeed(e.Speed() - SpeedStep)
		case ActionSlower:
			d.SetSpeed(e.Speed() + SpeedStep)
		case ActionQuit:
			return true
		}
	}
	return false
}
