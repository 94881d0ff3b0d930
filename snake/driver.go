package snake

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hoshinonyaruko/snake-web/structs"
)

// ErrDriverStarted is returned when Run is called twice on one driver.
var ErrDriverStarted = errors.New("snake: driver already started")

// Observer receives every published update. It runs on the driver
// goroutine and must not block.
type Observer func(structs.Update)

// ScoreKeeper turns the current score into the high score shown to players.
type ScoreKeeper interface {
	Observe(score int) int
}

// command mutates the engine on the driver goroutine. publish asks for an
// update to be sent, rearm for the timer to be recreated.
type command struct {
	name  string
	apply func(e *Engine) (publish, rearm bool)
}

type subscriber struct {
	id int
	fn Observer
}

// Driver is the timer that calls Tick. One goroutine owns one timer and
// executes every engine mutation, so ticks never overlap and direction
// changes land between ticks.
type Driver struct {
	engine *Engine
	keeper ScoreKeeper
	logger *log.Logger
	cmds   chan command
	done   chan struct{}
	latest atomic.Pointer[structs.Update]

	mu          sync.Mutex
	subscribers []subscriber
	nextID      int
	started     bool
	stopped     bool
	cancel      context.CancelFunc
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithObserver registers an observer before the driver starts.
func WithObserver(o Observer) DriverOption {
	return func(d *Driver) {
		d.addObserver(o)
	}
}

// WithScoreKeeper sets who tracks the high score.
func WithScoreKeeper(k ScoreKeeper) DriverOption {
	return func(d *Driver) {
		d.keeper = k
	}
}

// WithLogger sets the driver's logger.
func WithLogger(l *log.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = l
	}
}

// NewDriver wraps engine. Call Run to start ticking.
func NewDriver(engine *Engine, opts ...DriverOption) *Driver {
	d := &Driver{
		engine: engine,
		logger: log.Default(),
		cmds:   make(chan command, 32),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.latest.Store(&structs.Update{Snapshot: d.snapshot()})
	return d
}

// Engine returns the engine being driven.
func (d *Driver) Engine() *Engine {
	return d.engine
}

// Run ticks the engine until ctx is cancelled or Stop is called.
func (d *Driver) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrDriverStarted
	}
	d.started = true
	if d.stopped {
		d.mu.Unlock()
		close(d.done)
		return nil
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()
	defer close(d.done)

	var (
		timer *time.Timer
		tick  <-chan time.Time
	)
	// 周期改变时丢弃旧定时器，重新创建，避免两个定时器同时存在
	arm := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, tick = nil, nil
		if d.engine.Status() != structs.Running {
			return
		}
		timer = time.NewTimer(time.Duration(d.engine.Speed()) * time.Millisecond)
		tick = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	d.publish(structs.EventNone)
	arm()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			ev := d.engine.Tick()
			if ev == structs.EventGameOver {
				d.logger.Info("game over", "score", d.engine.Score())
			}
			d.publish(ev)
			if d.engine.Status() == structs.Running {
				timer.Reset(time.Duration(d.engine.Speed()) * time.Millisecond)
			} else {
				timer, tick = nil, nil
			}
		case cmd := <-d.cmds:
			// 已经进入关闭流程的命令不再执行
			if ctx.Err() != nil {
				return nil
			}
			publish, rearm := cmd.apply(d.engine)
			if publish {
				d.publish(structs.EventNone)
			}
			if rearm {
				arm()
			}
		}
	}
}

// Stop cancels Run and waits for it to return. No tick fires afterwards.
func (d *Driver) Stop() {
	d.mu.Lock()
	d.stopped = true
	cancel, started := d.cancel, d.started
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-d.done
	}
}

// Done is closed once Run has returned.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Direction queues a direction change for the next tick.
func (d *Driver) Direction(dir structs.Direction) {
	d.send(command{name: "direction", apply: func(e *Engine) (bool, bool) {
		return e.RequestDirectionChange(dir), false
	}})
}

// Reset queues a new game.
func (d *Driver) Reset() {
	d.send(command{name: "reset", apply: func(e *Engine) (bool, bool) {
		e.Reset()
		d.logger.Debug("game reset")
		return true, true
	}})
}

// SetSpeed queues a period change in milliseconds.
func (d *Driver) SetSpeed(ms int) {
	d.send(command{name: "speed", apply: func(e *Engine) (bool, bool) {
		e.SetSpeed(ms)
		return true, true
	}})
}

// SetSliderSpeed queues a period change from an inverted slider value.
func (d *Driver) SetSliderSpeed(v int) {
	d.send(command{name: "speed", apply: func(e *Engine) (bool, bool) {
		e.SetSpeedFromSlider(v)
		return true, true
	}})
}

func (d *Driver) send(c command) {
	select {
	case <-d.done:
		return
	default:
	}
	select {
	case d.cmds <- c:
	case <-d.done:
	default:
		d.logger.Warn("command queue full, dropping", "command", c.name)
	}
}

// Latest returns the most recently published update.
func (d *Driver) Latest() structs.Update {
	return *d.latest.Load()
}

// Subscribe adds an observer and returns a function that removes it.
func (d *Driver) Subscribe(o Observer) (unsubscribe func()) {
	id := d.addObserver(o)
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.subscribers {
			if s.id == id {
				d.subscribers = append(d.subscribers[:i:i], d.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (d *Driver) addObserver(o Observer) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.subscribers = append(d.subscribers, subscriber{id: d.nextID, fn: o})
	return d.nextID
}

func (d *Driver) snapshot() structs.Snapshot {
	snap := d.engine.Snapshot()
	if d.keeper != nil {
		snap.HighScore = d.keeper.Observe(snap.Score)
	}
	return snap
}

func (d *Driver) publish(ev structs.Event) {
	u := structs.Update{Snapshot: d.snapshot(), Event: ev}
	d.latest.Store(&u)

	d.mu.Lock()
	subs := make([]subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.Unlock()

	for _, s := range subs {
		s.fn(u)
	}
}
