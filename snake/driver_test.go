package snake

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hoshinonyaruko/snake-web/structs"
)

type maxKeeper struct{ best int }

func (k *maxKeeper) Observe(score int) int {
	if score > k.best {
		k.best = score
	}
	return k.best
}

// startDriver runs a driver on a fast engine and returns its update stream.
func startDriver(t *testing.T, e *Engine, opts ...DriverOption) (*Driver, <-chan structs.Update) {
	t.Helper()
	updates := make(chan structs.Update, 256)
	opts = append(opts, WithObserver(func(u structs.Update) {
		select {
		case updates <- u:
		default:
		}
	}))
	d := NewDriver(e, opts...)
	go d.Run(context.Background())
	t.Cleanup(d.Stop)
	return d, updates
}

func waitFor(t *testing.T, updates <-chan structs.Update, timeout time.Duration, match func(structs.Update) bool) structs.Update {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case u := <-updates:
			if match(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for update")
			return structs.Update{}
		}
	}
}

func TestDriverTicksUntilWall(t *testing.T) {
	e := NewEngine(WithFoodSampler(&seqFood{cells: []structs.Cell{{X: 0, Y: 29}}}))
	e.SetSpeed(structs.MinSpeed)
	_, updates := startDriver(t, e)

	u := waitFor(t, updates, 3*time.Second, func(u structs.Update) bool {
		return u.Event == structs.EventGameOver
	})
	if head := u.Snapshot.Snake[0]; head != (structs.Cell{X: 10, Y: 0}) {
		t.Errorf("head at game over = %v, want (10,0)", head)
	}

	// 游戏结束后定时器不再触发
	select {
	case u := <-updates:
		t.Errorf("unexpected update after game over: %+v", u)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDriverAppliesDirectionOnNextTick(t *testing.T) {
	e := NewEngine(WithFoodSampler(&seqFood{cells: []structs.Cell{{X: 0, Y: 29}}}))
	e.SetSpeed(structs.MaxSpeed)
	d, updates := startDriver(t, e)

	d.Direction(structs.Left)
	u := waitFor(t, updates, 2*time.Second, func(u structs.Update) bool {
		return u.Snapshot.Snake[0] != StartCell
	})
	if got := u.Snapshot.Snake[0]; got != (structs.Cell{X: 9, Y: 10}) {
		t.Errorf("head = %v, want (9,10)", got)
	}
}

func TestDriverSpeedChangeRearms(t *testing.T) {
	e := NewEngine(WithFoodSampler(&seqFood{cells: []structs.Cell{{X: 0, Y: 29}}}))
	e.SetSpeed(structs.MaxSpeed)
	d, updates := startDriver(t, e)

	waitFor(t, updates, time.Second, func(u structs.Update) bool { return true })
	d.SetSpeed(10)
	u := waitFor(t, updates, time.Second, func(u structs.Update) bool {
		return u.Snapshot.Speed == structs.MinSpeed
	})
	changed := time.Now()
	if u.Snapshot.Slider != structs.MaxSpeed-structs.MinSpeed {
		t.Errorf("slider = %d", u.Snapshot.Slider)
	}

	waitFor(t, updates, time.Second, func(u structs.Update) bool {
		return u.Snapshot.Snake[0] != StartCell
	})
	if elapsed := time.Since(changed); elapsed > 400*time.Millisecond {
		t.Errorf("first tick after speed change took %v", elapsed)
	}
}

func TestDriverResetAfterGameOver(t *testing.T) {
	e := NewEngine(WithFoodSampler(&seqFood{cells: []structs.Cell{{X: 0, Y: 29}}}))
	e.SetSpeed(structs.MinSpeed)
	d, updates := startDriver(t, e)

	waitFor(t, updates, 3*time.Second, func(u structs.Update) bool {
		return u.Event == structs.EventGameOver
	})
	d.Reset()
	u := waitFor(t, updates, time.Second, func(u structs.Update) bool {
		return u.Snapshot.Status == structs.Running
	})
	if u.Snapshot.Speed != structs.DefaultSpeed {
		t.Errorf("speed after reset = %d", u.Snapshot.Speed)
	}
	waitFor(t, updates, time.Second, func(u structs.Update) bool {
		return u.Snapshot.Snake[0] != StartCell
	})
}

func TestDriverStopHaltsTicks(t *testing.T) {
	var calls atomic.Int64
	e := NewEngine()
	e.SetSpeed(structs.MinSpeed)
	d := NewDriver(e, WithObserver(func(structs.Update) { calls.Add(1) }))
	go d.Run(context.Background())

	time.Sleep(120 * time.Millisecond)
	d.Stop()
	select {
	case <-d.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}

	n := calls.Load()
	time.Sleep(150 * time.Millisecond)
	if calls.Load() != n {
		t.Error("observer called after Stop")
	}

	// 关闭后的命令直接丢弃
	d.Direction(structs.Left)
	d.Reset()
	d.SetSpeed(100)
}

func TestDriverRunTwice(t *testing.T) {
	d := NewDriver(NewEngine())
	go d.Run(context.Background())
	defer d.Stop()

	time.Sleep(20 * time.Millisecond)
	if err := d.Run(context.Background()); !errors.Is(err, ErrDriverStarted) {
		t.Errorf("second Run = %v, want ErrDriverStarted", err)
	}
}

func TestDriverStopBeforeRun(t *testing.T) {
	d := NewDriver(NewEngine())
	d.Stop()
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-d.Done()
}

func TestDriverContextCancel(t *testing.T) {
	d := NewDriver(NewEngine())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDriverHighScoreAndUnsubscribe(t *testing.T) {
	e := NewEngine(WithFoodSampler(&seqFood{cells: []structs.Cell{{X: 10, Y: 9}, {X: 10, Y: 8}, {X: 0, Y: 29}}}))
	e.SetSpeed(structs.MinSpeed)
	keeper := &maxKeeper{best: 1}
	d, updates := startDriver(t, e, WithScoreKeeper(keeper))

	var extra atomic.Int64
	unsubscribe := d.Subscribe(func(structs.Update) { extra.Add(1) })

	u := waitFor(t, updates, 2*time.Second, func(u structs.Update) bool {
		return u.Snapshot.Score == 2
	})
	if u.Snapshot.HighScore != 2 {
		t.Errorf("high score = %d, want 2", u.Snapshot.HighScore)
	}
	if d.Latest().Snapshot.HighScore < 2 {
		t.Errorf("latest high score = %d", d.Latest().Snapshot.HighScore)
	}

	unsubscribe()
	// 等待正在进行的 publish 结束
	time.Sleep(20 * time.Millisecond)
	n := extra.Load()
	if n == 0 {
		t.Error("subscriber never called")
	}
	waitFor(t, updates, time.Second, func(u structs.Update) bool { return true })
	if extra.Load() != n {
		t.Error("subscriber called after unsubscribe")
	}
}
