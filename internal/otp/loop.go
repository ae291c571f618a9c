package otp

import (
	"context"
	"sync"
	"time"
)

// Loop is a serial executor: functions posted to it run one at a time, in order,
// on whichever goroutine calls Run or Drain. It plays the role of the UI thread for
// hosts that do not have one.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	notify func()
}

// NewLoop creates a loop whose queue holds up to buffer pending functions before
// Post blocks.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 64
	}
	return &Loop{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// SetNotify registers fn to be called after every successful Post. GUI hosts use
// it to wake their frame loop.
func (l *Loop) SetNotify(fn func()) {
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

// Post enqueues fn. It returns false if the loop has been closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.queue <- fn:
	case <-l.done:
		return false
	}

	l.mu.RLock()
	notify := l.notify
	l.mu.RUnlock()
	if notify != nil {
		notify()
	}
	return true
}

// Run executes posted functions until ctx is cancelled or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Drain runs every function currently queued without blocking and returns how
// many ran.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case fn := <-l.queue:
			fn()
			n++
		default:
			return n
		}
	}
}

// Close stops the loop. Pending functions are discarded.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// LoopScheduler is a Scheduler backed by the system clock whose callbacks are
// posted onto a Loop instead of running on the timer goroutine.
type LoopScheduler struct {
	loop *Loop
}

// NewLoopScheduler returns a scheduler delivering callbacks onto loop.
func NewLoopScheduler(loop *Loop) *LoopScheduler {
	return &LoopScheduler{loop: loop}
}

// Now returns the wall-clock time.
func (s *LoopScheduler) Now() time.Time {
	return time.Now()
}

// AfterFunc arranges for f to run on the loop after d. Stop must be called from
// the loop goroutine.
func (s *LoopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.loop.Post(func() {
			if t.stopped {
				return
			}
			t.fired = true
			f()
		})
	})
	return t
}

// loopTimer state is only touched on the loop goroutine. A Stop that races with
// an already-posted callback still wins because the callback checks stopped.
type loopTimer struct {
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *loopTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	t.timer.Stop()
	return active
}
