// Package scheduler runs recurring callbacks on a single cooperative loop.
// Each task has an interval, a priority and a small random jitter; a task
// keeps running until its callback returns Stop or it is cancelled.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Priority orders tasks that fall due together.
type Priority int

const (
	Default Priority = iota
	High
)

// Result tells the scheduler whether to run a task again.
type Result bool

const (
	Continue Result = true
	Stop     Result = false
)

// Func is a recurring callback.
type Func func() Result

// Handle identifies a scheduled task. The zero Handle is never issued.
type Handle uint64

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock only moves when advanced.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock at an arbitrary fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(1_700_000_000, 0)}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type task struct {
	handle   Handle
	name     string
	priority Priority
	interval time.Duration
	due      time.Time
	fn       Func
}

// Scheduler is a cooperative timer loop. Schedule, Cancel and Reschedule
// are safe from any goroutine; callbacks all run on the goroutine calling
// Run or RunDue.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[Handle]*task
	next   Handle
	clock  Clock
	rng    *rand.Rand
	jitter float64
	wake   chan struct{}
	log    *slog.Logger
}

// New creates a scheduler. jitter is the fractional spread of each interval
// (0.05 spreads intervals over ±5%).
func New(clock Clock, rng *rand.Rand, jitter float64) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		tasks:  make(map[Handle]*task),
		clock:  clock,
		rng:    rng,
		jitter: jitter,
		wake:   make(chan struct{}, 1),
		log:    slog.Default().With("component", "scheduler"),
	}
}

// Seconds converts fractional seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (s *Scheduler) spread(d time.Duration) time.Duration {
	f := 1 - s.jitter + 2*s.jitter*s.rng.Float64()
	return time.Duration(float64(d) * f)
}

// Schedule runs fn every interval, first after one interval.
func (s *Scheduler) Schedule(name string, p Priority, interval time.Duration, fn Func) Handle {
	if interval <= 0 {
		interval = time.Millisecond
	}
	s.mu.Lock()
	s.next++
	t := &task{
		handle:   s.next,
		name:     name,
		priority: p,
		interval: interval,
		due:      s.clock.Now().Add(s.spread(interval)),
		fn:       fn,
	}
	s.tasks[t.handle] = t
	s.mu.Unlock()
	s.poke()
	return t.handle
}

// Cancel removes a task. Cancelling an unknown or finished task is a no-op.
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	delete(s.tasks, h)
	s.mu.Unlock()
}

// Reschedule changes a task's interval, effective from now.
func (s *Scheduler) Reschedule(h Handle, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[h]
	if !ok {
		return false
	}
	t.interval = interval
	t.due = s.clock.Now().Add(s.spread(interval))
	return true
}

// Len returns the number of scheduled tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// RunDue runs every task due now, high priority first and then by due
// time, and returns how many ran.
func (s *Scheduler) RunDue() int {
	now := s.clock.Now()
	s.mu.Lock()
	var ready []*task
	for _, t := range s.tasks {
		if !t.due.After(now) {
			ready = append(ready, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(ready, func(i, j int) bool {
		if ready[i].priority != ready[j].priority {
			return ready[i].priority > ready[j].priority
		}
		if !ready[i].due.Equal(ready[j].due) {
			return ready[i].due.Before(ready[j].due)
		}
		return ready[i].handle < ready[j].handle
	})

	ran := 0
	for _, t := range ready {
		s.mu.Lock()
		_, live := s.tasks[t.handle]
		s.mu.Unlock()
		if !live {
			continue
		}

		res := s.call(t)
		ran++

		s.mu.Lock()
		if _, live := s.tasks[t.handle]; live {
			if res == Stop {
				delete(s.tasks, t.handle)
			} else {
				t.due = s.clock.Now().Add(s.spread(t.interval))
			}
		}
		s.mu.Unlock()
	}
	return ran
}

// call runs one callback. A panic stops the task.
func (s *Scheduler) call(t *task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked, cancelling", "task", t.name, "panic", fmt.Sprint(r))
			res = Stop
		}
	}()
	return t.fn()
}

// NextDue returns the earliest due time and whether any task is scheduled.
func (s *Scheduler) NextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next time.Time
	found := false
	for _, t := range s.tasks {
		if !found || t.due.Before(next) {
			next, found = t.due, true
		}
	}
	return next, found
}

// Run drives the loop until ctx is cancelled or no tasks remain.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		s.RunDue()

		next, ok := s.NextDue()
		if !ok {
			return nil
		}
		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}
