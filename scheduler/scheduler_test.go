package scheduler

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func newTest() (*Scheduler, *ManualClock) {
	c := NewManualClock()
	return New(c, rand.New(rand.NewSource(1)), 0.05), c
}

func TestIntervalWithJitter(t *testing.T) {
	s, c := newTest()
	runs := 0
	s.Schedule("tick", Default, 100*time.Millisecond, func() Result {
		runs++
		return Continue
	})

	c.Advance(94 * time.Millisecond)
	if s.RunDue() != 0 {
		t.Fatal("task ran before the jitter window")
	}
	c.Advance(12 * time.Millisecond)
	if s.RunDue() != 1 {
		t.Fatal("task did not run after the jitter window")
	}

	for i := 0; i < 100; i++ {
		c.Advance(106 * time.Millisecond)
		s.RunDue()
	}
	if runs != 101 {
		t.Errorf("runs = %d, want 101", runs)
	}
}

func TestStopAndCancel(t *testing.T) {
	s, c := newTest()
	stopRuns, cancelRuns := 0, 0
	s.Schedule("once", Default, 10*time.Millisecond, func() Result {
		stopRuns++
		return Stop
	})
	h := s.Schedule("cancelled", Default, 10*time.Millisecond, func() Result {
		cancelRuns++
		return Continue
	})

	c.Advance(20 * time.Millisecond)
	s.RunDue()
	s.Cancel(h)
	for i := 0; i < 5; i++ {
		c.Advance(20 * time.Millisecond)
		s.RunDue()
	}

	if stopRuns != 1 || cancelRuns != 1 {
		t.Errorf("stop runs=%d cancel runs=%d, want 1 and 1", stopRuns, cancelRuns)
	}
	if s.Len() != 0 {
		t.Errorf("%d tasks left", s.Len())
	}
	s.Cancel(h)
}

func TestPriorityOrder(t *testing.T) {
	s, c := newTest()
	var order []string
	s.Schedule("default", Default, 10*time.Millisecond, func() Result {
		order = append(order, "default")
		return Stop
	})
	s.Schedule("high", High, 10*time.Millisecond, func() Result {
		order = append(order, "high")
		return Stop
	})

	c.Advance(time.Second)
	s.RunDue()
	if len(order) != 2 || order[0] != "high" {
		t.Errorf("order = %v, want high first", order)
	}
}

func TestPanicCancelsTask(t *testing.T) {
	s, c := newTest()
	other := 0
	s.Schedule("bad", Default, 10*time.Millisecond, func() Result {
		panic("boom")
	})
	s.Schedule("good", Default, 10*time.Millisecond, func() Result {
		other++
		return Continue
	})

	for i := 0; i < 3; i++ {
		c.Advance(20 * time.Millisecond)
		s.RunDue()
	}
	if s.Len() != 1 {
		t.Errorf("tasks = %d, want only the healthy one", s.Len())
	}
	if other != 3 {
		t.Errorf("healthy task ran %d times", other)
	}
}

func TestCancelFromCallback(t *testing.T) {
	s, c := newTest()
	var victim Handle
	victimRuns := 0
	s.Schedule("killer", High, 10*time.Millisecond, func() Result {
		s.Cancel(victim)
		return Stop
	})
	victim = s.Schedule("victim", Default, 10*time.Millisecond, func() Result {
		victimRuns++
		return Continue
	})

	c.Advance(20 * time.Millisecond)
	s.RunDue()
	if victimRuns != 0 {
		t.Error("task cancelled earlier in the same pass still ran")
	}
}

func TestReschedule(t *testing.T) {
	s, c := newTest()
	runs := 0
	h := s.Schedule("slow", Default, time.Hour, func() Result {
		runs++
		return Continue
	})
	if !s.Reschedule(h, 10*time.Millisecond) {
		t.Fatal("reschedule of live task failed")
	}
	c.Advance(20 * time.Millisecond)
	s.RunDue()
	if runs != 1 {
		t.Errorf("runs = %d after reschedule", runs)
	}
	if s.Reschedule(Handle(999), time.Second) {
		t.Error("reschedule of unknown handle succeeded")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(SystemClock{}, rand.New(rand.NewSource(1)), 0.05)
	runs := 0
	s.Schedule("tick", Default, time.Millisecond, func() Result {
		runs++
		if runs == 3 {
			return Stop
		}
		return Continue
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
}
