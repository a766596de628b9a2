// Package syncutil holds locking primitives shared by the overlay's execution contexts.
package syncutil

import "sync"

// SoftMutex is a mutex with a bounded-retry acquire. A caller on the
// cooperative loop uses SoftLock with its own Attempts counter: each call
// makes one non-blocking attempt, and only after more than Tries consecutive
// failures does a call fall back to a blocking Lock.
type SoftMutex struct {
	mu    sync.Mutex
	Tries int
}

// Attempts counts one caller's consecutive failed soft acquisitions.
type Attempts struct {
	failed int
}

// Failed returns the current run of failed attempts.
func (a *Attempts) Failed() int { return a.failed }

// NewSoftMutex creates a SoftMutex that blocks after tries failed attempts.
func NewSoftMutex(tries int) *SoftMutex {
	if tries < 1 {
		tries = 1
	}
	return &SoftMutex{Tries: tries}
}

// Lock blocks until the mutex is held.
func (m *SoftMutex) Lock() { m.mu.Lock() }

// Unlock releases the mutex.
func (m *SoftMutex) Unlock() { m.mu.Unlock() }

// TryLock makes a single non-blocking attempt.
func (m *SoftMutex) TryLock() bool { return m.mu.TryLock() }

// SoftLock reports whether the mutex was acquired. A false return means the
// caller should skip this cycle and try again on its next invocation.
func (m *SoftMutex) SoftLock(a *Attempts) bool {
	if a.failed < 0 {
		a.failed = 0
	}
	a.failed++

	if a.failed > m.Tries {
		m.mu.Lock()
		a.failed = 0
		return true
	}
	if m.mu.TryLock() {
		a.failed = 0
		return true
	}
	return false
}
