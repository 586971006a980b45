package game

import (
	"sort"
	"sync"
	"time"
)

// TimerID is an opaque handle for a scheduled callback. Sessions store only
// these values, never timer objects, so game records stay plain data.
type TimerID int64

// Scheduler arms and disarms delayed callbacks. It is the only source of
// asynchronous wake-ups in the engine. Cancel is an idempotent no-op for
// handles that already fired, were already cancelled, or never existed; a
// callback that raced a cancel may still run, so callbacks must re-check the
// session's current timer handle before mutating anything.
type Scheduler interface {
	Schedule(delay time.Duration, fn func(TimerID)) TimerID
	Cancel(id TimerID)
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	nextID TimerID
	timers map[TimerID]*time.Timer
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[TimerID]*time.Timer)}
}

func (s *TimerScheduler) Schedule(delay time.Duration, fn func(TimerID)) TimerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		fn(id)
	})
	return id
}

func (s *TimerScheduler) Cancel(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// CancelAll stops every pending timer. Used on shutdown.
func (s *TimerScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// ManualScheduler is a deterministic Scheduler for tests. Time only moves when
// Advance is called; due callbacks fire synchronously, in due order.
type ManualScheduler struct {
	mu      sync.Mutex
	nextID  TimerID
	now     time.Duration
	pending []manualTimer
}

type manualTimer struct {
	id  TimerID
	due time.Duration
	fn  func(TimerID)
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(delay time.Duration, fn func(TimerID)) TimerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.pending = append(s.pending, manualTimer{id: s.nextID, due: s.now + delay, fn: fn})
	return s.nextID
}

func (s *ManualScheduler) Cancel(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.pending {
		if t.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward and fires all callbacks that became due,
// outside the scheduler lock so callbacks may schedule or cancel freely.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []manualTimer
	var rest []manualTimer
	for _, t := range s.pending {
		if t.due <= s.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	s.pending = rest
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	for _, t := range due {
		t.fn(t.id)
	}
}

// Pending reports how many timers are armed.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
