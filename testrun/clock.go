package testrun

import (
	"sort"
	"sync"
	"time"
)

// Clock schedules the run's ticks and delays.
type Clock interface {
	Now() time.Time
	// Every calls fn once per interval until the returned function is called.
	Every(interval time.Duration, fn func(time.Time)) (stop func())
	// AfterFunc calls fn once after d unless the returned function is called first.
	AfterFunc(d time.Duration, fn func()) (stop func())
}

type realClock struct{}

func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Every(interval time.Duration, fn func(time.Time)) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case t := <-ticker.C:
				fn(t)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

func (realClock) AfterFunc(d time.Duration, fn func()) func() {
	timer := time.AfterFunc(d, fn)
	return func() {
		timer.Stop()
	}
}

// ManualClock only moves when Advance is called. Due callbacks run on the caller's goroutine.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	nextId int
	timers map[int]*manualTimer
}

type manualTimer struct {
	id       int
	due      time.Time
	interval time.Duration
	fn       func(time.Time)
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{
		now:    start,
		timers: make(map[int]*manualTimer),
	}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) Every(interval time.Duration, fn func(time.Time)) func() {
	return m.schedule(interval, interval, fn)
}

func (m *ManualClock) AfterFunc(d time.Duration, fn func()) func() {
	return m.schedule(d, 0, func(time.Time) { fn() })
}

func (m *ManualClock) schedule(d, interval time.Duration, fn func(time.Time)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextId
	m.nextId++
	m.timers[id] = &manualTimer{id: id, due: m.now.Add(d), interval: interval, fn: fn}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.timers, id)
	}
}

// Advance moves the clock forward by d, firing every callback that falls due in order.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		if next.interval > 0 {
			next.due = next.due.Add(next.interval)
		} else {
			delete(m.timers, next.id)
		}
		now, fn := m.now, next.fn
		m.mu.Unlock()

		fn(now)
	}
}

func (m *ManualClock) nextDue(target time.Time) *manualTimer {
	due := make([]*manualTimer, 0)
	for _, t := range m.timers {
		if !t.due.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	return due[0]
}
