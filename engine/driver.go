package engine

import (
	"sync"
	"time"
)

// FrameHandle identifies one pending frame request for cancellation
type FrameHandle uint64

// FrameDriver abstracts the host animation-callback primitive.
// The scheduler keeps at most one request pending at a time
type FrameDriver interface {
	// RequestFrame schedules cb for the next frame slot
	RequestFrame(cb func(now time.Time)) FrameHandle

	// RequestFrameAfter schedules cb after an extra delay, used to let the
	// host recover following a severe overrun
	RequestFrameAfter(delay time.Duration, cb func(now time.Time)) FrameHandle

	// CancelFrame discards a pending request; unknown handles are ignored
	CancelFrame(h FrameHandle)
}

// TimerDriver drives frames from a wall-clock timer at a fixed interval,
// standing in for a host compositor on plain terminals
type TimerDriver struct {
	interval time.Duration

	mu     sync.Mutex
	nextID FrameHandle
	timers map[FrameHandle]*time.Timer
}

// NewTimerDriver creates a driver firing at the given interval per RequestFrame
func NewTimerDriver(interval time.Duration) *TimerDriver {
	return &TimerDriver{
		interval: interval,
		timers:   make(map[FrameHandle]*time.Timer),
	}
}

// RequestFrame implements FrameDriver
func (d *TimerDriver) RequestFrame(cb func(now time.Time)) FrameHandle {
	return d.RequestFrameAfter(d.interval, cb)
}

// RequestFrameAfter implements FrameDriver
func (d *TimerDriver) RequestFrameAfter(delay time.Duration, cb func(now time.Time)) FrameHandle {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.timers[id] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		_, pending := d.timers[id]
		delete(d.timers, id)
		d.mu.Unlock()
		if pending {
			cb(time.Now())
		}
	})
	d.mu.Unlock()
	return id
}

// CancelFrame implements FrameDriver
func (d *TimerDriver) CancelFrame(h FrameHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[h]; ok {
		t.Stop()
		delete(d.timers, h)
	}
}

// ManualDriver queues frame requests until Step is called, giving tests
// full control over frame delivery and timing
type ManualDriver struct {
	mu        sync.Mutex
	nextID    FrameHandle
	pending   map[FrameHandle]func(now time.Time)
	lastDelay time.Duration
}

// NewManualDriver creates an empty manual driver
func NewManualDriver() *ManualDriver {
	return &ManualDriver{
		pending: make(map[FrameHandle]func(now time.Time)),
	}
}

// RequestFrame implements FrameDriver
func (d *ManualDriver) RequestFrame(cb func(now time.Time)) FrameHandle {
	return d.RequestFrameAfter(0, cb)
}

// RequestFrameAfter implements FrameDriver
func (d *ManualDriver) RequestFrameAfter(delay time.Duration, cb func(now time.Time)) FrameHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.pending[d.nextID] = cb
	d.lastDelay = delay
	return d.nextID
}

// CancelFrame implements FrameDriver
func (d *ManualDriver) CancelFrame(h FrameHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, h)
}

// Step fires all pending frame callbacks with the given timestamp and
// returns how many fired
func (d *ManualDriver) Step(now time.Time) int {
	d.mu.Lock()
	cbs := make([]func(time.Time), 0, len(d.pending))
	for id, cb := range d.pending {
		cbs = append(cbs, cb)
		delete(d.pending, id)
	}
	d.mu.Unlock()

	for _, cb := range cbs {
		cb(now)
	}
	return len(cbs)
}

// PendingCount returns the number of undelivered frame requests
func (d *ManualDriver) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// LastDelay returns the delay of the most recent request, zero for
// immediate scheduling
func (d *ManualDriver) LastDelay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastDelay
}
