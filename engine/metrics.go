package engine

import (
	"sync"
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

// MetricsTracker keeps a bounded rolling history of frame times.
// All derived values come from the fixed-capacity ring; nothing here
// accumulates unboundedly except the monotonic counters
type MetricsTracker struct {
	mu      sync.RWMutex
	samples [parameter.FrameHistorySize]time.Duration
	next    int
	count   int

	totalFrames   uint64
	droppedFrames uint64
	maxFrameTime  time.Duration
}

// NewMetricsTracker creates an empty tracker
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{}
}

// Record pushes one measured frame time. dropped marks frames that
// exceeded the overrun threshold
func (t *MetricsTracker) Record(frameTime time.Duration, dropped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples[t.next] = frameTime
	t.next = (t.next + 1) % parameter.FrameHistorySize
	if t.count < parameter.FrameHistorySize {
		t.count++
	}

	t.totalFrames++
	if dropped {
		t.droppedFrames++
	}
	if frameTime > t.maxFrameTime {
		t.maxFrameTime = frameTime
	}
}

// AvgFrameTime returns the rolling average over the ring, zero when empty
func (t *MetricsTracker) AvgFrameTime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.avgLocked()
}

func (t *MetricsTracker) avgLocked() time.Duration {
	if t.count == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < t.count; i++ {
		sum += t.samples[i]
	}
	return sum / time.Duration(t.count)
}

// FrameRate derives frames-per-second from the rolling average
func (t *MetricsTracker) FrameRate() float64 {
	avg := t.AvgFrameTime()
	if avg <= 0 {
		return 0
	}
	return 1000.0 / (float64(avg) / float64(time.Millisecond))
}

// TotalFrames returns the monotonic frame counter
func (t *MetricsTracker) TotalFrames() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalFrames
}

// DroppedFrames returns the monotonic dropped-frame counter
func (t *MetricsTracker) DroppedFrames() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.droppedFrames
}

// MaxFrameTime returns the worst frame observed since start
func (t *MetricsTracker) MaxFrameTime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxFrameTime
}

// Reset clears the ring and counters. Called on scheduler start
func (t *MetricsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = 0
	t.count = 0
	t.totalFrames = 0
	t.droppedFrames = 0
	t.maxFrameTime = 0
}
