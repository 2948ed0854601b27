package engine

import (
	"testing"
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

func TestMetricsRollingAverage(t *testing.T) {
	m := NewMetricsTracker()
	m.Record(10*time.Millisecond, false)
	m.Record(20*time.Millisecond, false)

	if avg := m.AvgFrameTime(); avg != 15*time.Millisecond {
		t.Errorf("avg = %v, want 15ms", avg)
	}
	if m.TotalFrames() != 2 {
		t.Errorf("totalFrames = %d, want 2", m.TotalFrames())
	}
}

func TestMetricsRingIsBounded(t *testing.T) {
	m := NewMetricsTracker()

	// Fill with slow frames, then flood with fast ones; the rolling
	// average must reflect only the last FrameHistorySize samples
	for i := 0; i < parameter.FrameHistorySize; i++ {
		m.Record(100*time.Millisecond, false)
	}
	for i := 0; i < parameter.FrameHistorySize; i++ {
		m.Record(2*time.Millisecond, false)
	}

	if avg := m.AvgFrameTime(); avg != 2*time.Millisecond {
		t.Errorf("avg = %v after ring turnover, want 2ms", avg)
	}
	if m.TotalFrames() != 2*parameter.FrameHistorySize {
		t.Errorf("totalFrames = %d, want %d", m.TotalFrames(), 2*parameter.FrameHistorySize)
	}
}

func TestMetricsFrameRate(t *testing.T) {
	m := NewMetricsTracker()
	m.Record(20*time.Millisecond, false)

	if got := m.FrameRate(); got < 49.9 || got > 50.1 {
		t.Errorf("frameRate = %v, want ~50", got)
	}
}

func TestMetricsDroppedAndMax(t *testing.T) {
	m := NewMetricsTracker()
	m.Record(10*time.Millisecond, false)
	m.Record(40*time.Millisecond, true)
	m.Record(5*time.Millisecond, false)

	if m.DroppedFrames() != 1 {
		t.Errorf("droppedFrames = %d, want 1", m.DroppedFrames())
	}
	if m.MaxFrameTime() != 40*time.Millisecond {
		t.Errorf("maxFrameTime = %v, want 40ms", m.MaxFrameTime())
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetricsTracker()
	m.Record(10*time.Millisecond, true)
	m.Reset()

	if m.TotalFrames() != 0 || m.DroppedFrames() != 0 || m.AvgFrameTime() != 0 || m.MaxFrameTime() != 0 {
		t.Error("Reset did not clear tracker state")
	}
}

func TestEmptyTrackerReportsZero(t *testing.T) {
	m := NewMetricsTracker()
	if m.AvgFrameTime() != 0 {
		t.Error("empty tracker avg should be 0")
	}
	if m.FrameRate() != 0 {
		t.Error("empty tracker frame rate should be 0")
	}
}
