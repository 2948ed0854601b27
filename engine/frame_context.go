package engine

import (
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

// Mode selects the active frame budget
type Mode int

const (
	// ModeQuality runs the full visual pipeline under a 16ms budget
	ModeQuality Mode = iota

	// ModePerformance halves the budget under sustained overrun
	ModePerformance
)

func (m Mode) String() string {
	if m == ModePerformance {
		return "performance"
	}
	return "quality"
}

// Budget returns the per-frame time budget for the mode
func (m Mode) Budget() time.Duration {
	if m == ModePerformance {
		return parameter.PerformanceFrameBudget
	}
	return parameter.QualityFrameBudget
}

// Priority orders client execution within a frame. Lower runs first
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityNormal
	PriorityBackground
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityBackground:
		return "background"
	default:
		return "normal"
	}
}

// FrameContext is the immutable per-frame snapshot shared read-only with
// every client. Rebuilt at the top of each iteration, never persisted
type FrameContext struct {
	Timestamp     time.Time
	DeltaMs       float64
	Mode          Mode
	FrameBudgetMs float64
	BeatIntensity float64
	ScrollRatio   float64
	Tilt          float64
}
