package engine

import "time"

// AnimationClient is the structured client shape: a visual update routine
// driven once per eligible frame
type AnimationClient interface {
	Animate(deltaMs float64, fc *FrameContext)
}

// VisualClient is an AnimationClient that carries its own identity,
// registered at the default frame rate
type VisualClient interface {
	AnimationClient
	Name() string
}

// FrameFunc is the lightweight client shape: a plain per-frame function,
// never throttled and never budget-gated
type FrameFunc func(deltaMs float64, fc *FrameContext)

// ClientMetrics accumulates per-client execution statistics. Kept across
// enable/disable toggles, discarded on unregister
type ClientMetrics struct {
	FrameCount    uint64
	TotalTime     time.Duration
	AvgTime       time.Duration
	MaxTime       time.Duration
	SkippedFrames uint64
}

func (m *ClientMetrics) record(dur time.Duration) {
	m.FrameCount++
	m.TotalTime += dur
	m.AvgTime = m.TotalTime / time.Duration(m.FrameCount)
	if dur > m.MaxTime {
		m.MaxTime = dur
	}
}

// systemEntry is the registry record for both structured client shapes.
// The polymorphism is resolved once at registration time into invoke;
// the frame loop never branches on client shape
type systemEntry struct {
	name          string
	priority      Priority
	seq           uint64
	enabled       bool
	targetFPS     int
	frameInterval time.Duration
	lastUpdate    time.Time
	invoke        func(deltaMs float64, fc *FrameContext)
	metrics       ClientMetrics
}

// callbackEntry is the registry record for plain frame functions
type callbackEntry struct {
	id       int
	owner    string
	priority Priority
	seq      uint64
	fn       FrameFunc
	metrics  ClientMetrics
}

// SystemInfo is the external view of one registered client
type SystemInfo struct {
	Name      string
	Priority  Priority
	Enabled   bool
	TargetFPS int
	Metrics   ClientMetrics
}
