package engine

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

// Config carries construction-time scheduler options. Zero values select
// production defaults
type Config struct {
	// Driver supplies host frame callbacks. Defaults to a wall-clock
	// TimerDriver at the nominal frame interval
	Driver FrameDriver

	// Time is the clock used for budget measurement. Defaults to the
	// monotonic system clock
	Time TimeProvider

	// Logger receives debug/error output. Defaults to a discard logger
	// unless EnableDebugLogging is set
	Logger *slog.Logger

	// EnableDebugLogging routes the default logger to slog.Default
	EnableDebugLogging bool
}

// PerformanceMetrics is the externally queryable frame-loop health snapshot
type PerformanceMetrics struct {
	TotalFrames    uint64
	DroppedFrames  uint64
	AvgFrameTime   time.Duration
	MaxFrameTime   time.Duration
	Mode           Mode
	ActiveClients  int
	FrameRate      float64
	LastModeSwitch time.Time
}

// Scheduler drives one cooperative iteration per host frame callback:
// frame callbacks, then animation clients by priority under the budget,
// then interpolation/beat-sync, then the slow choreography tick.
// Construct exactly one per process and pass it to every registrant
type Scheduler struct {
	driver FrameDriver
	time   TimeProvider
	log    *slog.Logger

	registry *Registry
	metrics  *MetricsTracker
	modes    *modeController

	running atomic.Bool
	paused  atomic.Bool

	mu          sync.Mutex // guards handle, lastFrame, hooks, music
	handle      FrameHandle
	havePending bool
	lastFrame   time.Time
	interp      []FrameAdvancer
	slow        []FrameAdvancer
	music       MusicState

	scrollBits atomic.Uint64
	tiltBits   atomic.Uint64
}

// New creates a stopped scheduler. The loop starts with the first
// registration and stops when the registry empties
func New(cfg Config) *Scheduler {
	if cfg.Driver == nil {
		cfg.Driver = NewTimerDriver(parameter.DefaultFrameInterval)
	}
	if cfg.Time == nil {
		cfg.Time = NewMonotonicTimeProvider()
	}
	if cfg.Logger == nil {
		if cfg.EnableDebugLogging {
			cfg.Logger = slog.Default()
		} else {
			cfg.Logger = slog.New(slog.DiscardHandler)
		}
	}

	return &Scheduler{
		driver:   cfg.Driver,
		time:     cfg.Time,
		log:      cfg.Logger,
		registry: NewRegistry(),
		metrics:  NewMetricsTracker(),
		modes:    newModeController(),
	}
}

// --- Registration API ---

// RegisterAnimationSystem adds a structured client under a unique name.
// Returns false on a duplicate name. The first registrant starts the loop
func (s *Scheduler) RegisterAnimationSystem(name string, client AnimationClient, priority Priority, targetFPS int) bool {
	if !s.registry.AddSystem(name, client, priority, targetFPS) {
		s.log.Debug("registration rejected", "name", name, "reason", "duplicate")
		return false
	}
	s.Start()
	return true
}

// RegisterVisualSystem adds a self-identifying client at the default frame rate
func (s *Scheduler) RegisterVisualSystem(client VisualClient, priority Priority) bool {
	return s.RegisterAnimationSystem(client.Name(), client, priority, parameter.DefaultTargetFPS)
}

// RegisterFrameCallback adds a plain frame function and returns its id.
// Callbacks are ordered by priority but never throttled or budget-gated
func (s *Scheduler) RegisterFrameCallback(fn FrameFunc, priority Priority, owner string) int {
	id := s.registry.AddCallback(fn, priority, owner)
	s.Start()
	return id
}

// Unregister removes a named client; safe to call from within that
// client's own update. Stops the loop once both registries are empty
func (s *Scheduler) Unregister(name string) bool {
	if !s.registry.RemoveSystem(name) {
		return false
	}
	if s.registry.Empty() {
		s.Stop()
	}
	return true
}

// UnregisterCallback removes a frame callback by id
func (s *Scheduler) UnregisterCallback(id int) bool {
	if !s.registry.RemoveCallback(id) {
		return false
	}
	if s.registry.Empty() {
		s.Stop()
	}
	return true
}

// SetSystemEnabled toggles a named client without discarding its metrics
func (s *Scheduler) SetSystemEnabled(name string, enabled bool) bool {
	return s.registry.SetEnabled(name, enabled)
}

// --- Lifecycle ---

// Start begins the frame loop. Idempotent; resets timing state
func (s *Scheduler) Start() {
	if s.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.lastFrame = time.Time{}
		s.mu.Unlock()
		s.metrics.Reset()
		s.scheduleNext(false)
	}
}

// Stop halts the loop and cancels the pending frame request. Idempotent
func (s *Scheduler) Stop() {
	if s.running.CompareAndSwap(true, false) {
		s.mu.Lock()
		if s.havePending {
			s.driver.CancelFrame(s.handle)
			s.havePending = false
		}
		s.mu.Unlock()
	}
}

// Pause keeps the loop re-scheduling itself to preserve timing continuity
// but skips all client work
func (s *Scheduler) Pause() {
	s.paused.Store(true)
}

// Resume re-enables client work. The last timestamp is reset so the first
// frame after resume does not observe a pause-sized delta
func (s *Scheduler) Resume() {
	if s.paused.CompareAndSwap(true, false) {
		s.mu.Lock()
		s.lastFrame = time.Time{}
		s.mu.Unlock()
	}
}

// IsRunning reports whether the loop is active
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// IsPaused reports the soft-pause state
func (s *Scheduler) IsPaused() bool {
	return s.paused.Load()
}

// --- Wiring ---

// AttachInterpolation adds a hook to the interpolation/beat-sync tier,
// processed when elapsed frame time is under budget*0.7
func (s *Scheduler) AttachInterpolation(a FrameAdvancer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interp = append(s.interp, a)
}

// AttachChoreography adds a hook to the slow adaptive tier, processed
// when elapsed frame time is under budget*0.8
func (s *Scheduler) AttachChoreography(a FrameAdvancer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slow = append(s.slow, a)
}

// SetMusicState wires the beat-sync coordinator for FrameContext
// snapshots and the multiplier query surface
func (s *Scheduler) SetMusicState(ms MusicState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.music = ms
}

// SetScrollRatio updates the host scroll position snapshot, 0..1
func (s *Scheduler) SetScrollRatio(v float64) {
	s.scrollBits.Store(math.Float64bits(v))
}

// SetTilt updates the host device-tilt snapshot
func (s *Scheduler) SetTilt(v float64) {
	s.tiltBits.Store(math.Float64bits(v))
}

// --- Query surface ---

// Metrics assembles the current performance snapshot
func (s *Scheduler) Metrics() PerformanceMetrics {
	return PerformanceMetrics{
		TotalFrames:    s.metrics.TotalFrames(),
		DroppedFrames:  s.metrics.DroppedFrames(),
		AvgFrameTime:   s.metrics.AvgFrameTime(),
		MaxFrameTime:   s.metrics.MaxFrameTime(),
		Mode:           s.modes.Mode(),
		ActiveClients:  s.registry.ActiveCount(),
		FrameRate:      s.metrics.FrameRate(),
		LastModeSwitch: s.modes.LastSwitch(),
	}
}

// RegisteredSystems returns all named clients in execution order
func (s *Scheduler) RegisteredSystems() []SystemInfo {
	return s.registry.Infos()
}

// CurrentMultipliers returns the beat-sync scaling state, zero when no
// coordinator is wired
func (s *Scheduler) CurrentMultipliers() Multipliers {
	s.mu.Lock()
	ms := s.music
	s.mu.Unlock()
	if ms == nil {
		return Multipliers{}
	}
	return ms.CurrentMultipliers()
}

// SetPerformanceMode forces a mode, bypassing hysteresis
func (s *Scheduler) SetPerformanceMode(mode Mode) {
	s.modes.Set(mode, s.time.Now())
}

// Registry exposes the client registry for integration tests
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// --- Frame pipeline ---

// frame executes one scheduling iteration. Runs on the driver's callback
// goroutine; all client work is sequential within the frame slice
func (s *Scheduler) frame(now time.Time) {
	if !s.running.Load() {
		return
	}

	if s.paused.Load() {
		// Keep the cadence alive so resume has no scheduling gap
		s.scheduleNext(false)
		return
	}

	frameStart := s.time.Now()

	s.mu.Lock()
	last := s.lastFrame
	s.lastFrame = now
	interp := append([]FrameAdvancer(nil), s.interp...)
	slow := append([]FrameAdvancer(nil), s.slow...)
	music := s.music
	s.mu.Unlock()

	var delta time.Duration
	if !last.IsZero() {
		delta = now.Sub(last)
	}
	deltaMs := float64(delta) / float64(time.Millisecond)

	mode := s.modes.Mode()
	budget := mode.Budget()

	var beatIntensity float64
	if music != nil {
		beatIntensity = music.CurrentIntensity()
	}

	fc := &FrameContext{
		Timestamp:     now,
		DeltaMs:       deltaMs,
		Mode:          mode,
		FrameBudgetMs: float64(budget) / float64(time.Millisecond),
		BeatIntensity: beatIntensity,
		ScrollRatio:   math.Float64frombits(s.scrollBits.Load()),
		Tilt:          math.Float64frombits(s.tiltBits.Load()),
	}

	// Tier 1: frame callbacks always run, in priority order
	for _, cb := range s.registry.snapshotCallbacks() {
		s.runCallback(cb, deltaMs, fc)
	}

	// Tier 2: animation clients, only with headroom left after callbacks
	elapsed := s.time.Now().Sub(frameStart)
	if budget-elapsed > parameter.CallbackHeadroom {
		cutoff := time.Duration(float64(budget) * parameter.ClientBudgetFraction)
		for _, e := range s.registry.snapshotSystems() {
			if s.time.Now().Sub(frameStart) >= cutoff {
				break // remainder deferred to the next frame, not failed
			}
			enabled, interval, lastRun := s.registry.systemState(e)
			if !enabled {
				continue
			}
			if !lastRun.IsZero() && now.Sub(lastRun) < interval {
				s.registry.recordSystemSkip(e)
				continue
			}
			s.runSystem(e, deltaMs, fc, now)
		}
	}

	// Tier 3: interpolation and beat-sync
	if s.time.Now().Sub(frameStart) < time.Duration(float64(budget)*parameter.LerpBudgetFraction) {
		for _, a := range interp {
			s.runAdvancer(a, fc, "interpolation")
		}
	}

	// Tier 4: slow adaptive choreography tick
	if s.time.Now().Sub(frameStart) < time.Duration(float64(budget)*parameter.ChoreoBudgetFraction) {
		for _, a := range slow {
			s.runAdvancer(a, fc, "choreography")
		}
	}

	frameTime := s.time.Now().Sub(frameStart)
	overrun := float64(frameTime) > float64(budget)*parameter.OverrunFraction
	s.metrics.Record(frameTime, overrun)

	if s.modes.Evaluate(s.metrics.AvgFrameTime(), now) {
		s.log.Debug("performance mode switch",
			"mode", s.modes.Mode().String(),
			"avg_frame_time", s.metrics.AvgFrameTime())
	}

	s.scheduleNext(overrun)
}

// runSystem invokes one animation client with panic isolation. A failing
// client stays registered; failures are observability-only
func (s *Scheduler) runSystem(e *systemEntry, deltaMs float64, fc *FrameContext, at time.Time) {
	start := s.time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("animation client panicked", "client", e.name, "panic", r)
		}
		s.registry.recordSystemRun(e, s.time.Now().Sub(start), at)
	}()
	e.invoke(deltaMs, fc)
}

// runCallback invokes one frame callback with panic isolation
func (s *Scheduler) runCallback(e *callbackEntry, deltaMs float64, fc *FrameContext) {
	start := s.time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("frame callback panicked", "id", e.id, "owner", e.owner, "panic", r)
		}
		s.registry.recordCallbackRun(e, s.time.Now().Sub(start))
	}()
	e.fn(deltaMs, fc)
}

// runAdvancer invokes one attached tier hook with panic isolation
func (s *Scheduler) runAdvancer(a FrameAdvancer, fc *FrameContext, tier string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("frame hook panicked", "tier", tier, "panic", r)
		}
	}()
	a.Advance(fc)
}

// scheduleNext requests the following frame, delayed after a severe
// overrun to let the host recover
func (s *Scheduler) scheduleNext(overrun bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return
	}
	if overrun {
		s.handle = s.driver.RequestFrameAfter(parameter.RecoveryDelay, s.frame)
	} else {
		s.handle = s.driver.RequestFrame(s.frame)
	}
	s.havePending = true
}
