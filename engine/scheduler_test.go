package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/lixenwraith/beatframe/parameter"
)

// recordingClient notes every invocation and optionally burns simulated
// frame time by advancing the mock clock
type recordingClient struct {
	mu    sync.Mutex
	calls int
	cost  time.Duration
	clock *MockTimeProvider
	onRun func()
}

func (c *recordingClient) Animate(deltaMs float64, fc *FrameContext) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.cost > 0 {
		c.clock.Advance(c.cost)
	}
	if c.onRun != nil {
		c.onRun()
	}
}

func (c *recordingClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestScheduler() (*Scheduler, *ManualDriver, *MockTimeProvider) {
	driver := NewManualDriver()
	clock := NewMockTimeProvider(time.Unix(1000, 0))
	s := New(Config{Driver: driver, Time: clock})
	return s, driver, clock
}

// stepFrames advances the mock clock by delta and fires one frame per step
func stepFrames(t *testing.T, driver *ManualDriver, clock *MockTimeProvider, frames int, delta time.Duration) {
	t.Helper()
	for i := 0; i < frames; i++ {
		clock.Advance(delta)
		if fired := driver.Step(clock.Now()); fired == 0 {
			t.Fatalf("frame %d: no pending frame request", i)
		}
	}
}

func TestLoopStartsWithFirstRegistrantAndStopsWhenEmpty(t *testing.T) {
	s, driver, clock := newTestScheduler()

	if s.IsRunning() {
		t.Fatal("scheduler should not run before registration")
	}

	c := &recordingClient{clock: clock}
	if !s.RegisterAnimationSystem("alpha", c, PriorityNormal, 60) {
		t.Fatal("registration failed")
	}
	if !s.IsRunning() {
		t.Fatal("first registrant must start the loop")
	}
	if driver.PendingCount() != 1 {
		t.Fatalf("pending frames = %d, want 1", driver.PendingCount())
	}

	if !s.Unregister("alpha") {
		t.Fatal("unregister returned false for registered client")
	}
	if s.Unregister("alpha") {
		t.Error("second unregister must return false")
	}
	if s.IsRunning() {
		t.Error("loop must stop once both registries are empty")
	}
	if driver.PendingCount() != 0 {
		t.Errorf("pending frame not canceled on stop, count = %d", driver.PendingCount())
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	s, _, clock := newTestScheduler()
	c := &recordingClient{clock: clock}

	if !s.RegisterAnimationSystem("fx", c, PriorityNormal, 60) {
		t.Fatal("first registration failed")
	}
	if s.RegisterAnimationSystem("fx", c, PriorityCritical, 30) {
		t.Error("duplicate name must be rejected")
	}
}

func TestPriorityExecutionOrder(t *testing.T) {
	s, driver, clock := newTestScheduler()

	var order []string
	mk := func(name string) *recordingClient {
		return &recordingClient{clock: clock, onRun: func() { order = append(order, name) }}
	}

	// Registered out of order on purpose
	s.RegisterAnimationSystem("C", mk("C"), PriorityBackground, 60)
	s.RegisterAnimationSystem("A", mk("A"), PriorityCritical, 60)
	s.RegisterAnimationSystem("B", mk("B"), PriorityNormal, 60)

	stepFrames(t, driver, clock, 1, 17*time.Millisecond)

	if len(order) != 3 || order[0] != "A" || order[1] != "B" || order[2] != "C" {
		t.Errorf("execution order = %v, want [A B C]", order)
	}
}

func TestThrottlingHonorsTargetFPS(t *testing.T) {
	s, driver, clock := newTestScheduler()
	c := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("slow", c, PriorityNormal, 30)

	// 8 frames at ~16.6ms: a 30 FPS client runs every other frame
	stepFrames(t, driver, clock, 8, 16600*time.Microsecond)

	if got := c.Calls(); got != 4 {
		t.Errorf("30fps client ran %d times over 8 frames, want 4", got)
	}
	m, _ := s.Registry().SystemMetrics("slow")
	if m.SkippedFrames != 4 {
		t.Errorf("SkippedFrames = %d, want 4", m.SkippedFrames)
	}
}

func TestBudgetConservationDefersLowerPriority(t *testing.T) {
	s, driver, clock := newTestScheduler()

	// Critical client burns 15ms, past budget*0.9 = 14.4ms
	expensive := &recordingClient{clock: clock, cost: 15 * time.Millisecond}
	background := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("critical", expensive, PriorityCritical, 60)
	s.RegisterAnimationSystem("background", background, PriorityBackground, 60)

	stepFrames(t, driver, clock, 1, 17*time.Millisecond)

	if expensive.Calls() != 1 {
		t.Fatalf("critical client calls = %d, want 1", expensive.Calls())
	}
	if background.Calls() != 0 {
		t.Errorf("background client ran despite exhausted budget")
	}
}

func TestCallbacksAlwaysRunEvenWhenBudgetGone(t *testing.T) {
	s, driver, clock := newTestScheduler()

	var cbRuns int
	s.RegisterFrameCallback(func(deltaMs float64, fc *FrameContext) {
		cbRuns++
		clock.Advance(30 * time.Millisecond) // burn the whole budget
	}, PriorityCritical, "burner")

	var secondRuns int
	s.RegisterFrameCallback(func(deltaMs float64, fc *FrameContext) {
		secondRuns++
	}, PriorityBackground, "cheap")

	client := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("starved", client, PriorityCritical, 60)

	stepFrames(t, driver, clock, 2, 17*time.Millisecond)

	if cbRuns != 2 || secondRuns != 2 {
		t.Errorf("callbacks must run every frame: got %d and %d, want 2 and 2", cbRuns, secondRuns)
	}
	if client.Calls() != 0 {
		t.Errorf("animation client ran %d times with no headroom, want 0", client.Calls())
	}
}

func TestSteadyFramesKeepQualityMode(t *testing.T) {
	s, driver, clock := newTestScheduler()
	c := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("steady", c, PriorityCritical, 60)

	stepFrames(t, driver, clock, 120, 16600*time.Microsecond)

	if got := c.Calls(); got != 120 {
		t.Errorf("frameCount = %d, want 120", got)
	}
	m := s.Metrics()
	if m.DroppedFrames != 0 {
		t.Errorf("droppedFrames = %d, want 0", m.DroppedFrames)
	}
	if m.Mode != ModeQuality {
		t.Errorf("mode = %v, want quality", m.Mode)
	}
	if m.TotalFrames != 120 {
		t.Errorf("totalFrames = %d, want 120", m.TotalFrames)
	}
}

func TestSustainedOverrunSwitchesToPerformance(t *testing.T) {
	s, driver, clock := newTestScheduler()
	c := &recordingClient{clock: clock, cost: 25 * time.Millisecond}
	s.RegisterAnimationSystem("heavy", c, PriorityCritical, 60)

	stepFrames(t, driver, clock, 10, 25*time.Millisecond)

	m := s.Metrics()
	if m.Mode != ModePerformance {
		t.Fatalf("mode = %v after 10 frames at 25ms, want performance", m.Mode)
	}
	if got := m.Mode.Budget(); got != parameter.PerformanceFrameBudget {
		t.Errorf("budget = %v, want %v", got, parameter.PerformanceFrameBudget)
	}
	if m.DroppedFrames == 0 {
		t.Error("25ms frames against a 16ms budget must count as dropped")
	}
}

func TestModeHysteresisBlocksEarlyUpgrade(t *testing.T) {
	s, driver, clock := newTestScheduler()
	heavy := &recordingClient{clock: clock, cost: 25 * time.Millisecond}
	s.RegisterAnimationSystem("heavy", heavy, PriorityCritical, 60)

	stepFrames(t, driver, clock, 10, 25*time.Millisecond)
	if s.Metrics().Mode != ModePerformance {
		t.Fatal("setup: expected performance mode")
	}

	// Client turns cheap; the rolling average falls well below the
	// upgrade threshold, but the cooldown must hold the mode
	heavy.cost = time.Millisecond
	stepFrames(t, driver, clock, 60, 16*time.Millisecond)
	if s.Metrics().Mode != ModePerformance {
		t.Fatal("mode upgraded inside the hysteresis window")
	}

	// Cross the cooldown and run one more cheap frame
	clock.Advance(parameter.ModeSwitchCooldown)
	stepFrames(t, driver, clock, 1, 16*time.Millisecond)
	if s.Metrics().Mode != ModeQuality {
		t.Errorf("mode = %v after cooldown with cheap frames, want quality", s.Metrics().Mode)
	}
}

func TestSevereOverrunDelaysNextFrame(t *testing.T) {
	s, driver, clock := newTestScheduler()
	c := &recordingClient{clock: clock, cost: 30 * time.Millisecond}
	s.RegisterAnimationSystem("spiky", c, PriorityCritical, 60)

	if driver.LastDelay() != 0 {
		t.Fatal("initial request should be immediate")
	}
	stepFrames(t, driver, clock, 1, 17*time.Millisecond)

	if got := driver.LastDelay(); got != parameter.RecoveryDelay {
		t.Errorf("next frame delay = %v after severe overrun, want %v", got, parameter.RecoveryDelay)
	}
}

func TestPauseSkipsWorkButKeepsScheduling(t *testing.T) {
	s, driver, clock := newTestScheduler()
	c := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("fx", c, PriorityNormal, 60)

	stepFrames(t, driver, clock, 1, 17*time.Millisecond)
	if c.Calls() != 1 {
		t.Fatal("setup: client did not run")
	}

	s.Pause()
	stepFrames(t, driver, clock, 5, 17*time.Millisecond)
	if c.Calls() != 1 {
		t.Errorf("client ran while paused: calls = %d", c.Calls())
	}
	if driver.PendingCount() != 1 {
		t.Error("paused loop must keep re-scheduling itself")
	}

	s.Resume()

	// Delta after resume must not include the paused gap
	var seenDelta float64 = -1
	s.RegisterFrameCallback(func(deltaMs float64, fc *FrameContext) {
		if seenDelta < 0 {
			seenDelta = deltaMs
		}
	}, PriorityCritical, "probe")

	clock.Advance(17 * time.Millisecond)
	driver.Step(clock.Now())
	if seenDelta != 0 {
		t.Errorf("first delta after resume = %v, want 0 (timestamp reset)", seenDelta)
	}
	if c.Calls() != 2 {
		t.Errorf("client did not resume: calls = %d, want 2", c.Calls())
	}
}

func TestPanickingClientIsIsolatedAndStaysRegistered(t *testing.T) {
	s, driver, clock := newTestScheduler()

	s.RegisterAnimationSystem("faulty", &panickingClient{}, PriorityCritical, 60)
	healthy := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("healthy", healthy, PriorityNormal, 60)

	stepFrames(t, driver, clock, 3, 17*time.Millisecond)

	if healthy.Calls() != 3 {
		t.Errorf("healthy client calls = %d, want 3", healthy.Calls())
	}
	found := false
	for _, info := range s.RegisteredSystems() {
		if info.Name == "faulty" {
			found = true
		}
	}
	if !found {
		t.Error("failing client must not be auto-unregistered")
	}
}

type panickingClient struct{}

func (p *panickingClient) Animate(deltaMs float64, fc *FrameContext) {
	panic("client blew up")
}

func TestUnregisterFromWithinOwnUpdate(t *testing.T) {
	s, driver, clock := newTestScheduler()

	self := &recordingClient{clock: clock, onRun: func() {
		s.Unregister("ephemeral")
	}}
	keeper := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("ephemeral", self, PriorityCritical, 60)
	s.RegisterAnimationSystem("keeper", keeper, PriorityNormal, 60)

	stepFrames(t, driver, clock, 2, 17*time.Millisecond)

	if self.Calls() != 1 {
		t.Errorf("self-unregistering client calls = %d, want 1", self.Calls())
	}
	if keeper.Calls() != 2 {
		t.Errorf("keeper calls = %d, want 2", keeper.Calls())
	}
}

func TestSetEnabledKeepsMetrics(t *testing.T) {
	s, driver, clock := newTestScheduler()
	c := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("toggle", c, PriorityNormal, 60)

	stepFrames(t, driver, clock, 2, 17*time.Millisecond)
	s.SetSystemEnabled("toggle", false)
	stepFrames(t, driver, clock, 2, 17*time.Millisecond)

	if c.Calls() != 2 {
		t.Errorf("disabled client ran: calls = %d, want 2", c.Calls())
	}
	m, ok := s.Registry().SystemMetrics("toggle")
	if !ok || m.FrameCount != 2 {
		t.Errorf("metrics discarded on disable: frameCount = %d, want 2", m.FrameCount)
	}

	s.SetSystemEnabled("toggle", true)
	stepFrames(t, driver, clock, 1, 17*time.Millisecond)
	if c.Calls() != 3 {
		t.Errorf("re-enabled client did not run: calls = %d, want 3", c.Calls())
	}
}

func TestVisualSystemSharesNamespace(t *testing.T) {
	s, _, clock := newTestScheduler()
	c := &recordingClient{clock: clock}
	if !s.RegisterAnimationSystem("glow", c, PriorityNormal, 60) {
		t.Fatal("setup registration failed")
	}
	if s.RegisterVisualSystem(&namedClient{name: "glow"}, PriorityNormal) {
		t.Error("visual system with a taken name must be rejected")
	}
}

type namedClient struct {
	name string
}

func (n *namedClient) Name() string                               { return n.name }
func (n *namedClient) Animate(deltaMs float64, fc *FrameContext) {}

func TestFrameCallbackIDsAreIndependent(t *testing.T) {
	s, driver, clock := newTestScheduler()

	var firstRan, secondRan int
	id1 := s.RegisterFrameCallback(func(float64, *FrameContext) { firstRan++ }, PriorityNormal, "")
	id2 := s.RegisterFrameCallback(func(float64, *FrameContext) { secondRan++ }, PriorityNormal, "")
	if id1 == id2 {
		t.Fatal("callback ids must be unique")
	}

	stepFrames(t, driver, clock, 1, 17*time.Millisecond)
	if !s.UnregisterCallback(id1) {
		t.Error("unregister of live callback returned false")
	}
	if s.UnregisterCallback(id1) {
		t.Error("double unregister returned true")
	}
	stepFrames(t, driver, clock, 1, 17*time.Millisecond)

	if firstRan != 1 || secondRan != 2 {
		t.Errorf("callback runs = %d/%d, want 1/2", firstRan, secondRan)
	}
}

func TestStartIsIdempotentAndResetsTiming(t *testing.T) {
	s, driver, clock := newTestScheduler()
	c := &recordingClient{clock: clock}
	s.RegisterAnimationSystem("fx", c, PriorityNormal, 60)

	s.Start()
	s.Start()
	if driver.PendingCount() != 1 {
		t.Errorf("idempotent Start must keep one pending frame, got %d", driver.PendingCount())
	}
}
