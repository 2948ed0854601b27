package choreo

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/lixenwraith/beatframe/engine"
	"github.com/lixenwraith/beatframe/parameter"
	"github.com/lixenwraith/beatframe/vmath"
)

// BaseHue is the resting hue of the visual pulse, in degrees.
// The beat-phase shift swings around it
const BaseHue = 200.0

// Choreographer is the slow-timescale personalization loop. The cheap
// visual-pulse descriptor recomputes every frame the budget allows; trend
// nudges run on a minute cadence riding the same frame clock; persistence
// runs on its own timer, never frame-budget-gated.
// Implements engine.FrameAdvancer
type Choreographer struct {
	vars   engine.VariableWriter
	music  engine.MusicState
	trends TrendProvider
	store  Store
	log    *slog.Logger

	mu        sync.Mutex
	sig       Signature
	lastTrend time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  bool
}

// NewChoreographer loads the stored signature (falling back to the
// default on any persistence failure) and wires the collaborators.
// trends and store may be nil; the loop then runs in-memory only
func NewChoreographer(vars engine.VariableWriter, music engine.MusicState, trends TrendProvider, store Store, log *slog.Logger) *Choreographer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	sig := DefaultSignature()
	if store != nil {
		loaded, err := store.Load()
		if err != nil {
			log.Error("signature load failed, continuing with defaults", "error", err)
		} else {
			sig = loaded
		}
	}

	return &Choreographer{
		vars:     vars,
		music:    music,
		trends:   trends,
		store:    store,
		log:      log,
		sig:      sig,
		stopChan: make(chan struct{}),
	}
}

// Start launches the independent persistence timer. No-op without a store
func (c *Choreographer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.store == nil {
		return
	}
	c.running = true
	c.wg.Add(1)
	go c.persistLoop()
}

// Stop halts the persistence timer after a final save. Idempotent
func (c *Choreographer) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		running := c.running
		c.running = false
		c.mu.Unlock()
		if running {
			close(c.stopChan)
			c.wg.Wait()
		}
	})
}

// Advance recomputes the visual pulse and, on the trend cadence, nudges
// the signature coefficients. Runs in the scheduler's slow tier
func (c *Choreographer) Advance(fc *engine.FrameContext) {
	c.pulse(fc)

	c.mu.Lock()
	due := c.lastTrend.IsZero() || fc.Timestamp.Sub(c.lastTrend) >= parameter.TrendInterval
	if due {
		c.lastTrend = fc.Timestamp
	}
	c.mu.Unlock()

	if due && c.trends != nil {
		c.applyTrends(c.trends.Trends())
	}
}

// pulse publishes the cheap per-frame descriptor: beat phase and a
// bounded hue swing scaled by intensity
func (c *Choreographer) pulse(fc *engine.FrameContext) {
	if c.vars == nil {
		return
	}

	tempo := parameter.ReferenceBPM
	intensity := fc.BeatIntensity
	if c.music != nil {
		tempo = c.music.CurrentMultipliers().Tempo * parameter.ReferenceBPM
	}
	if tempo <= 0 {
		return
	}

	beatIntervalMs := 60000.0 / tempo
	nowMs := float64(fc.Timestamp.UnixNano()) / float64(time.Millisecond)
	phase := math.Mod(nowMs, beatIntervalMs) / beatIntervalMs
	hueShift := vmath.Sin(phase*vmath.TwoPi+math.Pi/2) * parameter.HueShiftRange * intensity

	hue := math.Mod(BaseHue+hueShift+360, 360)
	color := colorful.Hsv(hue, 0.6, 0.9)

	c.vars.BatchSetVariables("choreo", map[string]any{
		"pulse-phase":     phase,
		"pulse-hue-shift": hueShift,
		"pulse-color":     color.Hex(),
	}, engine.VarPriorityNormal, "choreography")
}

// applyTrends nudges the two coefficients toward the listening history
func (c *Choreographer) applyTrends(t Trends) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sig.ExplorationFactor = vmath.Clamp(
		0.5+(t.AvgEnergy-0.5)*0.2,
		parameter.SignatureFloor, parameter.SignatureCeil)
	c.sig.Adaptability = vmath.Clamp(
		0.5+(vmath.Abs(t.AvgValence)-0.2)*0.3,
		parameter.SignatureFloor, parameter.SignatureCeil)

	c.log.Debug("signature nudged",
		"exploration", c.sig.ExplorationFactor,
		"adaptability", c.sig.Adaptability)
}

// Signature returns the current coefficient snapshot
func (c *Choreographer) Signature() Signature {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sig
}

// persistLoop saves the signature on a fixed cadence independent of the
// frame budget. Save failures are logged and the loop continues with
// in-memory state
func (c *Choreographer) persistLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(parameter.PersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.persist()
		case <-c.stopChan:
			c.persist()
			return
		}
	}
}

func (c *Choreographer) persist() {
	if err := c.store.Save(c.Signature()); err != nil {
		c.log.Error("signature save failed", "error", err)
	}
}
