package beatsync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lixenwraith/beatframe/engine"
	"github.com/lixenwraith/beatframe/event"
	"github.com/lixenwraith/beatframe/lerp"
	"github.com/lixenwraith/beatframe/parameter"
	"github.com/lixenwraith/beatframe/vmath"
)

// PlaybackScaler is a native animation handle whose playback rate the
// coordinator adjusts on tempo changes
type PlaybackScaler interface {
	SetRate(rate float64)
}

// Animation is one managed record coupling a named visual to the beat
type Animation struct {
	IntensityLevel  float64
	TempoMultiplier float64
	BeatSyncEnabled bool

	// Playback is optional; nil means no native animation attached
	Playback PlaybackScaler
}

// PulseDecayFrames is how many frames a beat pulse takes to fade.
// Frame-counted rather than timer-based so all transient state moves on
// the frame clock
const PulseDecayFrames = 12

// Coordinator turns discrete beat events into continuous scaled state.
// Producers push events from any goroutine; all processing happens inside
// the frame slice via Advance. Implements engine.FrameAdvancer and
// engine.MusicState
type Coordinator struct {
	queue *event.Queue
	vars  engine.VariableWriter
	log   *slog.Logger

	mu    sync.Mutex
	anims map[string]*Animation

	intensity    float64
	tempo        float64
	phase        float64
	confidence   float64
	energy       float64
	valence      float64
	lastBeatTime time.Time

	lastAppliedEnergy float64
	lastAppliedTempo  float64

	pulseFrames int
	pulseValue  float64
}

// NewCoordinator creates a coordinator publishing through vars.
// A nil logger discards debug output
func NewCoordinator(vars engine.VariableWriter, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		queue: event.NewQueue(),
		vars:  vars,
		log:   log,
		anims: make(map[string]*Animation),
		tempo: parameter.ReferenceBPM,
	}
}

// PushBeat enqueues a beat onset. Safe from any goroutine
func (c *Coordinator) PushBeat(p event.BeatPayload) {
	c.queue.Push(event.Event{Type: event.TypeBeat, Payload: &p})
}

// PushMood enqueues an energy/mood update. Safe from any goroutine
func (c *Coordinator) PushMood(p event.MoodPayload) {
	c.queue.Push(event.Event{Type: event.TypeMood, Payload: &p})
}

// Manage registers or replaces a named animation record. Zero scaling
// fields fall back to the standard profile
func (c *Coordinator) Manage(name string, anim Animation) {
	if anim.IntensityLevel == 0 {
		anim.IntensityLevel = StandardProfile.IntensityLevel
	}
	if anim.TempoMultiplier == 0 {
		anim.TempoMultiplier = StandardProfile.TempoMultiplier
	}
	c.mu.Lock()
	c.anims[name] = &anim
	c.mu.Unlock()
}

// Unmanage removes a named animation record
func (c *Coordinator) Unmanage(name string) {
	c.mu.Lock()
	delete(c.anims, name)
	c.mu.Unlock()
}

// Advance drains pending analysis events and refreshes continuous state.
// Runs inside the scheduler's interpolation tier
func (c *Coordinator) Advance(fc *engine.FrameContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ev := range c.queue.Consume() {
		switch ev.Type {
		case event.TypeBeat:
			if p, ok := ev.Payload.(*event.BeatPayload); ok {
				c.processBeatLocked(p)
			}
		case event.TypeMood:
			if p, ok := ev.Payload.(*event.MoodPayload); ok {
				c.processMoodLocked(p)
			}
		}
	}

	// Continuous beat phase from the frame clock
	if interval := c.beatIntervalLocked(); interval > 0 && !c.lastBeatTime.IsZero() {
		since := fc.Timestamp.Sub(c.lastBeatTime)
		c.phase = float64(since%interval) / float64(interval)
	}

	// Frame-counted pulse decay
	if c.pulseFrames > 0 {
		c.pulseFrames--
		level := c.pulseValue * float64(c.pulseFrames) / PulseDecayFrames
		if c.vars != nil {
			c.vars.SetVariable("beatsync", "beat-pulse", level, engine.VarPriorityHigh, "beat")
		}
	}
}

// processBeatLocked folds one beat onset into coordinator state and,
// unless debounced, fires the pulse and pushes scaled values
func (c *Coordinator) processBeatLocked(p *event.BeatPayload) {
	c.intensity = vmath.Clamp(p.Intensity, 0, 1)
	c.confidence = vmath.Clamp(p.Confidence, 0, 1)
	if p.BPM > 0 {
		c.tempo = p.BPM
	}
	c.lastBeatTime = p.Timestamp
	c.phase = 0

	// Coalesce noisy upstream signals: skip the pulse side effect when
	// neither energy nor tempo moved meaningfully since the last apply
	if c.lastAppliedTempo != 0 &&
		vmath.Abs(c.energy-c.lastAppliedEnergy) < parameter.EnergyDebounceDelta &&
		vmath.Abs(c.tempo-c.lastAppliedTempo) < parameter.TempoDebounceDelta {
		return
	}
	c.lastAppliedEnergy = c.energy
	c.lastAppliedTempo = c.tempo

	c.pulseFrames = PulseDecayFrames
	c.pulseValue = c.intensity

	c.applyToAnimationsLocked()
}

func (c *Coordinator) processMoodLocked(p *event.MoodPayload) {
	c.energy = vmath.Clamp(p.Energy, 0, 1)
	c.valence = vmath.Clamp(p.Valence, -1, 1)
	if p.Tempo > 0 {
		c.tempo = p.Tempo
	}
}

// applyToAnimationsLocked pushes scaled intensity/tempo for every managed
// animation and rescales attached native playback
func (c *Coordinator) applyToAnimationsLocked() {
	tempoFactor := c.tempo / parameter.ReferenceBPM

	for name, anim := range c.anims {
		if !anim.BeatSyncEnabled {
			continue
		}

		if c.vars != nil {
			c.vars.BatchSetVariables(name, map[string]any{
				"beat-intensity": c.intensity * anim.IntensityLevel,
				"beat-tempo":     c.tempo * anim.TempoMultiplier,
				"beat-phase":     c.phase,
			}, engine.VarPriorityHigh, "beatsync")
		}

		if anim.Playback != nil {
			rate := vmath.Clamp(tempoFactor*anim.TempoMultiplier, 0.25, 4.0)
			anim.Playback.SetRate(rate)
		}
	}
}

func (c *Coordinator) beatIntervalLocked() time.Duration {
	if c.tempo <= 0 {
		return 0
	}
	return time.Duration(60.0 / c.tempo * float64(time.Second))
}

// CurrentIntensity implements engine.MusicState
func (c *Coordinator) CurrentIntensity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intensity
}

// CurrentMultipliers implements engine.MusicState
func (c *Coordinator) CurrentMultipliers() engine.Multipliers {
	c.mu.Lock()
	defer c.mu.Unlock()
	tempoFactor := vmath.Clamp(c.tempo/parameter.ReferenceBPM, parameter.TempoFactorMin, parameter.TempoFactorMax)
	return engine.Multipliers{
		Intensity:    c.intensity,
		Tempo:        tempoFactor,
		PlaybackRate: tempoFactor,
	}
}

// Tempo returns the current BPM estimate
func (c *Coordinator) Tempo() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tempo
}

// Snapshot assembles a musical context for new interpolation operations
func (c *Coordinator) Snapshot(now time.Time) lerp.MusicalContext {
	c.mu.Lock()
	defer c.mu.Unlock()

	interval := c.beatIntervalLocked()
	var sinceMs float64
	if !c.lastBeatTime.IsZero() {
		sinceMs = float64(now.Sub(c.lastBeatTime)) / float64(time.Millisecond)
	}
	return lerp.MusicalContext{
		Tempo:               c.tempo,
		Energy:              c.energy,
		Valence:             c.valence,
		BeatPhase:           c.phase,
		BeatConfidence:      c.confidence,
		BeatIntervalMs:      float64(interval) / float64(time.Millisecond),
		TimeSinceLastBeatMs: sinceMs,
	}
}
