package lerp

import (
	"sync"
	"time"

	"github.com/lixenwraith/beatframe/engine"
	"github.com/lixenwraith/beatframe/parameter"
	"github.com/lixenwraith/beatframe/vmath"
)

// MusicalContext is a read-only snapshot of the analysis state attached
// to an operation. Produced externally, never mutated here
type MusicalContext struct {
	Tempo                float64 // BPM
	Energy               float64 // 0..1
	Valence              float64 // -1..1
	Danceability         float64
	EmotionalTemperature float64
	BeatPhase            float64
	BeatConfidence       float64
	BeatIntervalMs       float64
	TimeSinceLastBeatMs  float64
}

// Options configures one interpolation operation
type Options struct {
	// Easing shapes progress; nil means linear
	Easing EasingFunc

	// Musical enables the bounded beat-frequency modulation
	Musical *MusicalContext

	// OnUpdate receives the value every advanced frame. Required
	OnUpdate func(value float64)

	// OnComplete fires exactly once when progress reaches 1
	OnComplete func()
}

type operation struct {
	id         string
	start      float64
	target     float64
	startTime  time.Time
	duration   time.Duration
	easing     EasingFunc
	musical    *MusicalContext
	onUpdate   func(float64)
	onComplete func()
}

// Engine advances many concurrent eased value transitions once per frame.
// Implements engine.FrameAdvancer; attach to the scheduler's
// interpolation tier
type Engine struct {
	time engine.TimeProvider

	mu    sync.Mutex
	ops   map[string]*operation
	order []string
}

// NewEngine creates an empty interpolation engine
func NewEngine(tp engine.TimeProvider) *Engine {
	if tp == nil {
		tp = engine.NewMonotonicTimeProvider()
	}
	return &Engine{
		time: tp,
		ops:  make(map[string]*operation),
	}
}

// Create starts (or silently replaces) the operation with the given id.
// A replaced operation's OnComplete never fires
func (e *Engine) Create(id string, start, target float64, durationMs float64, opts Options) {
	op := &operation{
		id:         id,
		start:      start,
		target:     target,
		startTime:  e.time.Now(),
		duration:   time.Duration(durationMs * float64(time.Millisecond)),
		easing:     opts.Easing,
		musical:    opts.Musical,
		onUpdate:   opts.OnUpdate,
		onComplete: opts.OnComplete,
	}
	if op.easing == nil {
		op.easing = Linear
	}

	e.mu.Lock()
	if _, exists := e.ops[id]; !exists {
		e.order = append(e.order, id)
	}
	e.ops[id] = op
	e.mu.Unlock()
}

// Cancel removes an operation without firing OnComplete
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ops[id]; !ok {
		return false
	}
	e.removeLocked(id)
	return true
}

// Count returns the number of in-flight operations
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ops)
}

// Advance progresses every stored operation against the frame timestamp.
// Completed operations are removed after OnComplete fires once
func (e *Engine) Advance(fc *engine.FrameContext) {
	now := fc.Timestamp

	type pending struct {
		update   func(float64)
		value    float64
		complete func()
	}

	e.mu.Lock()
	due := make([]pending, 0, len(e.order))
	for _, id := range append([]string(nil), e.order...) {
		op, ok := e.ops[id]
		if !ok {
			continue
		}

		var progress float64
		if op.duration <= 0 {
			progress = 1
		} else {
			progress = vmath.Clamp(float64(now.Sub(op.startTime))/float64(op.duration), 0, 1)
		}

		value := vmath.Lerp(op.start, op.target, op.easing(progress))
		if op.musical != nil {
			value += modulation(now, op.musical)
		}

		p := pending{update: op.onUpdate, value: value}
		if progress >= 1 {
			p.complete = op.onComplete
			e.removeLocked(id)
		}
		due = append(due, p)
	}
	e.mu.Unlock()

	// Callbacks fire outside the lock so they may create or cancel
	// operations without deadlocking
	for _, p := range due {
		if p.update != nil {
			p.update(p.value)
		}
		if p.complete != nil {
			p.complete()
		}
	}
}

func (e *Engine) removeLocked(id string) {
	delete(e.ops, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

// modulation adds a bounded wobble at the beat frequency. Amplitude is
// capped so the musical layer can shade but never dominate a transition
func modulation(now time.Time, m *MusicalContext) float64 {
	tempoFactor := m.Tempo / 60.0 // beats per second
	nowSec := float64(now.UnixNano()) / float64(time.Second)
	phase := nowSec * tempoFactor * vmath.TwoPi
	return vmath.Sin(phase) * parameter.ModulationAmplitude * m.Energy
}
