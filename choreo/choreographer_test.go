package choreo

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/lixenwraith/beatframe/engine"
	"github.com/lixenwraith/beatframe/parameter"
)

type fakeVars struct {
	batches map[string]map[string]any
}

func newFakeVars() *fakeVars {
	return &fakeVars{batches: make(map[string]map[string]any)}
}

func (f *fakeVars) SetVariable(owner, name string, value any, priority engine.VarPriority, source string) {
}

func (f *fakeVars) BatchSetVariables(owner string, values map[string]any, priority engine.VarPriority, source string) {
	f.batches[owner] = values
}

type fakeTrends struct {
	t     Trends
	calls int
}

func (f *fakeTrends) Trends() Trends {
	f.calls++
	return f.t
}

type fakeStore struct {
	sig     Signature
	loadErr error
	saveErr error
	saves   int
}

func (s *fakeStore) Save(sig Signature) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sig = sig
	return nil
}

func (s *fakeStore) Load() (Signature, error) {
	if s.loadErr != nil {
		return DefaultSignature(), s.loadErr
	}
	return s.sig, nil
}

func frameAt(ts time.Time) *engine.FrameContext {
	return &engine.FrameContext{Timestamp: ts, BeatIntensity: 1.0}
}

func TestLoadFailureFallsBackToDefaults(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("disk gone")}
	c := NewChoreographer(nil, nil, nil, store, nil)

	if c.Signature() != DefaultSignature() {
		t.Errorf("signature = %+v, want defaults after load failure", c.Signature())
	}
}

func TestLoadedSignatureIsUsed(t *testing.T) {
	store := &fakeStore{sig: Signature{Adaptability: 0.8, ExplorationFactor: 0.3}}
	c := NewChoreographer(nil, nil, nil, store, nil)

	if c.Signature() != store.sig {
		t.Errorf("signature = %+v, want stored value", c.Signature())
	}
}

func TestPulsePublishesDescriptor(t *testing.T) {
	vars := newFakeVars()
	c := NewChoreographer(vars, nil, nil, nil, nil)

	c.Advance(frameAt(time.Unix(3000, 0)))

	batch, ok := vars.batches["choreo"]
	if !ok {
		t.Fatal("no pulse batch published")
	}

	phase, ok := batch["pulse-phase"].(float64)
	if !ok || phase < 0 || phase >= 1 {
		t.Errorf("pulse-phase = %v, want [0,1)", batch["pulse-phase"])
	}
	shift, ok := batch["pulse-hue-shift"].(float64)
	if !ok || math.Abs(shift) > parameter.HueShiftRange+1e-6 {
		t.Errorf("pulse-hue-shift = %v, want within ±%v", batch["pulse-hue-shift"], parameter.HueShiftRange)
	}
	hex, ok := batch["pulse-color"].(string)
	if !ok || len(hex) != 7 || hex[0] != '#' {
		t.Errorf("pulse-color = %v, want #rrggbb", batch["pulse-color"])
	}
}

func TestTrendNudgeFormulas(t *testing.T) {
	trends := &fakeTrends{t: Trends{AvgEnergy: 0.9, AvgValence: -0.8}}
	c := NewChoreographer(nil, nil, trends, nil, nil)

	c.Advance(frameAt(time.Unix(3000, 0)))

	sig := c.Signature()
	wantExploration := 0.5 + (0.9-0.5)*0.2
	wantAdaptability := 0.5 + (0.8-0.2)*0.3
	if math.Abs(sig.ExplorationFactor-wantExploration) > 1e-9 {
		t.Errorf("exploration = %v, want %v", sig.ExplorationFactor, wantExploration)
	}
	if math.Abs(sig.Adaptability-wantAdaptability) > 1e-9 {
		t.Errorf("adaptability = %v, want %v", sig.Adaptability, wantAdaptability)
	}
}

func TestTrendNudgeClamped(t *testing.T) {
	trends := &fakeTrends{t: Trends{AvgEnergy: -5, AvgValence: 10}}
	c := NewChoreographer(nil, nil, trends, nil, nil)

	c.Advance(frameAt(time.Unix(3000, 0)))

	sig := c.Signature()
	if sig.ExplorationFactor != parameter.SignatureFloor {
		t.Errorf("exploration = %v, want floor %v", sig.ExplorationFactor, parameter.SignatureFloor)
	}
	if sig.Adaptability != parameter.SignatureCeil {
		t.Errorf("adaptability = %v, want ceil %v", sig.Adaptability, parameter.SignatureCeil)
	}
}

func TestTrendCadenceRunsOnFrameClock(t *testing.T) {
	trends := &fakeTrends{t: Trends{AvgEnergy: 0.5, AvgValence: 0}}
	c := NewChoreographer(nil, nil, trends, nil, nil)

	base := time.Unix(3000, 0)
	c.Advance(frameAt(base))
	if trends.calls != 1 {
		t.Fatalf("trend calls = %d after first frame, want 1", trends.calls)
	}

	// Inside the interval: no new pull
	c.Advance(frameAt(base.Add(parameter.TrendInterval / 2)))
	if trends.calls != 1 {
		t.Errorf("trend calls = %d inside interval, want 1", trends.calls)
	}

	c.Advance(frameAt(base.Add(parameter.TrendInterval)))
	if trends.calls != 2 {
		t.Errorf("trend calls = %d after interval, want 2", trends.calls)
	}
}

func TestStopPerformsFinalSave(t *testing.T) {
	store := &fakeStore{sig: DefaultSignature()}
	c := NewChoreographer(nil, nil, nil, store, nil)

	c.Start()
	c.Stop()

	if store.saves != 1 {
		t.Errorf("saves = %d after Stop, want 1", store.saves)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	c := NewChoreographer(nil, nil, nil, store, nil)

	c.Start()
	c.Stop()
	c.Stop()

	if store.saves != 1 {
		t.Errorf("saves = %d after double Stop, want 1", store.saves)
	}
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("readonly fs")}
	trends := &fakeTrends{t: Trends{AvgEnergy: 0.9, AvgValence: 0}}
	c := NewChoreographer(nil, nil, trends, store, nil)

	c.Start()
	c.Advance(frameAt(time.Unix(3000, 0)))
	c.Stop()

	if c.Signature().ExplorationFactor == DefaultSignature().ExplorationFactor {
		t.Error("trend nudge lost after save failure")
	}
}

func TestStartWithoutStoreIsNoop(t *testing.T) {
	c := NewChoreographer(nil, nil, nil, nil, nil)
	c.Start()
	c.Stop()
}
