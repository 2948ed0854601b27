package engine

// VarPriority ranks competing writes inside the variable-writer collaborator
type VarPriority int

const (
	VarPriorityLow VarPriority = iota
	VarPriorityNormal
	VarPriorityHigh
	VarPriorityCritical
)

// VariableWriter is the rendering-side collaborator. It owns its own
// batching; the scheduler only ever calls a set operation once per logical
// update and never locks it
type VariableWriter interface {
	SetVariable(owner, name string, value any, priority VarPriority, source string)
	BatchSetVariables(owner string, values map[string]any, priority VarPriority, source string)
}

// Multipliers is the externally queryable beat-sync scaling state
type Multipliers struct {
	Intensity    float64
	Tempo        float64
	PlaybackRate float64
}

// MusicState exposes the beat-sync coordinator's continuous state to the
// scheduler for FrameContext snapshots and the query surface
type MusicState interface {
	CurrentIntensity() float64
	CurrentMultipliers() Multipliers
}

// FrameAdvancer receives the per-frame slice left after client execution.
// Interpolation, beat-sync and choreography attach through this
type FrameAdvancer interface {
	Advance(fc *FrameContext)
}
