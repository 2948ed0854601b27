package parameter

import "time"

// Musical modulation & beat-sync tuning
const (
	// ReferenceBPM is the tempo all multipliers are normalized against
	ReferenceBPM = 120.0

	// TempoFactorMin / TempoFactorMax clamp the tempo factor used by
	// easing presets and playback-rate scaling
	TempoFactorMin = 0.3
	TempoFactorMax = 2.0

	// EnergyFactorMin / EnergyFactorMax clamp the energy factor
	EnergyFactorMin = 0.1
	EnergyFactorMax = 1.0

	// ModulationAmplitude bounds the musical wobble added to lerped values
	ModulationAmplitude = 0.1

	// BaseHalfLife is the reference easing half-life at full energy and
	// reference tempo, in milliseconds (one 60 FPS frame)
	BaseHalfLife = 16.67
)

// Beat debounce thresholds: pulses within both deltas of the last applied
// update are coalesced
const (
	EnergyDebounceDelta = 0.1
	TempoDebounceDelta  = 5.0
)

// Analysis event queue sizing
const (
	// MusicEventQueueSize is the fixed capacity of the analysis event ring
	MusicEventQueueSize = 256

	// MusicEventBufferMask is the bitmask for fast modulo operations (256 - 1)
	MusicEventBufferMask = 255
)

// Adaptive choreography cadence
const (
	// TrendInterval is how often listening trends nudge the signature
	TrendInterval = 60 * time.Second

	// PersistInterval is how often the signature snapshot is saved,
	// on a timer independent of the frame budget
	PersistInterval = 30 * time.Second

	// HueShiftRange is the maximum hue swing of the visual pulse, in degrees
	HueShiftRange = 15.0

	// SignatureFloor / SignatureCeil clamp both evolving coefficients
	SignatureFloor = 0.1
	SignatureCeil  = 0.9
)
