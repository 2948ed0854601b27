package lerp

import (
	"math"

	"github.com/lixenwraith/beatframe/parameter"
	"github.com/lixenwraith/beatframe/vmath"
)

// EasingFunc maps raw progress [0,1] to eased progress [0,1]
type EasingFunc func(t float64) float64

// Linear is the identity easing
func Linear(t float64) float64 { return t }

// PowerOut returns an ease-out curve with the given exponent;
// exponent 1 degenerates to linear
func PowerOut(exponent float64) EasingFunc {
	return func(t float64) float64 {
		return 1 - math.Pow(1-t, exponent)
	}
}

// Character is an abstract animation temperament mapped to a preset
type Character int

const (
	CharacterFlowing Character = iota
	CharacterPulsing
	CharacterSmooth
	CharacterSharp
)

func (c Character) String() string {
	switch c {
	case CharacterFlowing:
		return "flowing"
	case CharacterPulsing:
		return "pulsing"
	case CharacterSharp:
		return "sharp"
	default:
		return "smooth"
	}
}

// Preset is an {intensity multiplier, easing exponent} pair derived from
// the musical context
type Preset struct {
	IntensityMultiplier float64
	EasingExponent      float64
}

// Easing returns the preset's ease-out curve
func (p Preset) Easing() EasingFunc {
	return PowerOut(p.EasingExponent)
}

// TempoFactor normalizes BPM against the 120 reference, clamped to a
// usable range
func TempoFactor(tempo float64) float64 {
	return vmath.Clamp(tempo/parameter.ReferenceBPM, parameter.TempoFactorMin, parameter.TempoFactorMax)
}

// EnergyFactor clamps raw energy to a usable range
func EnergyFactor(energy float64) float64 {
	return vmath.Clamp(energy, parameter.EnergyFactorMin, parameter.EnergyFactorMax)
}

// PresetFor derives the easing preset for a character from the current
// musical context. Faster, more energetic music sharpens curves and
// raises intensity
func PresetFor(c Character, m *MusicalContext) Preset {
	tempoFactor := TempoFactor(0)
	energyFactor := EnergyFactor(0)
	if m != nil {
		tempoFactor = TempoFactor(m.Tempo)
		energyFactor = EnergyFactor(m.Energy)
	}

	switch c {
	case CharacterFlowing:
		return Preset{
			IntensityMultiplier: 0.8 * energyFactor,
			EasingExponent:      1.5,
		}
	case CharacterPulsing:
		return Preset{
			IntensityMultiplier: 1.2 * energyFactor,
			EasingExponent:      vmath.Clamp(2.5*tempoFactor, 1.0, 4.0),
		}
	case CharacterSharp:
		return Preset{
			IntensityMultiplier: 1.4 * energyFactor,
			EasingExponent:      vmath.Clamp(3.5*tempoFactor, 1.5, 5.0),
		}
	default: // smooth
		return Preset{
			IntensityMultiplier: 0.6 + 0.4*energyFactor,
			EasingExponent:      2.0,
		}
	}
}

// HalfLifeMs is the default transition half-life for the context: one
// frame at full energy and reference tempo, stretched for calm or slow
// material
func HalfLifeMs(m *MusicalContext) float64 {
	tempoFactor := TempoFactor(0)
	energyFactor := EnergyFactor(0)
	if m != nil {
		tempoFactor = TempoFactor(m.Tempo)
		energyFactor = EnergyFactor(m.Energy)
	}
	return parameter.BaseHalfLife * (2 - energyFactor) / tempoFactor
}
