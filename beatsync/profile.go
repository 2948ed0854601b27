package beatsync

// Profile is a named default scaling applied to managed animations that
// do not specify their own levels
type Profile struct {
	Name            string
	IntensityLevel  float64
	TempoMultiplier float64
}

var (
	StandardProfile   = Profile{Name: "standard", IntensityLevel: 1.0, TempoMultiplier: 1.0}
	SubtleProfile     = Profile{Name: "subtle", IntensityLevel: 0.6, TempoMultiplier: 0.9}
	AggressiveProfile = Profile{Name: "aggressive", IntensityLevel: 1.3, TempoMultiplier: 1.15}
)

// ProfileByName resolves a configured profile name, falling back to standard
func ProfileByName(name string) Profile {
	switch name {
	case SubtleProfile.Name:
		return SubtleProfile
	case AggressiveProfile.Name:
		return AggressiveProfile
	default:
		return StandardProfile
	}
}

// ManagedWithProfile builds an Animation record from a profile
func ManagedWithProfile(p Profile, playback PlaybackScaler) Animation {
	return Animation{
		IntensityLevel:  p.IntensityLevel,
		TempoMultiplier: p.TempoMultiplier,
		BeatSyncEnabled: true,
		Playback:        playback,
	}
}
