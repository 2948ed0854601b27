package event

import "time"

// Type identifies a music-analysis event
type Type int

const (
	// TypeBeat is a discrete beat onset
	// Producer: music analyzer | Consumer: beat-sync coordinator | Payload: *BeatPayload
	TypeBeat Type = iota

	// TypeMood is an energy/mood update
	// Producer: music analyzer | Consumer: beat-sync coordinator | Payload: *MoodPayload
	TypeMood
)

// Event is one analysis observation pushed across the producer boundary
type Event struct {
	Type    Type
	Payload any
}

// BeatPayload carries a detected beat onset
type BeatPayload struct {
	BPM        float64
	Intensity  float64 // 0..1
	Confidence float64 // 0..1
	Timestamp  time.Time
}

// MoodPayload carries a slower-moving energy/valence estimate
type MoodPayload struct {
	Energy    float64
	Valence   float64
	Tempo     float64
	Timestamp time.Time
}
