package choreo

// Signature holds the two evolving personalization coefficients. Owned by
// the persistence collaborator; this subsystem only reads and nudges it
type Signature struct {
	Adaptability      float64 `yaml:"adaptability"`
	ExplorationFactor float64 `yaml:"exploration_factor"`
}

// DefaultSignature is the neutral starting point before any trends apply
func DefaultSignature() Signature {
	return Signature{Adaptability: 0.5, ExplorationFactor: 0.5}
}

// Store is the injected save/load contract. Serialization format belongs
// to the implementation, never to the choreographer
type Store interface {
	Save(sig Signature) error
	Load() (Signature, error)
}

// Trends is minute-scale listening history pulled from the external
// signature collaborator
type Trends struct {
	AvgEnergy  float64
	AvgValence float64
}

// TrendProvider supplies historical listening trends
type TrendProvider interface {
	Trends() Trends
}
