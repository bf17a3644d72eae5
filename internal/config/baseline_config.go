package config

// BaselineConfig controls hashing during baseline construction.
type BaselineConfig struct {
	// Digest algorithm identifier: sha256 or sha512.
	Algorithm string `json:"algorithm,omitempty" yaml:"algorithm,omitempty" validate:"omitempty,algorithm"`
	// Size of the bounded worker pool hashing independent paths.
	HashWorkers int `json:"hash_workers,omitempty" yaml:"hash_workers,omitempty" validate:"omitempty,min=1,max=64"`
}

// NewDefaultBaselineConfig creates default baseline configuration.
func NewDefaultBaselineConfig() BaselineConfig {
	return BaselineConfig{
		Algorithm:   DefaultDigestAlgorithm,
		HashWorkers: DefaultHashWorkers,
	}
}
