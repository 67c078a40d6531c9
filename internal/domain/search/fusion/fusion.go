// Package fusion holds the tuning knobs for merging vector and lexical
// result lists. The numeric defaults were tuned empirically; deployments
// override them in config rather than editing code.
package fusion

import "fmt"

// Defaults.
const (
	// DefaultRRFK is the standard reciprocal-rank dampening constant
	// (Cormack et al. 2009).
	DefaultRRFK = 60
	// DefaultCalibration brings RRF scores (order of 1/60) into the same
	// magnitude as weighted cosine scores.
	DefaultCalibration = 30.0
	DefaultAlpha       = 0.5
	DefaultDiversity   = 0.7
)

// Config controls rank fusion and duplicate filtering.
type Config struct {
	// Alpha is the vector-search weight in [0,1]; the lexical weight is its
	// complement.
	Alpha float64
	// RRFK dampens rank influence in the reciprocal-rank term.
	RRFK int
	// Calibration scales the RRF term so it competes with the weighted
	// normalized score on equal footing.
	Calibration float64
	// MinScore discards fused documents scoring below it.
	MinScore float64
	// DiversityThreshold is the word-overlap ratio above which two passages
	// count as duplicates, in [0,1].
	DiversityThreshold float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Alpha:              DefaultAlpha,
		RRFK:               DefaultRRFK,
		Calibration:        DefaultCalibration,
		MinScore:           0,
		DiversityThreshold: DefaultDiversity,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0,1], got %v", c.Alpha)
	}
	if c.RRFK <= 0 {
		return fmt.Errorf("rrf_k must be positive, got %d", c.RRFK)
	}
	if c.Calibration <= 0 {
		return fmt.Errorf("calibration must be positive, got %v", c.Calibration)
	}
	if c.MinScore < 0 {
		return fmt.Errorf("min_score must be non-negative, got %v", c.MinScore)
	}
	if c.DiversityThreshold < 0 || c.DiversityThreshold > 1 {
		return fmt.Errorf("diversity_threshold must be in [0,1], got %v", c.DiversityThreshold)
	}
	return nil
}
