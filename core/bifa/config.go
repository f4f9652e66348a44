package bifa

import (
	"fmt"
	"math"

	"bifa-core/phylo"
)

// Config holds the thresholds of one analysis.
type Config struct {
	// Threshold is the strict lower bound for central-sequence hits.
	Threshold float64
	// PhyloThreshold is the strict lower bound for hits in related sequences,
	// usually looser than Threshold.
	PhyloThreshold float64
	// Cutoff drops hits whose final probability is <= Cutoff. Negative disables.
	Cutoff float64
	// Complement also scans the reverse-complement strand.
	Complement bool
	Phylo      phylo.Config
	// Threads bounds concurrent model scans. <= 0 means GOMAXPROCS.
	Threads int
}

// DefaultConfig returns the thresholds used by the command-line tool.
func DefaultConfig() Config {
	return Config{
		Threshold:      0.05,
		PhyloThreshold: 0.01,
		Cutoff:         -1,
		Complement:     true,
		Phylo:          phylo.DefaultConfig(),
	}
}

func unit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0,1], got %v", name, v)
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if err := unit("threshold", c.Threshold); err != nil {
		return err
	}
	if err := unit("phylo threshold", c.PhyloThreshold); err != nil {
		return err
	}
	if c.Cutoff >= 0 {
		if err := unit("cutoff", c.Cutoff); err != nil {
			return err
		}
	} else if math.IsNaN(c.Cutoff) {
		return fmt.Errorf("cutoff must not be NaN")
	}
	return c.Phylo.Validate()
}
