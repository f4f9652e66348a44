// Package phylo refines a binder's probability in the central sequence with
// how strongly the same binder scores in orthologous sequences.
//
// Evidence is collected per binder (one probability per related sequence)
// and then applied to every hit of that binder through Finalize.
package phylo

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrNaN reports an adjustment that produced NaN. It is never data-dependent:
// it points at corrupt upstream probabilities.
var ErrNaN = errors.New("phylogenetic adjustment produced NaN")

// ErrEvidence reports related-sequence evidence that is not a probability.
var ErrEvidence = errors.New("related evidence out of range")

// Strategy selects how central and related evidence are combined.
type Strategy uint8

const (
	// GeometricMean averages log-probabilities.
	GeometricMean Strategy = iota
	// BayesFactorAverage averages log-Bayes-factors relative to the prior,
	// with a floor on each related sequence's contribution.
	BayesFactorAverage
)

func (s Strategy) String() string {
	switch s {
	case GeometricMean:
		return "geometric"
	case BayesFactorAverage:
		return "bayes"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy accepts the names printed by String.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geometric", "geometric-mean", "gm":
		return GeometricMean, nil
	case "bayes", "bayes-factor", "bf":
		return BayesFactorAverage, nil
	}
	return 0, fmt.Errorf("unknown phylogenetic strategy %q", s)
}

// Config parameterises an Adjuster.
type Config struct {
	Strategy Strategy
	// Prior is the prior probability of binding; BayesFactorAverage only.
	Prior float64
	// MinLogBFFraction sets the floor for a related sequence's
	// log-Bayes-factor to -MinLogBFFraction*|central log-Bayes-factor|.
	// The absolute value is intended: the floor is never positive, also when
	// the central log-Bayes-factor is, so strong central evidence never lifts
	// weak related evidence above neutral. BayesFactorAverage only.
	MinLogBFFraction float64
}

// DefaultConfig is the geometric mean with parameters usable by either strategy.
func DefaultConfig() Config {
	return Config{Strategy: GeometricMean, Prior: 0.01, MinLogBFFraction: 0.5}
}

// Validate checks the fields the selected strategy reads.
func (c Config) Validate() error {
	switch c.Strategy {
	case GeometricMean:
		return nil
	case BayesFactorAverage:
		if !(c.Prior > 0 && c.Prior < 1) {
			return fmt.Errorf("phylo: prior must be in (0,1), got %v", c.Prior)
		}
		if !(c.MinLogBFFraction >= 0) || math.IsInf(c.MinLogBFFraction, 0) {
			return fmt.Errorf("phylo: min log-Bayes-factor fraction must be finite and >= 0, got %v", c.MinLogBFFraction)
		}
		return nil
	default:
		return fmt.Errorf("phylo: unknown strategy %v", c.Strategy)
	}
}

// Adjuster accumulates related-sequence evidence for one binder.
//
// Accept may be called any number of times, in any order; the result does
// not depend on the order. Finalize does not consume the evidence, so one
// Adjuster serves every hit of its binder.
type Adjuster interface {
	Accept(p float64) error
	N() int
	Finalize(pCentral float64) (float64, error)
}

// New returns a fresh Adjuster for cfg.
func New(cfg Config) (Adjuster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Strategy == BayesFactorAverage {
		return &bayesFactor{prior: cfg.Prior, fraction: cfg.MinLogBFFraction}, nil
	}
	return &geometric{}, nil
}

// evidence is the order-independent store shared by both strategies.
type evidence struct {
	ps []float64
}

func (e *evidence) Accept(p float64) error {
	if !(p >= 0 && p <= 1) {
		return fmt.Errorf("%w: %v", ErrEvidence, p)
	}
	e.ps = append(e.ps, p)
	return nil
}

func (e *evidence) N() int { return len(e.ps) }

// sorted returns the evidence in ascending order so that floating-point
// sums do not depend on arrival order.
func (e *evidence) sorted() []float64 {
	s := slices.Clone(e.ps)
	slices.Sort(s)
	return s
}

func checkCentral(p float64) error {
	if !(p >= 0 && p <= 1) {
		return fmt.Errorf("%w: central probability %v", ErrEvidence, p)
	}
	return nil
}

type geometric struct{ evidence }

// Finalize returns exp((ln pc + Σ ln p_i) / (N+1)).
func (g *geometric) Finalize(pc float64) (float64, error) {
	if err := checkCentral(pc); err != nil {
		return 0, err
	}
	if g.N() == 0 {
		return pc, nil
	}
	if pc == 0 {
		return 0, nil
	}
	sum := math.Log(pc)
	for _, p := range g.sorted() {
		sum += math.Log(p)
	}
	v := math.Exp(sum / float64(g.N()+1))
	if math.IsNaN(v) {
		return 0, ErrNaN
	}
	return math.Min(v, 1), nil
}

type bayesFactor struct {
	evidence
	prior    float64
	fraction float64
}

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

// Finalize averages log-Bayes-factors: the central one as is, each related
// one raised to the floor, and maps the mean back through the prior odds.
func (b *bayesFactor) Finalize(pc float64) (float64, error) {
	if err := checkCentral(pc); err != nil {
		return 0, err
	}
	if b.N() == 0 {
		return pc, nil
	}
	switch pc {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	}

	priorLO := logit(b.prior)
	central := logit(pc) - priorLO
	floor := -b.fraction * math.Abs(central)

	sum := central
	for _, p := range b.sorted() {
		lbf := logit(p) - priorLO
		if lbf < floor {
			lbf = floor
		}
		sum += lbf
	}
	odds := math.Exp(sum/float64(b.N()+1) + priorLO)
	if math.IsInf(odds, 1) {
		return 1, nil
	}
	v := odds / (1 + odds)
	if math.IsNaN(v) {
		return 0, ErrNaN
	}
	return v, nil
}
