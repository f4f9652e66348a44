// Package hits holds binding hits and the Set that indexes them by position,
// by binder and by probability at the same time.
package hits

import (
	"cmp"
	"fmt"
	"math"

	"bifa-core/model"
)

// Tolerance is the probability difference under which two hits compare equal.
const Tolerance = 1e-9

// Hit is one window whose probability of binding passed a threshold.
// Position is the 0-based forward-strand start; Length is the model width.
type Hit struct {
	Binder        model.BinderID
	P             float64
	Position      int
	Length        int
	Complementary bool
}

// End returns the exclusive end coordinate of the window.
func (h Hit) End() int { return h.Position + h.Length }

// Validate reports a hit that can never be legal.
func (h Hit) Validate() error {
	if err := model.CheckProbability(h.Binder, "p_binding", h.P); err != nil {
		return err
	}
	if h.Position < 0 || h.Length <= 0 {
		return fmt.Errorf("invalid hit window %d+%d for %s", h.Position, h.Length, h.Binder)
	}
	return nil
}

// Equal compares probabilities within Tolerance and everything else exactly.
func (h Hit) Equal(o Hit) bool {
	return h.Binder == o.Binder &&
		h.Position == o.Position &&
		h.Length == o.Length &&
		h.Complementary == o.Complementary &&
		math.Abs(h.P-o.P) <= Tolerance
}

func (h Hit) String() string {
	strand := '+'
	if h.Complementary {
		strand = '-'
	}
	return fmt.Sprintf("%s@%d%c/%d p=%.4f", h.Binder, h.Position, strand, h.Length, h.P)
}

// Compare orders hits by position, strand (forward first), length,
// probability and finally binder.
func Compare(a, b Hit) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	if a.Complementary != b.Complementary {
		if !a.Complementary {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Length, b.Length); c != 0 {
		return c
	}
	if c := cmp.Compare(a.P, b.P); c != 0 {
		return c
	}
	return cmp.Compare(a.Binder, b.Binder)
}

// Less reports whether a sorts before b under Compare.
func Less(a, b Hit) bool { return Compare(a, b) < 0 }

// CompareBinder orders by binder first, then by Compare.
func CompareBinder(a, b Hit) int {
	if c := cmp.Compare(a.Binder, b.Binder); c != 0 {
		return c
	}
	return Compare(a, b)
}

// CompareProbability orders by probability first, then by Compare.
func CompareProbability(a, b Hit) int {
	if c := cmp.Compare(a.P, b.P); c != 0 {
		return c
	}
	return Compare(a, b)
}

// PBindsAtLeastOnce returns 1 - Π(1-p): the probability that at least one of
// the windows is bound, treating them as independent.
func PBindsAtLeastOnce(ps []float64) float64 {
	miss := 1.0
	for _, p := range ps {
		miss *= 1 - p
	}
	return 1 - miss
}
