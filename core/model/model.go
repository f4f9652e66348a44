// Package model defines the binding-model abstraction: something that, given a
// window of sequence and a strand flag, returns a probability of binding.
//
// The set of variants is closed (see Kind); Model is the extension point for
// anything else. Models are shared and read-only for the duration of a run,
// so every implementation must be safe for concurrent Score calls.
package model

import "fmt"

// BinderID identifies a binding model for the lifetime of an analysis run.
// IDs are issued by the model universe; 0 is never issued.
type BinderID uint32

func (id BinderID) String() string { return fmt.Sprintf("binder#%d", uint32(id)) }

// Kind tags the model family.
type Kind uint8

const (
	KindCustom Kind = iota
	KindBayesian
	KindMatch
	KindConsensus
)

func (k Kind) String() string {
	switch k {
	case KindBayesian:
		return "bayesian"
	case KindMatch:
		return "match"
	case KindConsensus:
		return "consensus"
	default:
		return "custom"
	}
}

// Model scores a single window.
//
// window must hold at least Width() symbols; Score reads exactly the first
// Width(). When complementary is true the reverse complement of that prefix is
// scored. The result is always in [0,1]; failures are reported as errors, never
// as NaN.
type Model interface {
	ID() BinderID
	Name() string
	Width() int
	Kind() Kind
	Score(window []byte, complementary bool, ctx *Context) (float64, error)
}

// AmbiguityTolerant is implemented by models that can score windows holding
// IUPAC ambiguity codes. Scanners skip ambiguous windows for every other model.
type AmbiguityTolerant interface {
	AcceptsAmbiguous() bool
}

// AcceptsAmbiguous reports whether m may be invoked on an ambiguous window.
func AcceptsAmbiguous(m Model) bool {
	t, ok := m.(AmbiguityTolerant)
	return ok && t.AcceptsAmbiguous()
}

// CheckWindow returns ErrShortWindow when w cannot hold a full model window.
func CheckWindow(m Model, w []byte) error {
	if len(w) < m.Width() {
		return fmt.Errorf("%w: %s needs %d bases, got %d", ErrShortWindow, m.Name(), m.Width(), len(w))
	}
	return nil
}

// CheckProbability validates that p is a probability for binder id.
func CheckProbability(id BinderID, quantity string, p float64) error {
	if p >= 0 && p <= 1 { // false for NaN
		return nil
	}
	return &OutOfRangeError{Binder: id, Quantity: quantity, Value: p}
}
