// Package bayes calibrates a raw matrix score into a posterior probability of
// binding by weighing the binding and background likelihoods against a prior.
package bayes

import (
	"math"

	"bifa-core/likelihood"
	"bifa-core/model"
)

// Posterior applies Bayes' rule with the two degenerate cases pinned down:
// a zero binding likelihood gives exactly 0, and a zero background likelihood
// (with a non-zero binding likelihood) gives exactly 1.
//
// Likelihoods outside [0,1] and any non-probability result are reported as
// *model.OutOfRangeError with a zero binder; Model.Score fills the binder in.
func Posterior(pBinding, pBackground, prior float64) (float64, error) {
	if err := model.CheckProbability(0, "binding likelihood", pBinding); err != nil {
		return 0, err
	}
	if err := model.CheckProbability(0, "background likelihood", pBackground); err != nil {
		return 0, err
	}
	if err := model.CheckProbability(0, "prior", prior); err != nil {
		return 0, err
	}

	// A zero numerator short-circuits before 0/0 can happen.
	var bf float64
	if num := pBinding * prior; num != 0 {
		bf = num / (pBackground * (1 - prior))
	}

	var post float64
	if math.IsInf(bf, 0) {
		post = 1
	} else {
		post = bf / (1 + bf)
	}
	if err := model.CheckProbability(0, "posterior", post); err != nil {
		return 0, err
	}
	return post, nil
}

// Model is a PSSM whose normalised score is calibrated through likelihood
// tables into a posterior probability of binding.
type Model struct {
	id     model.BinderID
	pssm   *model.PSSM
	tables likelihood.Source
	prior  float64
}

// New validates prior and returns a Bayesian model. Tables are fetched from
// src on every Score call, so a memoising source is expected.
func New(id model.BinderID, pssm *model.PSSM, src likelihood.Source, prior float64) (*Model, error) {
	if pssm == nil {
		return nil, &model.ConfigurationError{Field: "pssm", Value: nil}
	}
	if src == nil {
		return nil, &model.ConfigurationError{Field: "likelihoods", Value: nil}
	}
	if !(prior >= 0 && prior <= 1) {
		return nil, &model.ConfigurationError{Field: "p_binding_prior", Value: prior}
	}
	return &Model{id: id, pssm: pssm, tables: src, prior: prior}, nil
}

func (m *Model) ID() model.BinderID { return m.id }
func (m *Model) Name() string       { return m.pssm.Name() }
func (m *Model) Width() int         { return m.pssm.Width() }
func (m *Model) Kind() model.Kind   { return model.KindBayesian }
func (m *Model) Prior() float64     { return m.prior }
func (m *Model) PSSM() *model.PSSM  { return m.pssm }

// Score computes the normalised log-odds score of the window and calibrates it.
func (m *Model) Score(window []byte, complementary bool, _ *model.Context) (float64, error) {
	if err := model.CheckWindow(m, window); err != nil {
		return 0, err
	}
	return m.ScoreData(m.pssm.NormalizedScore(window, complementary))
}

// ScoreData calibrates an already computed normalised score.
func (m *Model) ScoreData(data float64) (float64, error) {
	t, err := m.tables.Likelihoods(m.id)
	if err != nil {
		return 0, err
	}
	p, err := Posterior(t.Binding.Lookup(data), t.Background.Lookup(data), m.prior)
	if err != nil {
		if oe, ok := err.(*model.OutOfRangeError); ok {
			oe.Binder = m.id
		}
		return 0, err
	}
	return p, nil
}
