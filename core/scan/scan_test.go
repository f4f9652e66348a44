package scan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifa-core/model"
)

// fixed is a test model with a scripted score per (position-in-seq, strand).
type fixed struct {
	id       model.BinderID
	width    int
	score    func(window []byte, comp bool) (float64, error)
	tolerant bool
	calls    int
}

func (f *fixed) ID() model.BinderID     { return f.id }
func (f *fixed) Name() string           { return "fixed" }
func (f *fixed) Width() int             { return f.width }
func (f *fixed) Kind() model.Kind       { return model.KindCustom }
func (f *fixed) AcceptsAmbiguous() bool { return f.tolerant }
func (f *fixed) Score(w []byte, comp bool, _ *model.Context) (float64, error) {
	f.calls++
	return f.score(w, comp)
}

func constant(p float64) func([]byte, bool) (float64, error) {
	return func([]byte, bool) (float64, error) { return p, nil }
}

func TestScan_CountsCandidateWindows(t *testing.T) {
	m := &fixed{id: 1, width: 4, score: constant(0.5)}
	var st Stats
	hs, err := Collect(m, []byte("ACGTACGT"), Options{Threshold: 0, Complement: true, Stats: &st})
	require.NoError(t, err)
	assert.Equal(t, 10, st.Evaluations)
	assert.Equal(t, 10, m.calls)
	assert.Len(t, hs, 10)
	assert.Equal(t, Evaluations(8, 4, true), st.Evaluations)

	m.calls = 0
	hs, err = Collect(m, []byte("ACGTACGT"), Options{Threshold: 0})
	require.NoError(t, err)
	assert.Len(t, hs, 5)
	for i, h := range hs {
		assert.Equal(t, i, h.Position)
		assert.Equal(t, 4, h.Length)
		assert.False(t, h.Complementary)
	}
}

func TestScan_ShortSequence(t *testing.T) {
	m := &fixed{id: 1, width: 6, score: constant(0.9)}
	hs, err := Collect(m, []byte("ACGT"), Options{Complement: true})
	require.NoError(t, err)
	assert.Empty(t, hs)
	assert.Zero(t, m.calls)
	assert.Zero(t, Evaluations(4, 6, true))
}

func TestScan_ThresholdIsStrict(t *testing.T) {
	m := &fixed{id: 2, width: 2, score: func(w []byte, _ bool) (float64, error) {
		if w[0] == 'A' {
			return 0.5, nil
		}
		return 0.6, nil
	}}
	hs, err := Collect(m, []byte("ACAC"), Options{Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, 1, hs[0].Position)
	for _, h := range hs {
		assert.Greater(t, h.P, 0.5)
	}
}

func TestScan_SkipsAmbiguousWindowsForStrictModels(t *testing.T) {
	strict := &fixed{id: 1, width: 3, score: constant(0.9)}
	var st Stats
	hs, err := Collect(strict, []byte("ACNGTA"), Options{Stats: &st})
	require.NoError(t, err)
	// Windows ACN, CNG, NGT contain N; only GTA is scored.
	assert.Len(t, hs, 1)
	assert.Equal(t, 3, hs[0].Position)
	assert.Equal(t, 3, st.Ambiguous)
	assert.Equal(t, 1, strict.calls)

	tolerant := &fixed{id: 1, width: 3, score: constant(0.9), tolerant: true}
	hs, err = Collect(tolerant, []byte("ACNGTA"), Options{})
	require.NoError(t, err)
	assert.Len(t, hs, 4)
}

func TestScan_StartOffset(t *testing.T) {
	m := &fixed{id: 1, width: 2, score: constant(0.9)}
	hs, err := Collect(m, []byte("ACGTAC"), Options{Start: 3})
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, 3, hs[0].Position)

	hs, err = Collect(m, []byte("ACG"), Options{Start: -4})
	require.NoError(t, err)
	assert.Len(t, hs, 2)
}

func TestScan_ModelFailureStopsWithScoringError(t *testing.T) {
	boom := errors.New("boom")
	m := &fixed{id: 9, width: 2, score: func(w []byte, _ bool) (float64, error) {
		if w[0] == 'G' {
			return 0, boom
		}
		return 0.9, nil
	}}
	var got int
	var scanErr error
	for _, err := range Scan(m, []byte("ACGTT"), Options{}) {
		if err != nil {
			scanErr = err
			break
		}
		got++
	}
	assert.Equal(t, 2, got)
	var se *model.ScoringError
	require.ErrorAs(t, scanErr, &se)
	assert.Equal(t, model.BinderID(9), se.Binder)
	assert.ErrorIs(t, scanErr, boom)

	_, err := Collect(m, []byte("ACGTT"), Options{})
	require.ErrorIs(t, err, boom)
}

func TestScan_OutOfRangeScoreIsAnError(t *testing.T) {
	m := &fixed{id: 4, width: 1, score: constant(1.5)}
	_, err := Collect(m, []byte("A"), Options{})
	require.ErrorIs(t, err, model.ErrOutOfRange)
}

func TestScan_EarlyBreakStopsScoring(t *testing.T) {
	m := &fixed{id: 1, width: 1, score: constant(0.9)}
	for range Scan(m, []byte("ACGTACGT"), Options{}) {
		break
	}
	assert.Equal(t, 1, m.calls)
}

func TestPBindsAtLeastOnce(t *testing.T) {
	m := &fixed{id: 1, width: 2, score: constant(0.5)}
	p, err := PBindsAtLeastOnce(m, []byte("ACG"), Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, p, 1e-12)

	p, err = PBindsAtLeastOnce(m, []byte("A"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestScan_ConsensusOnBothStrands(t *testing.T) {
	m, err := model.NewConsensus(5, "gata", "GATA", 1)
	require.NoError(t, err)
	hs, err := Collect(m, []byte("CCGATACCTATCCC"), Options{Threshold: 0.99, Complement: true})
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, 2, hs[0].Position)
	assert.False(t, hs[0].Complementary)
	assert.Equal(t, 8, hs[1].Position)
	assert.True(t, hs[1].Complementary)
}
