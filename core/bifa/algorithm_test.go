package bifa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifa-core/hits"
	"bifa-core/model"
	"bifa-core/phylo"
	"bifa-core/universe"
)

var errWindow = errors.New("unscorable window")

// tableModel scores windows from a lookup table; unknown windows score 0.
type tableModel struct {
	id    model.BinderID
	name  string
	width int
	p     map[string]float64
	fail  map[string]bool
}

func (m *tableModel) ID() model.BinderID { return m.id }
func (m *tableModel) Name() string       { return m.name }
func (m *tableModel) Width() int         { return m.width }
func (m *tableModel) Kind() model.Kind   { return model.KindCustom }

func (m *tableModel) Score(window []byte, _ bool, _ *model.Context) (float64, error) {
	w := string(window[:m.width])
	if m.fail[w] {
		return 0, errWindow
	}
	return m.p[w], nil
}

func register(t *testing.T, u *universe.Universe, name string, p map[string]float64, fail ...string) model.BinderID {
	t.Helper()
	id, err := u.Register(func(id model.BinderID) (model.Model, error) {
		m := &tableModel{id: id, name: name, width: 4, p: p, fail: map[string]bool{}}
		for _, f := range fail {
			m.fail[f] = true
		}
		return m, nil
	})
	require.NoError(t, err)
	return id
}

func config() Config {
	cfg := DefaultConfig()
	cfg.Complement = false
	cfg.Threshold = 0.5
	cfg.PhyloThreshold = 0.1
	return cfg
}

func TestRun_CentralOnly(t *testing.T) {
	u := universe.New()
	_, err := u.Register(func(id model.BinderID) (model.Model, error) {
		return model.NewConsensus(id, "GATA", "GATA", 1)
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Threshold = 0.99
	a, err := New(u, cfg)
	require.NoError(t, err)
	assert.Equal(t, Idle, a.State())

	res, err := a.Run(context.Background(), []byte("CCGATACCTATCCC"), nil)
	require.NoError(t, err)
	assert.Equal(t, Done, a.State())
	assert.Equal(t, 0, res.SkippedCount())
	assert.Equal(t, 0, res.Adjusted)

	got := res.Hits.Hits()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Position)
	assert.False(t, got[0].Complementary)
	assert.Equal(t, 8, got[1].Position)
	assert.True(t, got[1].Complementary)
}

func TestRun_IsSingleUse(t *testing.T) {
	u := universe.New()
	register(t, u, "a", map[string]float64{"AAAA": 0.9})
	a, err := New(u, config())
	require.NoError(t, err)
	_, err = a.Run(context.Background(), []byte("AAAA"), nil)
	require.NoError(t, err)
	_, err = a.Run(context.Background(), []byte("AAAA"), nil)
	require.ErrorIs(t, err, ErrAlreadyRun)
}

func TestRun_SkipsFailingModel(t *testing.T) {
	u := universe.New()
	good := register(t, u, "good", map[string]float64{"ACGT": 0.8})
	bad := register(t, u, "bad", nil, "CGTA")
	metrics := &BasicMetricsCollector{}

	a, err := New(u, config(), WithMetrics(metrics))
	require.NoError(t, err)
	res, err := a.Run(context.Background(), []byte("ACGTA"), nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.SkippedCount())
	s := res.Skipped[0]
	assert.Equal(t, bad, s.Binder)
	assert.Equal(t, PhaseCentral, s.Phase)
	assert.Equal(t, -1, s.Sequence)
	require.ErrorIs(t, s.Err, errWindow)

	var se *model.ScoringError
	require.ErrorAs(t, s.Err, &se)
	assert.Equal(t, "bad", se.Name)

	require.Equal(t, 1, res.Hits.Len())
	assert.Equal(t, good, res.Hits.Hits()[0].Binder)

	st := metrics.GetStats()
	assert.Equal(t, int64(1), st.Skips)
	assert.Equal(t, int64(1), st.Scans)
	assert.Equal(t, int64(1), st.Runs)
	assert.Equal(t, int64(1), st.FinalHits)
}

func TestRun_LogsEverySkippedModel(t *testing.T) {
	u := universe.New()
	const n = 15
	for i := range n {
		register(t, u, fmt.Sprintf("broken-%02d", i), nil, "ACGT")
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	a, err := New(u, config(), WithLogger(logger))
	require.NoError(t, err)
	res, err := a.Run(context.Background(), []byte("ACGT"), nil)
	require.NoError(t, err)
	require.Equal(t, n, res.SkippedCount())

	out := buf.String()
	for i := range n {
		assert.Contains(t, out, fmt.Sprintf("broken-%02d(%d)/central", i, i+1))
	}
	assert.Contains(t, out, "count=15")
}

func TestRun_PhylogeneticAdjustment(t *testing.T) {
	u := universe.New()
	id := register(t, u, "tf", map[string]float64{"AAAA": 0.9, "CCCC": 0.9, "GGGG": 0.4})
	other := register(t, u, "quiet", map[string]float64{"CCCC": 0.9})

	a, err := New(u, config())
	require.NoError(t, err)
	res, err := a.Run(context.Background(), []byte("AAAATAAAA"), [][]byte{[]byte("TCCCCT"), []byte("GGGG")})
	require.NoError(t, err)

	// Both central hits share one adjusted value, the cube root of 0.9*0.9*0.4.
	require.Equal(t, 2, res.Hits.Len())
	assert.Equal(t, 2, res.Adjusted)
	for h := range res.Hits.ByPosition() {
		assert.Equal(t, id, h.Binder)
		assert.InDelta(t, 0.6868285, h.P, 1e-6)
	}
	assert.Empty(t, res.Hits.EqualRange(other))
}

func TestRun_ShortRelatedSequenceCountsAsAbsent(t *testing.T) {
	u := universe.New()
	register(t, u, "tf", map[string]float64{"AAAA": 0.9})
	a, err := New(u, config())
	require.NoError(t, err)
	// Related sequences shorter than the model contribute a zero probability.
	res, err := a.Run(context.Background(), []byte("AAAA"), [][]byte{[]byte("AA")})
	require.NoError(t, err)
	require.Equal(t, 1, res.Hits.Len())
	assert.Equal(t, 1, res.Adjusted)
	assert.Equal(t, 0.0, res.Hits.Hits()[0].P)
}

func TestRun_BayesFactorStrategyAndCutoff(t *testing.T) {
	u := universe.New()
	register(t, u, "tf", map[string]float64{"AAAA": 0.9})

	cfg := config()
	cfg.Phylo = phylo.Config{Strategy: phylo.BayesFactorAverage, Prior: 0.5, MinLogBFFraction: 0.5}
	cfg.Cutoff = 0.7
	a, err := New(u, cfg)
	require.NoError(t, err)

	// The ortholog is absent; its evidence is floored, dragging 0.9 to ~0.63.
	res, err := a.Run(context.Background(), []byte("AAAA"), [][]byte{[]byte("TTTT")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Adjusted)
	assert.Equal(t, 0, res.Hits.Len())
}

func TestRun_RelatedFailureDropsOnlyThatEvidence(t *testing.T) {
	u := universe.New()
	id := register(t, u, "tf", map[string]float64{"AAAA": 0.8, "GGGG": 0.8}, "CCCC")
	a, err := New(u, config())
	require.NoError(t, err)

	res, err := a.Run(context.Background(), []byte("AAAA"), [][]byte{[]byte("CCCC"), []byte("GGGG")})
	require.NoError(t, err)
	require.Equal(t, 1, res.SkippedCount())
	assert.Equal(t, SkippedModel{Binder: id, Name: "tf", Phase: PhaseRelated, Sequence: 0, Err: res.Skipped[0].Err}, res.Skipped[0])
	require.Equal(t, 1, res.Hits.Len())
	assert.InDelta(t, 0.8, res.Hits.Hits()[0].P, 1e-12)
}

func TestRun_Cancelled(t *testing.T) {
	u := universe.New()
	register(t, u, "tf", map[string]float64{"AAAA": 0.9})
	a, err := New(u, config())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Run(ctx, []byte("AAAA"), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Done, a.State())
}

func TestRun_ManyModelsConcurrently(t *testing.T) {
	u := universe.New()
	for i := 0; i < 64; i++ {
		register(t, u, "tf", map[string]float64{"ACGT": 0.6 + float64(i)/1000})
	}
	cfg := config()
	cfg.Threads = 4
	a, err := New(u, cfg)
	require.NoError(t, err)
	res, err := a.Run(context.Background(), []byte("ACGTACGT"), [][]byte{[]byte("ACGT")})
	require.NoError(t, err)
	assert.Equal(t, 128, res.Hits.Len())
	assert.Equal(t, 128, res.Adjusted)

	var prev hits.Hit
	first := true
	for h := range res.Hits.ByPosition() {
		if !first {
			assert.LessOrEqual(t, hits.Compare(prev, h), 0)
		}
		prev, first = h, false
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	u := universe.New()
	cfg := DefaultConfig()
	cfg.Threshold = 1.5
	_, err := New(u, cfg)
	require.ErrorIs(t, err, model.ErrConfiguration)

	cfg = DefaultConfig()
	cfg.Phylo.Strategy = phylo.BayesFactorAverage
	cfg.Phylo.Prior = 0
	_, err = New(u, cfg)
	require.ErrorIs(t, err, model.ErrConfiguration)

	_, err = New(nil, DefaultConfig())
	require.Error(t, err)
}
