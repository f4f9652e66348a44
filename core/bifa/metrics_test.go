package bifa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bifa-core/model"
	"bifa-core/universe"
)

type mockMetrics struct{ mock.Mock }

func (m *mockMetrics) RecordScan(b model.BinderID, evaluations, hits int, d time.Duration) {
	m.Called(b, evaluations, hits, d)
}
func (m *mockMetrics) RecordSkip(b model.BinderID, err error) { m.Called(b, err) }
func (m *mockMetrics) RecordAdjust(b model.BinderID, hits int) { m.Called(b, hits) }
func (m *mockMetrics) RecordRun(d time.Duration, hits int, err error) {
	m.Called(d, hits, err)
}

func TestRun_ReportsMetrics(t *testing.T) {
	u := universe.New()
	gata, err := u.Register(func(id model.BinderID) (model.Model, error) {
		return model.NewConsensus(id, "GATA", "GATA", 1)
	})
	require.NoError(t, err)
	broken := register(t, u, "broken", nil, "CCGA")

	mm := &mockMetrics{}
	anyInt := mock.AnythingOfType("int")
	anyDur := mock.AnythingOfType("time.Duration")
	// Once for the central sequence, once for the related one.
	mm.On("RecordScan", gata, anyInt, anyInt, anyDur).Twice()
	mm.On("RecordSkip", broken, mock.Anything).Once()
	mm.On("RecordAdjust", gata, 2).Once()
	mm.On("RecordRun", anyDur, 2, nil).Once()

	cfg := DefaultConfig()
	cfg.Threshold = 0.99
	a, err := New(u, cfg, WithMetrics(mm))
	require.NoError(t, err)

	res, err := a.Run(context.Background(), []byte("CCGATACCTATCCC"), [][]byte{[]byte("AAGATAAA")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Hits.Len())
	assert.Equal(t, 1, res.SkippedCount())
	mm.AssertExpectations(t)
}

func TestBasicMetricsCollector(t *testing.T) {
	var b BasicMetricsCollector
	b.RecordScan(1, 10, 2, time.Millisecond)
	b.RecordScan(2, 30, 0, 3*time.Millisecond)
	b.RecordSkip(3, errWindow)
	b.RecordAdjust(1, 2)
	b.RecordRun(time.Second, 2, nil)

	st := b.GetStats()
	assert.Equal(t, int64(2), st.Scans)
	assert.Equal(t, int64(40), st.Evaluations)
	assert.Equal(t, int64(1), st.Skips)
}
