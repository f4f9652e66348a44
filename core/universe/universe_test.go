package universe

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifa-core/likelihood"
	"bifa-core/model"
)

func pssm(t *testing.T, name string) *model.PSSM {
	t.Helper()
	p, err := model.NewPSSM(name, [][4]float64{{8, 0, 0, 0}, {0, 8, 0, 0}, {0, 0, 8, 0}})
	require.NoError(t, err)
	return p
}

func TestRegister_IssuesSequentialIDs(t *testing.T) {
	u := New()
	for i, pat := range []string{"GATA", "TTGC", "CCAAT"} {
		id, err := u.Register(func(id model.BinderID) (model.Model, error) {
			return model.NewConsensus(id, pat, pat, 1)
		})
		require.NoError(t, err)
		assert.Equal(t, model.BinderID(i+1), id)
	}
	assert.Equal(t, 3, u.Len())
	assert.Equal(t, []uint32{1, 2, 3}, u.IDs().ToArray())

	m, ok := u.Lookup("TTGC")
	require.True(t, ok)
	assert.Equal(t, model.BinderID(2), m.ID())
	assert.Equal(t, "CCAAT", u.Name(3))
	assert.Equal(t, "binder#9", u.Name(9))
}

func TestRegister_FailedFactoryConsumesID(t *testing.T) {
	u := New()
	_, err := u.Register(func(model.BinderID) (model.Model, error) { return nil, errors.New("boom") })
	require.Error(t, err)

	id, err := u.Register(func(id model.BinderID) (model.Model, error) {
		return model.NewConsensus(id, "x", "ACGT", 1)
	})
	require.NoError(t, err)
	assert.Equal(t, model.BinderID(2), id)
	_, ok := u.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, u.Len())
	assert.Len(t, u.Models(), 1)
}

func TestRegister_RejectsForeignID(t *testing.T) {
	u := New()
	_, err := u.Register(func(model.BinderID) (model.Model, error) {
		return model.NewConsensus(42, "x", "ACGT", 1)
	})
	require.Error(t, err)
}

func TestFillFromPSSMs(t *testing.T) {
	u := New()
	cache := likelihood.NewCache(likelihood.PSSMBuilder(u.PSSM, 100))
	ids, err := u.FillFromPSSMs([]*model.PSSM{pssm(t, "a"), pssm(t, "b")}, model.KindBayesian, cache, 0.1)
	require.NoError(t, err)
	assert.Equal(t, []model.BinderID{1, 2}, ids)

	m, ok := u.Get(2)
	require.True(t, ok)
	assert.Equal(t, model.KindBayesian, m.Kind())
	assert.NotNil(t, u.PSSM(2))

	p, err := m.Score([]byte("ACG"), false, nil)
	require.NoError(t, err)
	assert.Greater(t, p, 0.1)

	ids, err = u.FillFromPSSMs([]*model.PSSM{pssm(t, "c")}, model.KindMatch, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []model.BinderID{3}, ids)

	_, err = u.FillFromPSSMs([]*model.PSSM{pssm(t, "d")}, model.KindBayesian, cache, 2)
	require.ErrorIs(t, err, model.ErrConfiguration)

	_, err = u.FillFromPSSMs([]*model.PSSM{pssm(t, "e")}, model.KindConsensus, nil, 0)
	require.ErrorIs(t, err, model.ErrConfiguration)
}

func TestConcurrentReadsDuringRegistration(t *testing.T) {
	u := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = u.Register(func(id model.BinderID) (model.Model, error) {
					return model.NewConsensus(id, id.String(), "ACGT", 1)
				})
				_ = u.Models()
				_ = u.IDs()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, u.Len())
}
