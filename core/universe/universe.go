// Package universe is the registry of binding models shared by every
// analysis in a process. It issues binder identities and never reuses them.
package universe

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"bifa-core/bayes"
	"bifa-core/likelihood"
	"bifa-core/model"
)

// Factory builds the model that will carry id.
type Factory func(id model.BinderID) (model.Model, error)

// Universe maps binder identities to read-only models. Registration and
// lookups may run concurrently.
type Universe struct {
	mu     sync.RWMutex
	models []model.Model // index = id-1
	byName map[string]model.BinderID
	next   model.BinderID
}

// New returns an empty universe; the first registered model gets id 1.
func New() *Universe {
	return &Universe{byName: make(map[string]model.BinderID), next: 1}
}

// Register reserves the next id and stores the model built for it. The id is
// consumed even if the factory fails, so identities are never recycled.
func (u *Universe) Register(f Factory) (model.BinderID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := u.next
	u.next++
	m, err := f(id)
	if err != nil {
		u.models = append(u.models, nil)
		return 0, err
	}
	if m == nil || m.ID() != id {
		u.models = append(u.models, nil)
		return 0, fmt.Errorf("universe: factory for %v returned a model with a different id", id)
	}
	u.models = append(u.models, m)
	if _, dup := u.byName[m.Name()]; !dup {
		u.byName[m.Name()] = id
	}
	return id, nil
}

// Get returns the model for id.
func (u *Universe) Get(id model.BinderID) (model.Model, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if id == 0 || int(id) > len(u.models) {
		return nil, false
	}
	m := u.models[id-1]
	return m, m != nil
}

// Lookup returns the first model registered under name.
func (u *Universe) Lookup(name string) (model.Model, bool) {
	u.mu.RLock()
	id, ok := u.byName[name]
	u.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return u.Get(id)
}

// Name returns the model name for id, or the id's own string form.
func (u *Universe) Name(id model.BinderID) string {
	if m, ok := u.Get(id); ok {
		return m.Name()
	}
	return id.String()
}

// Models returns the registered models in id order.
func (u *Universe) Models() []model.Model {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]model.Model, 0, len(u.models))
	for _, m := range u.models {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// IDs returns the set of live binder ids.
func (u *Universe) IDs() *roaring.Bitmap {
	u.mu.RLock()
	defer u.mu.RUnlock()
	bm := roaring.New()
	for i, m := range u.models {
		if m != nil {
			bm.Add(uint32(i + 1))
		}
	}
	return bm
}

// Len returns the number of live models.
func (u *Universe) Len() int {
	return int(u.IDs().GetCardinality())
}

// PSSM returns the matrix behind id when the model has one. It is shaped to
// feed likelihood.PSSMBuilder.
func (u *Universe) PSSM(id model.BinderID) *model.PSSM {
	m, ok := u.Get(id)
	if !ok {
		return nil
	}
	if pm, ok := m.(interface{ PSSM() *model.PSSM }); ok {
		return pm.PSSM()
	}
	return nil
}

// FillFromPSSMs registers one model per matrix. kind selects KindBayesian
// (calibrated through src with the given prior) or KindMatch (src and prior
// ignored). It stops at the first failure and returns the ids registered so far.
func (u *Universe) FillFromPSSMs(pssms []*model.PSSM, kind model.Kind, src likelihood.Source, prior float64) ([]model.BinderID, error) {
	ids := make([]model.BinderID, 0, len(pssms))
	for _, p := range pssms {
		var f Factory
		switch kind {
		case model.KindBayesian:
			f = func(id model.BinderID) (model.Model, error) { return bayes.New(id, p, src, prior) }
		case model.KindMatch:
			f = func(id model.BinderID) (model.Model, error) { return model.NewMatch(id, p, model.MatchSimilarity) }
		default:
			return ids, &model.ConfigurationError{Field: "kind", Value: kind}
		}
		id, err := u.Register(f)
		if err != nil {
			return ids, fmt.Errorf("register %s: %w", p.Name(), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
