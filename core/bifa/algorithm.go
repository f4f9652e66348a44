// Package bifa runs a full binding-site analysis: scan a central sequence
// with every model, then sharpen each binder's probabilities with how well
// it is conserved across related sequences.
package bifa

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"bifa-core/hits"
	"bifa-core/model"
	"bifa-core/phylo"
	"bifa-core/scan"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("bifa: algorithm already run; create a new one per input")

// Models supplies the models of an analysis. *universe.Universe implements it.
type Models interface {
	Models() []model.Model
}

// State is the lifecycle position of an Algorithm.
type State int32

const (
	Idle State = iota
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Phase names the step in which a model was skipped.
type Phase string

const (
	PhaseCentral Phase = "central"
	PhaseRelated Phase = "related"
)

// SkippedModel records one model failure that Run recovered from.
type SkippedModel struct {
	Binder model.BinderID
	Name   string
	Phase  Phase
	// Sequence is the index into the related sequences, -1 for the central one.
	Sequence int
	Err      error
}

// Result is the outcome of a run. Hits is owned by the caller.
type Result struct {
	Hits     *hits.Set
	Skipped  []SkippedModel
	Adjusted int // hits whose probability the phylogenetic step rewrote
}

// SkippedCount returns how many model failures were skipped.
func (r *Result) SkippedCount() int { return len(r.Skipped) }

// Algorithm is a single-use analysis. Build one per central sequence.
type Algorithm struct {
	models Models
	cfg    Config
	opts   options
	state  atomic.Int32
	warn   rate.Sometimes
}

// New validates cfg and returns an idle Algorithm.
func New(models Models, cfg Config, opts ...Option) (*Algorithm, error) {
	if models == nil {
		return nil, &model.ConfigurationError{Field: "models", Value: nil}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.GOMAXPROCS(0)
	}
	return &Algorithm{
		models: models,
		cfg:    cfg,
		opts:   o,
		warn:   rate.Sometimes{First: 10, Interval: 5 * time.Second},
	}, nil
}

// State reports where the algorithm is in its lifecycle.
func (a *Algorithm) State() State { return State(a.state.Load()) }

// Run scans central with every model and, when related sequences are given,
// adjusts each binder's hits by its conservation. Model failures are logged
// and skipped; a NaN from the adjustment or a cancelled ctx aborts the run.
func (a *Algorithm) Run(ctx context.Context, central []byte, related [][]byte) (res *Result, err error) {
	if !a.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return nil, ErrAlreadyRun
	}
	start := time.Now()
	defer func() {
		a.state.Store(int32(Done))
		n := 0
		if res != nil {
			n = res.Hits.Len()
		}
		a.opts.metrics.RecordRun(time.Since(start), n, err)
	}()

	models := a.models.Models()
	res = &Result{Hits: hits.NewSet(0)}

	if err := a.scanCentral(ctx, models, central, res); err != nil {
		return nil, err
	}
	if len(related) > 0 && res.Hits.Len() > 0 {
		if err := a.adjust(ctx, models, related, res); err != nil {
			return nil, err
		}
	}
	if a.cfg.Cutoff >= 0 {
		cut := a.cfg.Cutoff
		res.Hits.Filter(func(h hits.Hit) bool { return h.P > cut })
	}

	a.logSkipped(res)
	a.opts.logger.Debug("bifa run finished",
		"models", len(models),
		"hits", res.Hits.Len(),
		"adjusted", res.Adjusted,
		"skipped", res.SkippedCount(),
		"elapsed", time.Since(start))
	return res, nil
}

func (a *Algorithm) scanOptions(threshold float64) scan.Options {
	return scan.Options{Threshold: threshold, Complement: a.cfg.Complement, Context: a.opts.mctx}
}

func (a *Algorithm) skip(res *Result, m model.Model, phase Phase, seq int, err error) {
	res.Skipped = append(res.Skipped, SkippedModel{
		Binder: m.ID(), Name: m.Name(), Phase: phase, Sequence: seq, Err: err,
	})
	a.opts.metrics.RecordSkip(m.ID(), err)
	a.warn.Do(func() {
		a.opts.logger.Warn("skipping model",
			"binder", uint32(m.ID()), "name", m.Name(),
			"phase", string(phase), "sequence", seq, "error", err)
	})
}

// logSkipped names every skipped model in one line, including those whose
// individual warning was throttled.
func (a *Algorithm) logSkipped(res *Result) {
	if len(res.Skipped) == 0 {
		return
	}
	names := make([]string, len(res.Skipped))
	for i, sk := range res.Skipped {
		names[i] = fmt.Sprintf("%s(%d)/%s", sk.Name, uint32(sk.Binder), sk.Phase)
	}
	a.opts.logger.Warn("skipped models", "count", len(names), "models", names)
}

// scanCentral runs every model concurrently and inserts the hits serially
// in model order.
func (a *Algorithm) scanCentral(ctx context.Context, models []model.Model, central []byte, res *Result) error {
	found := make([][]hits.Hit, len(models))
	failed := make([]error, len(models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Threads)
	for i, m := range models {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			opt := a.scanOptions(a.cfg.Threshold)
			var st scan.Stats
			opt.Stats = &st
			t0 := time.Now()
			hs, err := scan.Collect(m, central, opt)
			if err != nil {
				failed[i] = err
				return nil
			}
			a.opts.metrics.RecordScan(m.ID(), st.Evaluations, len(hs), time.Since(t0))
			found[i] = hs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, m := range models {
		if failed[i] != nil {
			a.skip(res, m, PhaseCentral, -1, failed[i])
			continue
		}
		if err := res.Hits.InsertAll(found[i]); err != nil {
			return fmt.Errorf("insert hits of %s: %w", m.Name(), err)
		}
	}
	return nil
}

type relatedFailure struct {
	m   model.Model
	seq int
	err error
}

// adjust collects per-binder evidence from every related sequence and writes
// the adjusted probabilities of all binders back in one batch.
func (a *Algorithm) adjust(ctx context.Context, models []model.Model, related [][]byte, res *Result) error {
	byID := make(map[model.BinderID]model.Model, len(models))
	for _, m := range models {
		byID[m.ID()] = m
	}
	binders := res.Hits.Binders().ToArray()
	adjusters := make([]phylo.Adjuster, len(binders))

	var (
		mu       sync.Mutex
		failures []relatedFailure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Threads)
	for i, raw := range binders {
		m, ok := byID[model.BinderID(raw)]
		if !ok {
			continue
		}
		g.Go(func() error {
			adj, err := phylo.New(a.cfg.Phylo)
			if err != nil {
				return err
			}
			opt := a.scanOptions(a.cfg.PhyloThreshold)
			for j, seq := range related {
				if err := gctx.Err(); err != nil {
					return err
				}
				var st scan.Stats
				opt.Stats = &st
				t0 := time.Now()
				p, err := scan.PBindsAtLeastOnce(m, seq, opt)
				if err != nil {
					mu.Lock()
					failures = append(failures, relatedFailure{m: m, seq: j, err: err})
					mu.Unlock()
					continue
				}
				a.opts.metrics.RecordScan(m.ID(), st.Evaluations, st.Hits, time.Since(t0))
				if err := adj.Accept(p); err != nil {
					return fmt.Errorf("%s in related sequence %d: %w", m.Name(), j, err)
				}
			}
			adjusters[i] = adj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slices.SortFunc(failures, func(x, y relatedFailure) int {
		if x.m.ID() != y.m.ID() {
			return int(x.m.ID()) - int(y.m.ID())
		}
		return x.seq - y.seq
	})
	for _, f := range failures {
		a.skip(res, f.m, PhaseRelated, f.seq, f.err)
	}
	var (
		update []model.BinderID
		byBinder = make(map[model.BinderID]phylo.Adjuster, len(binders))
	)
	for i, raw := range binders {
		adj := adjusters[i]
		if adj == nil || adj.N() == 0 {
			continue
		}
		b := model.BinderID(raw)
		update = append(update, b)
		byBinder[b] = adj
	}
	counts, err := res.Hits.UpdateBinders(update, func(h hits.Hit) (float64, error) {
		p, err := byBinder[h.Binder].Finalize(h.P)
		if err != nil {
			return 0, fmt.Errorf("adjust %s: %w", byID[h.Binder].Name(), err)
		}
		return p, nil
	})
	if err != nil {
		return err
	}
	for k, b := range update {
		res.Adjusted += counts[k]
		a.opts.metrics.RecordAdjust(b, counts[k])
	}
	return nil
}
