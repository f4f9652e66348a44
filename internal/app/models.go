package app

import (
	"fmt"
	"runtime"

	"bifa-core/likelihood"
	"bifa-core/model"
	"bifa-core/universe"

	"bifa/internal/cli"
	"bifa/internal/fasta"
	"bifa/internal/matrix"
)

// loadModels registers every matrix and consensus pattern named on the
// command line. Bayesian models share one memoising likelihood cache.
func loadModels(opts cli.Options) (*universe.Universe, error) {
	u := universe.New()

	kind := model.KindBayesian
	if opts.Model == cli.ModelMatch {
		kind = model.KindMatch
	}
	builds := opts.Threads
	if builds <= 0 {
		builds = runtime.NumCPU()
	}
	cache := likelihood.NewCache(likelihood.PSSMBuilder(u.PSSM, opts.Bins),
		likelihood.WithMaxConcurrentBuilds(builds))

	for _, path := range opts.MatrixFiles {
		ms, err := matrix.LoadJASPAR(path)
		if err != nil {
			return nil, err
		}
		ps, err := matrix.PSSMs(ms, model.WithPseudocount(opts.Pseudocount))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, err := u.FillFromPSSMs(ps, kind, cache, opts.Prior); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	for _, s := range opts.Consensus {
		c, err := matrix.ParseConsensus(s)
		if err != nil {
			return nil, err
		}
		if _, err := u.Register(func(id model.BinderID) (model.Model, error) {
			return model.NewConsensus(id, c.Name, c.Pattern, 1)
		}); err != nil {
			return nil, err
		}
	}

	if u.Len() == 0 {
		return nil, fmt.Errorf("no binding models loaded")
	}
	return u, nil
}

// loadRelated reads every orthologous sequence into memory; they are
// rescanned once per binder.
func loadRelated(paths []string) ([][]byte, error) {
	var out [][]byte
	for _, p := range paths {
		recs, err := fasta.ReadFile(p)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			out = append(out, r.Seq)
		}
	}
	return out, nil
}
