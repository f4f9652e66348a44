package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"bifa-core/bifa"

	"bifa/internal/fasta"
)

// Config controls the pipeline.
type Config struct {
	Threads int // concurrent records (>=1)
}

// Analyzer runs the analysis of one record.
type Analyzer func(ctx context.Context, rec fasta.Record) (*bifa.Result, error)

// Analysis pairs a record with its result. Index is the record's position
// in the input stream.
type Analysis struct {
	Index  int
	Record fasta.Record
	Result *bifa.Result
}

type job struct {
	index int
	rec   fasta.Record
}

// ForEachRecord analyses every record from records and calls visit in input
// order. It returns the first error from analyze or visit, or the context
// error if ctx is cancelled.
func ForEachRecord(
	ctx context.Context,
	cfg Config,
	records <-chan fasta.Record,
	analyze Analyzer,
	visit func(Analysis) error,
) error {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, cfg.Threads*2)
	results := make(chan Analysis, cfg.Threads*2)

	// Feed work
	g.Go(func() error {
		defer close(jobs)
		// Whatever is left unread must not block the producer.
		defer func() {
			go func() {
				for range records {
				}
			}()
		}()
		i := 0
		for rec := range records {
			select {
			case jobs <- job{index: i, rec: rec}:
			case <-gctx.Done():
				return gctx.Err()
			}
			i++
		}
		return nil
	})

	// Workers
	var wg sync.WaitGroup
	for range cfg.Threads {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				res, err := analyze(gctx, j.rec)
				if err != nil {
					return fmt.Errorf("%s: %w", j.rec.ID, err)
				}
				select {
				case results <- Analysis{Index: j.index, Record: j.rec, Result: res}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collector: restore input order.
	var (
		verr    error
		next    int
		pending = make(map[int]Analysis)
	)
	for a := range results {
		if verr != nil {
			continue
		}
		pending[a.Index] = a
		for {
			x, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := visit(x); err != nil {
				verr = err
				cancel()
				break
			}
		}
	}

	gerr := g.Wait()
	switch {
	case verr != nil:
		return verr
	case ctx.Err() != nil && gerr == nil:
		return ctx.Err()
	}
	return gerr
}
