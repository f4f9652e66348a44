package bifa

import (
	"sync/atomic"
	"time"

	"bifa-core/model"
)

// MetricsCollector receives operational events from Algorithm.Run.
// Implementations must be safe for concurrent use; RecordScan is called from
// worker goroutines.
type MetricsCollector interface {
	// RecordScan is called after each successful model scan of one sequence.
	RecordScan(binder model.BinderID, evaluations, hits int, duration time.Duration)
	// RecordSkip is called for every model failure that was skipped.
	RecordSkip(binder model.BinderID, err error)
	// RecordAdjust is called once per binder written back by the
	// phylogenetic step with the number of hits it touched.
	RecordAdjust(binder model.BinderID, hits int)
	// RecordRun is called once when Run returns.
	RecordRun(duration time.Duration, hits int, err error)
}

// NoopMetricsCollector discards everything.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordScan(model.BinderID, int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSkip(model.BinderID, error)                   {}
func (NoopMetricsCollector) RecordAdjust(model.BinderID, int)                   {}
func (NoopMetricsCollector) RecordRun(time.Duration, int, error)                {}

// BasicMetricsCollector keeps in-memory counters.
type BasicMetricsCollector struct {
	Scans         atomic.Int64
	Evaluations   atomic.Int64
	ScanHits      atomic.Int64
	ScanNanos     atomic.Int64
	Skips         atomic.Int64
	AdjustedBinds atomic.Int64
	AdjustedHits  atomic.Int64
	Runs          atomic.Int64
	RunErrors     atomic.Int64
	RunNanos      atomic.Int64
	FinalHits     atomic.Int64
}

// RecordScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScan(_ model.BinderID, evaluations, hits int, d time.Duration) {
	b.Scans.Add(1)
	b.Evaluations.Add(int64(evaluations))
	b.ScanHits.Add(int64(hits))
	b.ScanNanos.Add(d.Nanoseconds())
}

// RecordSkip implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSkip(model.BinderID, error) { b.Skips.Add(1) }

// RecordAdjust implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdjust(_ model.BinderID, hits int) {
	b.AdjustedBinds.Add(1)
	b.AdjustedHits.Add(int64(hits))
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(d time.Duration, hits int, err error) {
	b.Runs.Add(1)
	b.RunNanos.Add(d.Nanoseconds())
	b.FinalHits.Add(int64(hits))
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// BasicMetricsStats is a point-in-time copy of BasicMetricsCollector.
type BasicMetricsStats struct {
	Scans, Evaluations, ScanHits int64
	Skips                        int64
	AdjustedBinds, AdjustedHits  int64
	Runs, RunErrors, FinalHits   int64
	AvgScan                      time.Duration
}

// GetStats returns a snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Scans:         b.Scans.Load(),
		Evaluations:   b.Evaluations.Load(),
		ScanHits:      b.ScanHits.Load(),
		Skips:         b.Skips.Load(),
		AdjustedBinds: b.AdjustedBinds.Load(),
		AdjustedHits:  b.AdjustedHits.Load(),
		Runs:          b.Runs.Load(),
		RunErrors:     b.RunErrors.Load(),
		FinalHits:     b.FinalHits.Load(),
	}
	if s.Scans > 0 {
		s.AvgScan = time.Duration(b.ScanNanos.Load() / s.Scans)
	}
	return s
}
