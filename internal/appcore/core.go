// Package appcore runs an analysis end to end: stream central records
// through the pipeline, render reports and archive hit sets.
package appcore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"bifa-core/bifa"

	"bifa/internal/appshell"
	"bifa/internal/archive"
	"bifa/internal/cmdutil"
	"bifa/internal/fasta"
	"bifa/internal/output"
	"bifa/internal/pipeline"
	"bifa/internal/writers"
)

// Options configures Run.
type Options struct {
	SeqFiles []string
	Related  [][]byte
	Config   bifa.Config
	Threads  int

	Output string
	Sort   string
	Header bool

	Archive     string
	Compression archive.Compression

	NoMatchExitCode int
}

// Models is what a run needs from the model registry.
type Models interface {
	bifa.Models
	output.Namer
}

// recordsInFlight is how many central records are analysed at once; each
// analysis already fans out across models.
func recordsInFlight(threads int) int {
	return max(1, (threads+7)/8)
}

// Run analyses every record of o.SeqFiles and returns the exit code.
func Run(
	parent context.Context,
	stdout, stderr io.Writer,
	logger *slog.Logger,
	o Options,
	models Models,
	metrics bifa.MetricsCollector,
) int {
	outw := bufio.NewWriter(stdout)

	thr := o.Threads
	if thr <= 0 {
		thr = runtime.NumCPU()
	}
	cfg := o.Config
	cfg.Threads = thr

	var (
		aw    *archive.Writer
		afile *os.File
		abuf  *bufio.Writer
	)
	if o.Archive != "" {
		f, err := os.Create(o.Archive)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return appshell.ExitRuntime
		}
		afile = f
		abuf = bufio.NewWriter(f)
		aw = archive.NewWriter(abuf, o.Compression)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	inCh, writeErr := writers.Start(outw, o.Output,
		writers.Settings{Sort: o.Sort, Header: o.Header, Names: models}, thr*4)

	records, readErr := fasta.StreamFiles(ctx, o.SeqFiles)

	analyze := func(ctx context.Context, rec fasta.Record) (*bifa.Result, error) {
		alg, err := bifa.New(models, cfg,
			bifa.WithLogger(logger.With("sequence", rec.ID)),
			bifa.WithMetrics(metrics))
		if err != nil {
			return nil, err
		}
		return alg.Run(ctx, rec.Seq, o.Related)
	}

	tot, perr := cmdutil.RunStream(ctx,
		pipeline.Config{Threads: recordsInFlight(thr)},
		records, analyze,
		func(rep output.Report) error {
			if aw != nil {
				if err := aw.Write(rep.SequenceID, rep.Hits, models); err != nil {
					return fmt.Errorf("archive: %w", err)
				}
			}
			logger.Debug("sequence analysed", "sequence", rep.SequenceID,
				"length", len(rep.Seq), "hits", rep.Hits.Len(),
				"adjusted", rep.Adjusted, "skipped", rep.Skipped)
			select {
			case inCh <- rep:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	)
	close(inCh)
	if perr != nil {
		cancel()
	}
	rerr := <-readErr

	if aw != nil {
		err := abuf.Flush()
		if cerr := afile.Close(); err == nil {
			err = cerr
		}
		if err != nil && perr == nil {
			perr = fmt.Errorf("archive: %w", err)
		}
	}

	if werr := <-writeErr; writers.IsBrokenPipe(werr) {
		return appshell.ExitOK
	} else if werr != nil {
		fmt.Fprintln(stderr, werr)
		return appshell.ExitRuntime
	}
	if e := outw.Flush(); writers.IsBrokenPipe(e) {
		return appshell.ExitOK
	} else if e != nil {
		fmt.Fprintln(stderr, e)
		return appshell.ExitRuntime
	}

	if perr == nil && rerr != nil && !errors.Is(rerr, context.Canceled) {
		perr = rerr
	}
	if perr != nil {
		if errors.Is(perr, context.Canceled) {
			return appshell.ExitCancelled
		}
		fmt.Fprintln(stderr, perr)
		return appshell.ExitRuntime
	}

	if tot.Skipped > 0 {
		logger.Warn("models skipped", "count", tot.Skipped)
	}
	logger.Info("run complete", "records", tot.Records, "hits", tot.Hits,
		"adjusted", tot.Adjusted, "skipped", tot.Skipped)
	if tot.Hits == 0 {
		return o.NoMatchExitCode
	}
	return appshell.ExitOK
}

// RunArchive renders the hit sets stored in path.
func RunArchive(
	parent context.Context,
	stdout, stderr io.Writer,
	logger *slog.Logger,
	path string,
	o Options,
) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return appshell.ExitRuntime
	}
	defer f.Close()
	entries, err := archive.ReadAll(bufio.NewReader(f))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", path, err)
		return appshell.ExitRuntime
	}

	names := archiveNames{}
	for _, e := range entries {
		for id, n := range e.Names {
			names[id] = n
		}
	}

	outw := bufio.NewWriter(stdout)
	inCh, writeErr := writers.Start(outw, o.Output,
		writers.Settings{Sort: o.Sort, Header: o.Header, Names: names}, len(entries))
	total := 0
	cancelled := false
	for _, e := range entries {
		if parent.Err() != nil {
			cancelled = true
			break
		}
		inCh <- output.Report{SequenceID: e.SequenceID, Hits: e.Hits}
		total += e.Hits.Len()
	}
	close(inCh)

	if werr := <-writeErr; writers.IsBrokenPipe(werr) {
		return appshell.ExitOK
	} else if werr != nil {
		fmt.Fprintln(stderr, werr)
		return appshell.ExitRuntime
	}
	if e := outw.Flush(); writers.IsBrokenPipe(e) {
		return appshell.ExitOK
	} else if e != nil {
		fmt.Fprintln(stderr, e)
		return appshell.ExitRuntime
	}
	if cancelled {
		return appshell.ExitCancelled
	}
	logger.Info("archive rendered", "entries", len(entries), "hits", total)
	if total == 0 {
		return o.NoMatchExitCode
	}
	return appshell.ExitOK
}
