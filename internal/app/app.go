// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"bifa-core/bifa"
	"bifa-core/phylo"

	"bifa/internal/appcore"
	"bifa/internal/appshell"
	"bifa/internal/archive"
	"bifa/internal/cli"
	"bifa/internal/obs"
	"bifa/internal/version"
	"bifa/internal/writers"
)

// flushed flushes outw and maps the outcome to an exit code.
func flushed(outw *bufio.Writer, stderr io.Writer, code int) int {
	if err := outw.Flush(); writers.IsBrokenPipe(err) {
		return appshell.ExitOK
	} else if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return appshell.ExitRuntime
	}
	return code
}

// RunContext is the bifa command.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)

	fs := cli.NewFlagSet("bifa")
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		argv = []string{"-h"}
	}
	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		fs.SetOutput(outw)
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
			return flushed(outw, stderr, appshell.ExitOK)
		}
		_, _ = fmt.Fprintln(stderr, err)
		fs.Usage()
		return flushed(outw, stderr, appshell.ExitUsage)
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "bifa version %s\n", version.Version)
		return flushed(outw, stderr, appshell.ExitOK)
	}

	logger, err := newLogger(opts, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return appshell.ExitUsage
	}
	logger = logger.With("run", uuid.NewString())
	comp, _ := archive.ParseCompression(opts.Compression)
	strategy, _ := phylo.ParseStrategy(opts.Strategy)

	coreOpts := appcore.Options{
		SeqFiles: opts.SeqFiles,
		Config: bifa.Config{
			Threshold:      opts.Threshold,
			PhyloThreshold: opts.PhyloThreshold,
			Cutoff:         opts.Cutoff,
			Complement:     !opts.NoComplement,
			Phylo: phylo.Config{
				Strategy:         strategy,
				Prior:            opts.Prior,
				MinLogBFFraction: opts.MinLBFFraction,
			},
		},
		Threads:         opts.Threads,
		Output:          opts.Output,
		Sort:            opts.Sort,
		Header:          opts.Header,
		Archive:         opts.Archive,
		Compression:     comp,
		NoMatchExitCode: opts.NoMatchExitCode,
	}

	if opts.FromArchive != "" {
		return appcore.RunArchive(parent, stdout, stderr, logger, opts.FromArchive, coreOpts)
	}

	u, err := loadModels(opts)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return appshell.ExitUsage
	}
	logger.Debug("models loaded", "count", u.Len(), "model", opts.Model)

	coreOpts.Related, err = loadRelated(opts.RelatedFiles)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return appshell.ExitUsage
	}

	var (
		metrics bifa.MetricsCollector = &bifa.BasicMetricsCollector{}
		prom    *obs.PromCollector
	)
	if opts.MetricsTextfile != "" {
		prom = obs.NewPromCollector()
		metrics = prom
	}

	code := appcore.Run(parent, stdout, stderr, logger, coreOpts, u, metrics)

	if b, ok := metrics.(*bifa.BasicMetricsCollector); ok {
		st := b.GetStats()
		logger.Debug("scan statistics", "scans", st.Scans, "evaluations", st.Evaluations,
			"avg_scan", st.AvgScan, "skips", st.Skips)
	}
	if prom != nil {
		if err := prom.WriteTextfile(opts.MetricsTextfile); err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			if code == appshell.ExitOK {
				code = appshell.ExitRuntime
			}
		}
	}
	return code
}

func newLogger(opts cli.Options, w io.Writer) (*slog.Logger, error) {
	level, err := obs.ParseLevel(opts.LogLevel)
	if err != nil {
		return nil, err
	}
	if opts.Quiet {
		level = slog.LevelError
	}
	return obs.NewLogger(opts.LogFormat, level, w)
}

// Run is RunContext without cancellation.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
