// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"
	"slices"

	"bifa/internal/archive"
	"bifa/internal/obs"
	"bifa/internal/output"
	"bifa/internal/version"

	"bifa-core/phylo"
)

// Model families selectable with --model.
const (
	ModelBayes = "bayes"
	ModelMatch = "match"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Models
	MatrixFiles []string
	Consensus   []string
	Model       string
	Pseudocount float64
	Bins        int

	// Sequences
	SeqFiles     []string
	RelatedFiles []string

	// Analysis
	Threshold      float64
	PhyloThreshold float64
	Cutoff         float64
	Strategy       string
	Prior          float64
	MinLBFFraction float64
	NoComplement   bool

	// Performance
	Threads int

	// Output
	Output          string
	Sort            string
	Header          bool // true unless --no-header
	Archive         string
	Compression     string
	FromArchive     string
	MetricsTextfile string
	NoMatchExitCode int

	// Logging
	LogFormat string
	LogLevel  string
	Quiet     bool

	Version bool
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: transcription-factor binding site prediction

Scores every window of each central sequence with every binding model,
then adjusts each binder's probabilities by its conservation across
related (orthologous) sequences.

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	// Models
	var matrices, consensus, seqs, related stringSlice
	fs.Var(&matrices, "matrices", "JASPAR count-matrix file(s) (repeatable) [*]")
	fs.Var(&consensus, "consensus", "IUPAC consensus model as name=PATTERN (repeatable) [*]")
	fs.StringVar(&opt.Model, "model", ModelBayes, "matrix model: bayes | match ["+ModelBayes+"]")
	fs.Float64Var(&opt.Pseudocount, "pseudocount", 1, "pseudocount added to matrix columns, scaled by background [1]")
	fs.IntVar(&opt.Bins, "bins", 1000, "likelihood table resolution (bayes model) [1000]")

	// Sequences
	fs.Var(&seqs, "sequences", "FASTA file(s) of central sequences; positional arguments and globs also count (repeatable or '-') [*]")
	fs.Var(&related, "related", "FASTA file(s) of orthologous sequences (repeatable)")

	// Analysis
	fs.Float64Var(&opt.Threshold, "threshold", 0.05, "report hits with p_binding above this [0.05]")
	fs.Float64Var(&opt.PhyloThreshold, "phylo-threshold", 0.01, "hit threshold inside related sequences [0.01]")
	fs.Float64Var(&opt.Cutoff, "cutoff", -1, "drop hits at or below this after adjustment (-1 = off) [-1]")
	fs.StringVar(&opt.Strategy, "strategy", "geometric", "phylogenetic adjustment: geometric | bayes [geometric]")
	fs.Float64Var(&opt.Prior, "prior", 0.01, "prior probability of binding [0.01]")
	fs.Float64Var(&opt.MinLBFFraction, "min-lbf-fraction", 0.5, "floor for related log-Bayes-factors, as a fraction of the central one (bayes strategy) [0.5]")
	fs.BoolVar(&opt.NoComplement, "no-complement", false, "scan the forward strand only [false]")

	// Performance
	fs.IntVar(&opt.Threads, "threads", 0, "number of worker threads (0 = all CPUs) [0]")

	// Output
	fs.StringVar(&opt.Output, "output", output.FormatText, "output format: text | json | jsonl [text]")
	fs.StringVar(&opt.Sort, "sort", output.SortPosition, "hit order: position | binder | probability [position]")
	noHeader := false
	fs.BoolVar(&noHeader, "no-header", false, "suppress header line in text/TSV [false]")
	fs.StringVar(&opt.Archive, "archive", "", "also write hit sets to this binary archive")
	fs.StringVar(&opt.Compression, "compression", "zstd", "archive compression: none | lz4 | zstd [zstd]")
	fs.StringVar(&opt.FromArchive, "from-archive", "", "render hit sets from an archive instead of scanning")
	fs.StringVar(&opt.MetricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")
	fs.IntVar(&opt.NoMatchExitCode, "no-match-exit-code", 1, "exit code when no hits are reported [1]")

	// Logging
	fs.StringVar(&opt.LogFormat, "log-format", "text", "log format: text | json [text]")
	fs.StringVar(&opt.LogLevel, "log-level", "info", "log level: debug | info | warn | error [info]")
	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress warnings and the run summary [false]")

	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	flagArgs, positional := splitArgs(fs, argv)
	if err := fs.Parse(flagArgs); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	opt.Consensus = consensus
	var err error
	if opt.MatrixFiles, err = expandGlobs(matrices); err != nil {
		return opt, err
	}
	if opt.SeqFiles, err = expandGlobs(append(seqs, positional...)); err != nil {
		return opt, err
	}
	if opt.RelatedFiles, err = expandGlobs(related); err != nil {
		return opt, err
	}
	opt.Header = !noHeader

	return opt, opt.validate()
}

func unit(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("--%s must be in [0,1], got %v", name, v)
	}
	return nil
}

func (opt Options) validate() error {
	if opt.FromArchive != "" {
		if len(opt.SeqFiles) > 0 || len(opt.MatrixFiles) > 0 || len(opt.Consensus) > 0 {
			return errors.New("--from-archive conflicts with --sequences/--matrices/--consensus")
		}
		if opt.Archive != "" {
			return errors.New("--from-archive conflicts with --archive")
		}
	} else {
		if len(opt.SeqFiles) == 0 {
			return errors.New("at least one --sequences file is required")
		}
		if len(opt.MatrixFiles) == 0 && len(opt.Consensus) == 0 {
			return errors.New("provide --matrices and/or --consensus")
		}
	}

	if opt.Model != ModelBayes && opt.Model != ModelMatch {
		return fmt.Errorf("invalid --model %q", opt.Model)
	}
	if !(opt.Pseudocount >= 0) {
		return errors.New("--pseudocount must be ≥ 0")
	}
	if opt.Bins < 2 {
		return errors.New("--bins must be ≥ 2")
	}
	if err := unit("threshold", opt.Threshold); err != nil {
		return err
	}
	if err := unit("phylo-threshold", opt.PhyloThreshold); err != nil {
		return err
	}
	if opt.Cutoff >= 0 {
		if err := unit("cutoff", opt.Cutoff); err != nil {
			return err
		}
	}
	if _, err := phylo.ParseStrategy(opt.Strategy); err != nil {
		return fmt.Errorf("invalid --strategy: %w", err)
	}
	if !(opt.Prior > 0 && opt.Prior < 1) {
		return fmt.Errorf("--prior must be in (0,1), got %v", opt.Prior)
	}
	if !(opt.MinLBFFraction >= 0) {
		return errors.New("--min-lbf-fraction must be ≥ 0")
	}
	if opt.Threads < 0 {
		return errors.New("--threads must be ≥ 0")
	}
	if !slices.Contains([]string{output.FormatText, output.FormatJSON, output.FormatJSONL}, opt.Output) {
		return fmt.Errorf("invalid --output %q", opt.Output)
	}
	if !slices.Contains([]string{output.SortPosition, output.SortBinder, output.SortProbability}, opt.Sort) {
		return fmt.Errorf("invalid --sort %q", opt.Sort)
	}
	if _, err := archive.ParseCompression(opt.Compression); err != nil {
		return fmt.Errorf("invalid --compression: %w", err)
	}
	if _, err := obs.ParseLevel(opt.LogLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	if opt.LogFormat != "text" && opt.LogFormat != "json" {
		return fmt.Errorf("invalid --log-format %q", opt.LogFormat)
	}
	if opt.NoMatchExitCode < 0 || opt.NoMatchExitCode > 125 {
		return errors.New("--no-match-exit-code must be in [0,125]")
	}
	return nil
}
