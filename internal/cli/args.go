package cli

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
)

// splitArgs separates flags from positional FASTA paths so that they can be
// interleaved on the command line. "-" is stdin; everything after "--" is
// positional.
func splitArgs(fs *flag.FlagSet, argv []string) (flags, paths []string) {
	noValue := map[string]bool{}
	fs.VisitAll(func(f *flag.Flag) {
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			noValue[f.Name] = true
		}
	})
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--":
			return flags, append(paths, argv[i+1:]...)
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			paths = append(paths, arg)
		case strings.Contains(arg, "="):
			flags = append(flags, arg)
		default:
			flags = append(flags, arg)
			if !noValue[strings.TrimLeft(arg, "-")] && i+1 < len(argv) {
				i++
				flags = append(flags, argv[i])
			}
		}
	}
	return flags, paths
}

// expandGlobs replaces every path containing glob metacharacters by its
// matches. A pattern that matches nothing is an error.
func expandGlobs(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if p == "-" || !strings.ContainsAny(p, "*?[") {
			out = append(out, p)
			continue
		}
		m, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", p, err)
		}
		if len(m) == 0 {
			return nil, fmt.Errorf("no input matched %q", p)
		}
		out = append(out, m...)
	}
	return out, nil
}
