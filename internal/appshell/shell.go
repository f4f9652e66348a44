// Package appshell runs a command under signal-aware context and maps the
// outcome to a process exit code.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes shared by every command.
const (
	ExitOK        = 0
	ExitUsage     = 2
	ExitRuntime   = 3
	ExitCancelled = 130
)

// Main runs run with os.Args and exits with its code. SIGINT and SIGTERM
// cancel the context; a run that still reports success after cancellation
// exits with ExitCancelled.
func Main(run func(context.Context, []string, io.Writer, io.Writer) int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	argv := os.Args[1:]
	if len(argv) == 0 {
		argv = []string{"-h"}
	}

	code := run(ctx, argv, os.Stdout, os.Stderr)
	if ctx.Err() != nil && code == ExitOK {
		code = ExitCancelled
	}

	stop()
	os.Exit(code)
}
