// recommender plans a trip in India with two cooperating language-model
// agents: a local city expert researches, a trip maker writes the report.
//
// Usage:
//
//	recommender plan --category Beaches --budget 5000 --headcount 2 --type Couples --month June
//	recommender serve --addr :8501
//	recommender history --limit 10
//	recommender version
//
// While the agents work their narration streams to the terminal with
// colored role markers; delegated tasks pop up as notifications.
//
// Exit codes: 0 success, 1 run failure, 2 usage or validation error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/dkoosis/recommender/internal/config"
	"github.com/dkoosis/recommender/internal/llm"
	"github.com/dkoosis/recommender/internal/trip"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// deps are the process-level seams tests replace.
type deps struct {
	getenv func(string) string
	newLLM func(ctx context.Context, cfg llm.Config) (llm.Client, error)
	isTTY  func(w io.Writer) bool
	size   func(w io.Writer) (width, height int)
}

func defaultDeps() deps {
	return deps{getenv: os.Getenv, newLLM: llm.New, isTTY: isTTYWriter, size: termSize}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return runWith(ctx, defaultDeps(), args, stdin, stdout, stderr)
}

func runWith(ctx context.Context, d deps, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(d)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "recommender: %v\n", err)
	return exitCode(err)
}

// usageError marks bad flags or arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, trip.ErrInvalidParams),
		errors.Is(err, config.ErrInvalidConfig):
		return 2
	default:
		return 1
	}
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}
