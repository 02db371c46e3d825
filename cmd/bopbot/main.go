// Command bopbot drives a fingerprinted Chrome from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomyan/bopbot/internal/actions"
	"github.com/tomyan/bopbot/internal/chrome/launcher"
	"github.com/tomyan/bopbot/internal/session"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitError        = 1
	ExitLaunchFailed = 2
	ExitTimeout      = 3
	ExitNotFound     = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(newApp(stdout, stderr))
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

func exitCode(err error) int {
	var (
		launchErr   *launcher.LaunchError
		navErr      *session.NavigationError
		notFoundErr *actions.ElementNotFoundError
	)
	switch {
	case errors.As(err, &launchErr):
		return ExitLaunchFailed
	case errors.As(err, &navErr) && navErr.Timeout:
		return ExitTimeout
	case errors.As(err, &notFoundErr):
		return ExitNotFound
	default:
		return ExitError
	}
}
