// Package lifecycle turns SIGINT/SIGTERM into context cancellation and maps
// errors returned from the main run path to process exit codes, the same
// shutdown shape the wider example corpus uses (signal.Notify feeding a
// channel that cancels a context), generalized to pclipsync's three-exit-code
// contract (0/1/2) instead of an ad hoc os.Exit call.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes per the process contract: 0 for clean shutdown (signal or
// peer-initiated EOF), 1 for an operational failure, 2 for a usage error
// (bad flags, unreadable config).
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ErrUsage marks an error as a usage error (exit code 2) rather than an
// operational failure (exit code 1). Wrap flag- and config-parsing errors
// with it; Code only recognizes the wrapped sentinel, not the message text.
var ErrUsage = errors.New("usage error")

// WrapUsage wraps a non-nil error with ErrUsage, for Cobra argument/flag
// validation errors (wrong argument count, unknown flag) that are usage
// errors in the §4.F sense even though Cobra itself doesn't distinguish
// them from a RunE failure. A nil err returns nil.
func WrapUsage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}

// WithSignals returns a context that is cancelled when the process receives
// SIGINT or SIGTERM, and a stop function the caller must defer to release
// the underlying signal.Notify registration.
func WithSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// Code maps an error returned from a run path to a process exit code. A nil
// error is ExitOK; an error wrapping ErrUsage is ExitUsage; anything else is
// ExitFailure.
func Code(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitFailure
	}
}
