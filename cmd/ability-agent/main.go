package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// Exit codes.
const (
	exitSuccess = 0
	exitError   = 1
	exitUsage   = 2
)

// usageError marks a command-line or configuration mistake so the process
// exits with exitUsage instead of exitError.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an Execute error to the process exit code: nil exits 0,
// usage and configuration mistakes exit 2, everything else exits 1.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var usage *usageError
	if errors.As(err, &usage) {
		return exitUsage
	}
	for _, code := range []types.ErrorCode{
		types.CONFIG_NOT_FOUND,
		types.CONFIG_LOAD_FAILED,
		types.CONFIG_PARSE_FAILED,
		types.CONFIG_VALIDATION_FAILED,
	} {
		if types.HasCode(err, code) {
			return exitUsage
		}
	}
	return exitError
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			if verbose {
				fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			} else {
				fmt.Fprintln(os.Stderr, "Run with --verbose for stack trace")
			}
			os.Exit(exitError)
		}
	}()

	if err := Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}
