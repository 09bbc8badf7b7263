package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

// configError marks failures that happen before anything was started.
type configError struct{ err error }

func (e configError) Error() string { return fmt.Sprintf("config error: %v", e.err) }

func (e configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var cfgErr configError
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	return exitRuntime
}
