package loadgen

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/rollcall/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the global logger on stdout and, when logFile is
// set, on that file too. The returned func closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	var out io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closeFn = file.Close
	}

	if err := logger.Init(logger.WithWriter(out)); err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Rollcall Load Tool
==================

Enrolls synthetic students against a running rollcall server, races
several jittered logins per student, and verifies that each student was
accepted exactly once and that the attendance log grew accordingly.

The server's cooldown window must outlast the run and its vector
dimension must match -dim.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -students int
        Number of synthetic students to enroll (default 200)
  -attempts int
        Login attempts per student (default 5)
  -dim int
        Feature vector dimension (default 128)
  -noise float
        Max per-component jitter on login vectors (default 0.01)
  -seed uint
        Seed for vector generation (default 1)
  -location string
        Location sent with every login (default "Main")
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Also write log output to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -students 1000 -attempts 10
  go run ./cmd/loadgen -url http://localhost:8080 -dim 64 -log run.log
`)
}
