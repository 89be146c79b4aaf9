package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/rollcall/internal/loadgen"
)

// Default configuration constants.
const (
	defaultStudents  = 200
	defaultAttempts  = 5
	defaultDimension = 128
	defaultNoise     = 0.01
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		students  = flag.Int("students", defaultStudents, "Number of synthetic students to enroll")
		attempts  = flag.Int("attempts", defaultAttempts, "Login attempts per student")
		dimension = flag.Int("dim", defaultDimension, "Feature vector dimension")
		noise     = flag.Float64("noise", defaultNoise, "Max per-component jitter on login vectors")
		seed      = flag.Uint64("seed", 1, "Seed for vector generation")
		location  = flag.String("location", "Main", "Location sent with every login")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Also write log output to this file")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	closeLog, err := loadgen.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)

	config := &loadgen.Config{
		BaseURL:   *baseURL,
		Students:  *students,
		Attempts:  *attempts,
		Dimension: *dimension,
		Noise:     *noise,
		Seed:      *seed,
		Location:  *location,
		Workers:   *workers,
		Timeout:   *timeout,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	_, err = loadgen.Run(ctx, config)
	cancel()
	_ = closeLog()
	if err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
