package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// Run executes the complete load run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting rollcall load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("students", config.Students),
		logger.Int("attempts", config.Attempts),
		logger.Int("dimension", config.Dimension),
		logger.Float64("noise", config.Noise),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	before, err := getTotals(ctx, config)
	if err != nil {
		return stats, err
	}

	// Step 2: Generate students and logins
	r := newRand(config.Seed)
	students, err := generateStudents(ctx, config, r, stats)
	if err != nil {
		return stats, fmt.Errorf("student generation failed: %w", err)
	}
	attempts := generateAttempts(students, config, r)

	// Step 3: Enroll concurrently
	if err := enrollStudents(ctx, config, students, stats); err != nil {
		return stats, fmt.Errorf("enrollment failed: %w", err)
	}

	// Step 4: Race the logins
	results := submitAttempts(ctx, config, attempts, stats)
	tally(results, stats)

	after, err := getTotals(ctx, config)
	if err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	// Step 5: Verify deduplication
	if err := verifyResults(results, before, after, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	logger.Get().Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}

	// The service answers health checks with Prometheus exposition.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, attemptsPerSecond float64

	if stats.AttemptsSubmitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.AttemptsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		attemptsPerSecond = float64(stats.AttemptsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("studentsGenerated", stats.StudentsGenerated),
		logger.Int("studentsEnrolled", stats.StudentsEnrolled),
		logger.Int("attemptsSubmitted", stats.AttemptsSubmitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("suppressed", stats.Suppressed),
		logger.Int("unmatched", stats.Unmatched),
		logger.Int("parked", stats.Parked),
		logger.Int("failed", stats.AttemptsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("attemptsPerSecond", attemptsPerSecond))
}
