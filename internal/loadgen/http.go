package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// forEach runs fn over n indices with the configured number of workers.
func forEach(ctx context.Context, workers, n int, fn func(i int)) {
	if workers <= 0 {
		workers = 1
	}
	indices := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if ctx.Err() != nil {
					continue
				}
				fn(i)
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()

	wg.Wait()
}

// enrollStudents posts every student concurrently.
func enrollStudents(ctx context.Context, config *Config, students []Student, stats *Stats) error {
	logger.Get().Info(ctx, "enrolling students",
		logger.Int("students", len(students)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/students"

	var enrolled, failed int64
	forEach(ctx, config.Workers, len(students), func(i int) {
		if err := enrollSingleStudent(ctx, client, url, students[i]); err != nil {
			atomic.AddInt64(&failed, 1)
			if config.Verbose {
				logger.Get().Warn(ctx, "enrollment failed",
					logger.String("studentID", students[i].StudentID),
					logger.Error(err))
			}
			return
		}
		atomic.AddInt64(&enrolled, 1)
	})

	stats.StudentsEnrolled = int(enrolled)
	stats.EnrollFailed = int(failed)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enrollment interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d enrollments failed", failed, len(students))
	}
	return nil
}

func enrollSingleStudent(ctx context.Context, client *HTTPClient, url string, s Student) error {
	resp, err := client.Post(ctx, url, s)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// submitAttempts posts every login concurrently and records each outcome.
func submitAttempts(ctx context.Context, config *Config, attempts []Attempt, stats *Stats) []Result {
	logger.Get().Info(ctx, "submitting logins",
		logger.Int("attempts", len(attempts)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/attendance/login"

	results := make([]Result, len(attempts))
	var submitted int64
	forEach(ctx, config.Workers, len(attempts), func(i int) {
		results[i] = submitSingleAttempt(ctx, client, url, attempts[i])
		atomic.AddInt64(&submitted, 1)
		if config.Verbose && results[i].Err != nil {
			logger.Get().Warn(ctx, "login failed",
				logger.String("studentID", attempts[i].StudentID),
				logger.Error(results[i].Err))
		}
	})

	stats.AttemptsSubmitted = int(submitted)
	return results
}

func submitSingleAttempt(ctx context.Context, client *HTTPClient, url string, a Attempt) Result {
	res := Result{Expected: a.StudentID}

	resp, err := client.Post(ctx, url, a.Request)
	if err != nil {
		res.Err = err
		return res
	}
	body, err := readResponseBody(resp)
	if err != nil {
		res.Err = err
		return res
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		var lr LoginResponse
		if err := json.Unmarshal(body, &lr); err != nil {
			res.Err = fmt.Errorf("failed to decode login response: %w", err)
			return res
		}
		res.Status = lr.Status
		res.Matched = lr.StudentID
		res.Parked = lr.Delivered != nil && !*lr.Delivered
	default:
		res.Err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return res
}

// getTotals reads the persisted counts from /stats.
func getTotals(ctx context.Context, config *Config) (Totals, error) {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return Totals{}, fmt.Errorf("failed to fetch stats: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return Totals{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Totals{}, fmt.Errorf("stats returned status %d", resp.StatusCode)
	}

	var totals Totals
	if err := json.Unmarshal(body, &totals); err != nil {
		return Totals{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	return totals, nil
}
