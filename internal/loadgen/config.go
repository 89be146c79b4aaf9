// Package loadgen drives a running rollcall server with synthetic students
// and concurrent logins, then checks that attendance was deduplicated.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Students  int           // Number of synthetic students to enroll
	Attempts  int           // Login attempts per student
	Dimension int           // Feature vector dimension, must match the server
	Noise     float64       // Max per-component jitter applied to login vectors
	Seed      uint64        // Seed for vector generation
	Location  string        // Location sent with every login
	Workers   int           // Number of concurrent workers
	Timeout   time.Duration // HTTP request timeout
	LogFile   string        // Log file for run output
	Verbose   bool          // Enable verbose logging
}

// Student is a synthetic enrollment.
type Student struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Section   string    `json:"section,omitempty"`
	Encoding  []float64 `json:"encoding"`
}

// LoginRequest is the body sent to /attendance/login.
type LoginRequest struct {
	Encoding []float64 `json:"encoding"`
	Location string    `json:"location,omitempty"`
}

// LoginResponse is the subset of the login reply the run inspects.
type LoginResponse struct {
	Status            string `json:"status"`
	StudentID         string `json:"student_id"`
	EventID           string `json:"event_id"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
	Delivered         *bool  `json:"delivered"`
}

// Totals mirrors the persisted counts reported by /stats.
type Totals struct {
	TotalStudents int64 `json:"total_students"`
	TotalLogs     int64 `json:"total_logs"`
}

// Attempt pairs a login vector with the student it was derived from.
type Attempt struct {
	StudentID string
	Request   LoginRequest
}

// Result is the observed outcome of one attempt.
type Result struct {
	Expected string
	Status   string
	Matched  string
	Parked   bool
	Err      error
}

// Stats holds run statistics.
type Stats struct {
	StudentsGenerated int
	StudentsEnrolled  int
	EnrollFailed      int
	AttemptsSubmitted int
	Accepted          int
	Suppressed        int
	Unmatched         int
	Parked            int
	AttemptsFailed    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
