// Package types contains common types used across the application
package types

import "time"

// Student is the read shape of an enrolled identity (no feature vector).
type Student struct {
	InternalID int64  `json:"internal_id"`
	StudentID  string `json:"student_id,omitempty"`
	Name       string `json:"name"`
	Section    string `json:"section,omitempty"`
	Grade      string `json:"grade,omitempty"`
}

// AttendanceEntry is one row of the attendance log joined with its student.
type AttendanceEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StudentID string    `json:"student_id,omitempty"`
	Section   string    `json:"section,omitempty"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// Totals reports persisted counts.
type Totals struct {
	TotalStudents int64 `json:"total_students"`
	TotalLogs     int64 `json:"total_logs"`
}
