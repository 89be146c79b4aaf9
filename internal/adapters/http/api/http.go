// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/rollcall/internal/domain/attendance"
	"github.com/okian/rollcall/internal/domain/gallery"
	"github.com/okian/rollcall/internal/domain/types"
)

const defaultAttendanceLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StudentDependencies
	AttendanceDependencies
	StatsProvider
}

// StudentDependencies covers enrollment and the student roster.
type StudentDependencies interface {
	Enroll(ctx context.Context, e gallery.Enrollment) (types.Student, error)
	Students(ctx context.Context) ([]types.Student, error)
}

// AttendanceDependencies covers attendance attempts and the attendance log.
type AttendanceDependencies interface {
	Attempt(ctx context.Context, vector []float64, location string) (attendance.Decision, error)
	Attendance(ctx context.Context, limit int) ([]types.AttendanceEntry, error)
	Redeliver(ctx context.Context) (attendance.RedeliveryReport, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	studentsHandler   *StudentsHandler
	attendanceHandler *AttendanceHandler
	maxBodyBytes      int64
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxAttendanceLimit int, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		studentsHandler:   NewStudentsHandler(deps),
		attendanceHandler: NewAttendanceHandler(deps, maxAttendanceLimit),
		maxBodyBytes:      defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/students", MetricsMiddleware(LimitBody(s.studentsHandler.HandleStudents, s.maxBodyBytes), "students"))
	mux.HandleFunc("/attendance", MetricsMiddleware(s.attendanceHandler.HandleGetAttendance, "attendance"))
	mux.HandleFunc("/attendance/login", MetricsMiddleware(LimitBody(s.attendanceHandler.HandleLogin, s.maxBodyBytes), "attendance_login"))
	mux.HandleFunc("/attendance/redeliver", MetricsMiddleware(s.attendanceHandler.HandleRedeliver, "attendance_redeliver"))
}

// LimitBody caps the request body at n bytes.
func LimitBody(next http.HandlerFunc, n int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		next.ServeHTTP(w, r)
	}
}

// decodeBody decodes a JSON request body and writes the error response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
			WrapKind(op, ErrBadRequest, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)))
		return false
	}
	writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	return false
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
