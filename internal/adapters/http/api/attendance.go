package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/rollcall/internal/domain/attendance"
	"github.com/okian/rollcall/internal/domain/model"
)

// AttendanceHandler handles attendance attempts and the attendance log.
type AttendanceHandler struct {
	deps     AttendanceDependencies
	maxLimit int
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps AttendanceDependencies, maxLimit int) *AttendanceHandler {
	if maxLimit <= 0 {
		maxLimit = defaultAttendanceLimit
	}
	return &AttendanceHandler{deps: deps, maxLimit: maxLimit}
}

// loginRequest is the body of POST /attendance/login.
type loginRequest struct {
	Encoding []float64 `json:"encoding"`
	Location string    `json:"location"`
}

type loginResponse struct {
	Success           bool       `json:"success"`
	Status            string     `json:"status"`
	InternalID        int64      `json:"internal_id,omitempty"`
	StudentID         string     `json:"student_id,omitempty"`
	Name              string     `json:"name,omitempty"`
	Section           string     `json:"section,omitempty"`
	Distance          *float64   `json:"distance,omitempty"`
	EventID           string     `json:"event_id,omitempty"`
	Location          string     `json:"location,omitempty"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
	Delivered         *bool      `json:"delivered,omitempty"`
	DeliveryError     string     `json:"delivery_error,omitempty"`
}

func newLoginResponse(d *attendance.Decision) loginResponse {
	resp := loginResponse{Status: d.Outcome.String()}
	if d.Outcome == attendance.Unmatched {
		return resp
	}
	dist := d.Distance
	resp.InternalID = d.InternalID
	resp.StudentID = d.ExternalID
	resp.Name = d.DisplayName
	resp.Section = d.Section
	resp.Distance = &dist
	if d.Outcome == attendance.Suppressed {
		resp.RetryAfterSeconds = int((d.Remaining + time.Second - 1) / time.Second)
		return resp
	}
	resp.Success = true
	if d.Event != nil {
		ts := d.Event.Timestamp
		resp.EventID = d.Event.ID
		resp.Location = d.Event.Location
		resp.Timestamp = &ts
	}
	delivered := true
	resp.Delivered = &delivered
	return resp
}

// HandleLogin handles POST /attendance/login requests.
func (h *AttendanceHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.attendance_login"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req loginRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	if len(req.Encoding) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing encoding")))
		return
	}

	d, err := h.deps.Attempt(r.Context(), req.Encoding, req.Location)
	var derr *attendance.DeliveryError
	switch {
	case err == nil:
		resp := newLoginResponse(&d)
		if d.Outcome == attendance.Suppressed {
			w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
		}
		writeJSON(w, http.StatusOK, resp)
	case errors.As(err, &derr):
		resp := newLoginResponse(&d)
		delivered := false
		resp.Delivered = &delivered
		resp.DeliveryError = derr.Error()
		writeJSON(w, http.StatusAccepted, resp)
	case errors.Is(err, model.ErrInvalidVector):
		writeError(w, http.StatusBadRequest, "invalid_encoding", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}

// HandleGetAttendance handles GET /attendance?limit=N requests.
func (h *AttendanceHandler) HandleGetAttendance(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_attendance"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := min(defaultAttendanceLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Attendance(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRedeliver handles POST /attendance/redeliver requests.
func (h *AttendanceHandler) HandleRedeliver(w http.ResponseWriter, r *http.Request) {
	const op = "api.redeliver"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	report, err := h.deps.Redeliver(r.Context())
	if err != nil {
		if errors.Is(err, attendance.ErrDeliveryFailure) {
			writeJSON(w, http.StatusServiceUnavailable, struct {
				attendance.RedeliveryReport
				Error string `json:"error"`
			}{report, err.Error()})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
