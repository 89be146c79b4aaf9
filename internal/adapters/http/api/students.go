package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/rollcall/internal/domain/gallery"
	"github.com/okian/rollcall/internal/domain/model"
)

// StudentsHandler handles enrollment and roster requests.
type StudentsHandler struct {
	deps StudentDependencies
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(deps StudentDependencies) *StudentsHandler {
	return &StudentsHandler{deps: deps}
}

// enrollRequest is the body of POST /students.
type enrollRequest struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Section   string    `json:"section"`
	Grade     string    `json:"grade"`
	Encoding  []float64 `json:"encoding"`
}

func (e *enrollRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return errors.New("missing name")
	case len(e.Encoding) == 0:
		return errors.New("missing encoding")
	}
	return nil
}

// HandleStudents dispatches GET and POST /students.
func (h *StudentsHandler) HandleStudents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleEnroll(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *StudentsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_students"
	students, err := h.deps.Students(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *StudentsHandler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	const op = "api.enroll_student"
	var req enrollRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	student, err := h.deps.Enroll(r.Context(), gallery.Enrollment{
		ExternalID:  req.StudentID,
		DisplayName: req.Name,
		Section:     req.Section,
		Grade:       req.Grade,
		Vector:      req.Encoding,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, student)
	case errors.Is(err, gallery.ErrDuplicateExternalID):
		writeError(w, http.StatusConflict, "duplicate_student_id", WrapKind(op, ErrConflict, err))
	case errors.Is(err, model.ErrInvalidVector), errors.Is(err, gallery.ErrInvalidEnrollment):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}
