// Package api serves the dashboard HTTP API. Errors are RFC 7807 problem details
// with a detail message localized from Accept-Language.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/eventdesk/dashboard/pkg/auth"
	"github.com/eventdesk/dashboard/pkg/content"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/validate"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// TraceID echoes X-Request-ID.
	TraceID string `json:"trace_id,omitempty"`

	// Errors lists rejected fields of a validation failure.
	Errors []FieldProblem `json:"errors,omitempty"`

	// Partial reorder failure members.
	FailedItem string   `json:"failed_item,omitempty"`
	MovedItem  string   `json:"moved_item,omitempty"`
	Applied    []string `json:"applied,omitempty"`
	RolledBack *bool    `json:"rolled_back,omitempty"`
}

// FieldProblem is one rejected input field.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

var errInvalidBody = errors.New("api: invalid request body")

// errorWriter renders errors in the caller's language.
type errorWriter struct {
	catalog *i18n.Catalog
	logger  *slog.Logger
}

func (e *errorWriter) write(w http.ResponseWriter, r *http.Request, p *ProblemDetail) {
	p.Type = fmt.Sprintf("https://eventdesk.app/errors/%d", p.Status)
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	p.Instance = r.URL.Path
	p.TraceID = w.Header().Get("X-Request-ID")

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func (e *errorWriter) message(r *http.Request, key i18n.Key, args ...any) string {
	return e.catalog.T(e.catalog.Match(r.Header.Get("Accept-Language")), key, args...)
}

// Error maps err to a status and writes the problem response. Unexpected errors are
// logged and answered with a generic message.
func (e *errorWriter) Error(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve       *validate.Error
		shift    *ordering.ShiftError
		tooLarge *http.MaxBytesError
	)
	p := &ProblemDetail{}
	switch {
	case errors.As(err, &ve):
		p.Status = http.StatusBadRequest
		for _, f := range ve.Fields {
			p.Errors = append(p.Errors, FieldProblem{Field: f.Field, Message: e.message(r, f.Key, f.Args...)})
		}
		p.Detail = e.message(r, i18n.ValidationSummary)
		if len(p.Errors) == 1 {
			p.Detail = p.Errors[0].Message
		}
	case errors.As(err, &shift):
		rolledBack := shift.RolledBack
		p.Status = http.StatusConflict
		p.Detail = e.message(r, i18n.ReorderFailed, shift.FailedID)
		p.FailedItem = shift.FailedID
		p.MovedItem = shift.MovedID
		p.Applied = shift.Applied
		p.RolledBack = &rolledBack
		e.logger.ErrorContext(r.Context(), "reorder failed", "moved", shift.MovedID, "failed", shift.FailedID,
			"applied", len(shift.Applied), "rolled_back", shift.RolledBack, "error", shift.Err)
	case errors.Is(err, media.ErrTooLarge), errors.As(err, &tooLarge):
		p.Status = http.StatusRequestEntityTooLarge
		p.Detail = e.message(r, i18n.ImageTooLarge)
	case errors.Is(err, media.ErrNotImage):
		p.Status = http.StatusUnsupportedMediaType
		p.Detail = e.message(r, i18n.ImageNotImage)
	case errors.Is(err, media.ErrEmpty):
		p.Status = http.StatusBadRequest
		p.Detail = e.message(r, i18n.ImageMissing)
	case errors.Is(err, ordering.ErrIndexOutOfRange):
		p.Status = http.StatusBadRequest
		p.Detail = e.message(r, i18n.IndexOutOfRange)
	case errors.Is(err, content.ErrNotFound), errors.Is(err, content.ErrUnknownCollection):
		p.Status = http.StatusNotFound
		p.Detail = e.message(r, i18n.NotFound)
	case errors.Is(err, auth.ErrEmailTaken):
		p.Status = http.StatusConflict
		p.Detail = e.message(r, i18n.EmailTaken)
	case errors.Is(err, content.ErrConflict), errors.Is(err, ordering.ErrLockTimeout):
		p.Status = http.StatusConflict
		p.Detail = e.message(r, i18n.Conflict)
	case errors.Is(err, auth.ErrBadCredentials):
		p.Status = http.StatusUnauthorized
		p.Detail = e.message(r, i18n.BadCredentials)
	case errors.Is(err, auth.ErrUnauthorized):
		p.Status = http.StatusUnauthorized
		p.Detail = e.message(r, i18n.Unauthorized)
	case errors.Is(err, auth.ErrSignupDisabled):
		p.Status = http.StatusForbidden
		p.Detail = e.message(r, i18n.SignupDisabled)
	case errors.Is(err, errInvalidBody):
		p.Status = http.StatusBadRequest
		p.Detail = e.message(r, i18n.InvalidBody)
	default:
		// Log internally but never expose to client
		e.logger.ErrorContext(r.Context(), "internal server error",
			"method", r.Method, "path", r.URL.Path, "request_id", auth.GetRequestID(r.Context()), "error", err)
		p.Status = http.StatusInternalServerError
		p.Detail = e.message(r, i18n.Internal)
	}
	e.write(w, r, p)
}

// Deny is the auth middleware's rejection writer.
func (e *errorWriter) Deny(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, auth.ErrUnauthorized) {
		e.Error(w, r, err)
		return
	}
	e.write(w, r, &ProblemDetail{Status: http.StatusUnauthorized, Detail: e.message(r, i18n.Unauthorized)})
}

// TooManyRequests writes a 429 with a Retry-After header.
func (e *errorWriter) TooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	e.write(w, r, &ProblemDetail{Status: http.StatusTooManyRequests, Detail: e.message(r, i18n.RateLimited)})
}

// InProgress rejects a retry whose first attempt has not finished yet.
func (e *errorWriter) InProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	e.write(w, r, &ProblemDetail{Status: http.StatusConflict, Detail: e.message(r, i18n.InProgress)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
