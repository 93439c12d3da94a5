package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
)

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// schoolResponse is the client-facing view of a school. Secrets never leave
// the server.
type schoolResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	District     string    `json:"district,omitempty"`
	Buildings    []string  `json:"buildings"`
	RegisteredAt time.Time `json:"registered_at"`
}

// sessionResponse returns the issued capability to the client.
type sessionResponse struct {
	Token         string      `json:"token"`
	SchoolID      string      `json:"school_id"`
	Role          domain.Role `json:"role"`
	EstablishedAt time.Time   `json:"established_at"`
}

// alertStateResponse is one active alert in a status payload.
type alertStateResponse struct {
	Principal string    `json:"principal"`
	Building  string    `json:"building"`
	Room      string    `json:"room,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// statusResponse is a full live-status snapshot.
type statusResponse struct {
	SchoolID string               `json:"school_id"`
	Active   []alertStateResponse `json:"active"`
}

func toSchoolResponse(school *domain.School) schoolResponse {
	return schoolResponse{
		ID:           school.ID,
		Name:         school.Name,
		District:     school.District,
		Buildings:    school.Buildings,
		RegisteredAt: school.RegisteredAt,
	}
}

func toSchoolResponses(schools []*domain.School) []schoolResponse {
	out := make([]schoolResponse, 0, len(schools))
	for _, school := range schools {
		out = append(out, toSchoolResponse(school))
	}

	return out
}

func toStatusResponse(schoolID string, states []*domain.AlertState) statusResponse {
	active := make([]alertStateResponse, 0, len(states))
	for _, state := range states {
		active = append(active, alertStateResponse{
			Principal: state.Principal,
			Building:  state.Building,
			Room:      state.Room,
			StartedAt: state.StartedAt,
		})
	}

	return statusResponse{
		SchoolID: schoolID,
		Active:   active,
	}
}

// renderError writes the uniform error payload with the given status code.
func renderError(w http.ResponseWriter, r *http.Request, code int, message string) {
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: message})
}

// renderDomainError maps the domain error taxonomy onto HTTP status codes.
// Validation details are safe to surface verbatim; storage details are not.
func renderDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		renderError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		renderError(w, r, http.StatusNotFound, "school not found")
	case errors.Is(err, domain.ErrAuth):
		renderError(w, r, http.StatusUnauthorized, "code incorrect")
	case errors.Is(err, domain.ErrInvalidState):
		renderError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStorage):
		renderError(w, r, http.StatusInternalServerError, "failed to record the transition")
	default:
		renderError(w, r, http.StatusInternalServerError, "internal error")
	}
}
