package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/service/registry"
)

// sessionContextKey carries the resolved session through the middleware chain.
type sessionContextKey struct{}

// registerSchoolRequest is the body of POST /schools.
type registerSchoolRequest struct {
	Name        string   `json:"name" validate:"required"`
	District    string   `json:"district"`
	JoinSecret  string   `json:"join_secret" validate:"required"`
	AdminSecret string   `json:"admin_secret" validate:"required"`
	Buildings   []string `json:"buildings"`
}

// authenticateRequest is the body of the join and admin endpoints.
type authenticateRequest struct {
	Code string `json:"code" validate:"required"`
}

// addBuildingRequest is the body of POST /schools/{id}/buildings.
type addBuildingRequest struct {
	Name string `json:"name" validate:"required"`
}

// triggerAlertRequest is the body of POST /alerts.
type triggerAlertRequest struct {
	Building string `json:"building" validate:"required"`
	Room     string `json:"room"`
}

// postMessageRequest is the body of POST /messages.
type postMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// decode parses and validates a JSON request body.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}

	return s.validate.Struct(dst)
}

// requireSession resolves the bearer token and stores the session in the
// request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			renderError(w, r, http.StatusUnauthorized, "bearer token required")

			return
		}

		session, err := s.auth.Resolve(r.Context(), token)
		if err != nil {
			renderDomainError(w, r, err)

			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom extracts the session stored by requireSession.
func sessionFrom(r *http.Request) *domain.Session {
	session, _ := r.Context().Value(sessionContextKey{}).(*domain.Session)

	return session
}

func (s *Server) registerSchool(w http.ResponseWriter, r *http.Request) {
	var req registerSchoolRequest
	if err := s.decode(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")

		return
	}

	school, err := s.registry.Register(r.Context(), registry.RegisterInput{
		Name:        req.Name,
		District:    req.District,
		JoinSecret:  req.JoinSecret,
		AdminSecret: req.AdminSecret,
		Buildings:   req.Buildings,
	})
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toSchoolResponse(school))
}

func (s *Server) searchSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := s.registry.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.JSON(w, r, toSchoolResponses(schools))
}

func (s *Server) getSchool(w http.ResponseWriter, r *http.Request) {
	school, err := s.registry.Get(r.Context(), chi.URLParam(r, "schoolID"))
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.JSON(w, r, toSchoolResponse(school))
}

func (s *Server) addBuilding(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	schoolID := chi.URLParam(r, "schoolID")
	if session.Role != domain.RoleAdmin || session.SchoolID != schoolID {
		renderError(w, r, http.StatusForbidden, "admin session for this school required")

		return
	}

	var req addBuildingRequest
	if err := s.decode(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")

		return
	}

	school, err := s.registry.AddBuilding(r.Context(), schoolID, req.Name)
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.JSON(w, r, toSchoolResponse(school))
}

func (s *Server) authenticateJoin(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.auth.VerifyJoin)
}

func (s *Server) authenticateAdmin(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, s.auth.VerifyAdmin)
}

func (s *Server) authenticate(
	w http.ResponseWriter,
	r *http.Request,
	verify func(ctx context.Context, schoolID, code string) (string, *domain.Session, error),
) {
	var req authenticateRequest
	if err := s.decode(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")

		return
	}

	token, session, err := verify(r.Context(), chi.URLParam(r, "schoolID"), req.Code)
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.JSON(w, r, sessionResponse{
		Token:         token,
		SchoolID:      session.SchoolID,
		Role:          session.Role,
		EstablishedAt: session.EstablishedAt,
	})
}

func (s *Server) triggerAlert(w http.ResponseWriter, r *http.Request) {
	var req triggerAlertRequest
	if err := s.decode(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")

		return
	}

	state, err := s.alerts.Trigger(r.Context(), sessionFrom(r), req.Building, req.Room)
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, alertStateResponse{
		Principal: state.Principal,
		Building:  state.Building,
		Room:      state.Room,
		StartedAt: state.StartedAt,
	})
}

func (s *Server) cancelAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.alerts.Cancel(r.Context(), sessionFrom(r)); err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.NoContent(w, r)
}

func (s *Server) liveStatus(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	schoolID := chi.URLParam(r, "schoolID")
	if session.Role != domain.RoleAdmin || session.SchoolID != schoolID {
		renderError(w, r, http.StatusForbidden, "admin session for this school required")

		return
	}

	render.JSON(w, r, toStatusResponse(schoolID, s.alerts.LiveStatus(r.Context(), schoolID)))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	schoolID := chi.URLParam(r, "schoolID")
	if session.Role != domain.RoleAdmin || session.SchoolID != schoolID {
		renderError(w, r, http.StatusForbidden, "admin session for this school required")

		return
	}

	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid since parameter")

		return
	}

	events, err := s.ledger.ReadSince(r.Context(), schoolID, since)
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.JSON(w, r, events)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := s.decode(r, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid request body")

		return
	}

	message, err := s.chat.Post(r.Context(), sessionFrom(r), req.Text)
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, message)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid since parameter")

		return
	}

	messages, err := s.chat.List(r.Context(), chi.URLParam(r, "schoolID"), since)
	if err != nil {
		renderDomainError(w, r, err)

		return
	}

	render.JSON(w, r, messages)
}

// parseSince parses the optional since query parameter, defaulting to zero.
func parseSince(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}

	return strconv.ParseUint(raw, 10, 64)
}
