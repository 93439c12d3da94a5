package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/notification"
	"github.com/safespace/safespace-server/internal/service/chat"
	"github.com/safespace/safespace-server/internal/service/registry"
)

// Registry abstracts the school catalog operations the transport depends on.
type Registry interface {
	Register(ctx context.Context, input registry.RegisterInput) (*domain.School, error)
	Search(ctx context.Context, query string) ([]*domain.School, error)
	Get(ctx context.Context, id string) (*domain.School, error)
	AddBuilding(ctx context.Context, id, name string) (*domain.School, error)
}

// Authenticator abstracts credential checks and session resolution.
type Authenticator interface {
	VerifyJoin(ctx context.Context, schoolID, code string) (string, *domain.Session, error)
	VerifyAdmin(ctx context.Context, schoolID, code string) (string, *domain.Session, error)
	Resolve(ctx context.Context, token string) (*domain.Session, error)
}

// Coordinator abstracts the alert state machine.
type Coordinator interface {
	Trigger(ctx context.Context, session *domain.Session, building, room string) (*domain.AlertState, error)
	Cancel(ctx context.Context, session *domain.Session) error
	LiveStatus(ctx context.Context, schoolID string) []*domain.AlertState
}

// Ledger abstracts ordered history reads.
type Ledger interface {
	ReadSince(ctx context.Context, schoolID string, since uint64) ([]*domain.AlertEvent, error)
}

// Chat abstracts the message relay and its live feed.
type Chat interface {
	Post(ctx context.Context, session *domain.Session, text string) (*domain.Message, error)
	List(ctx context.Context, schoolID string, since uint64) ([]*domain.Message, error)
	Subscribe(schoolID string) *chat.Subscription
	Unsubscribe(sub *chat.Subscription)
}

// Server wires the services into an HTTP handler.
type Server struct {
	// registry is the school catalog.
	registry Registry
	// auth issues and resolves sessions.
	auth Authenticator
	// alerts is the alert state machine.
	alerts Coordinator
	// ledger serves history reads.
	ledger Ledger
	// chat is the message relay.
	chat Chat
	// hub feeds websocket status subscriptions.
	hub *notification.Hub
	// validate checks request structs.
	validate *validator.Validate
}

// NewServer creates the transport over the provided services.
func NewServer(reg Registry, auth Authenticator, alerts Coordinator, ledgerSvc Ledger, chatSvc Chat, hub *notification.Hub) *Server {
	return &Server{
		registry: reg,
		auth:     auth,
		alerts:   alerts,
		ledger:   ledgerSvc,
		chat:     chatSvc,
		hub:      hub,
		validate: validator.New(),
	}
}

// Router builds the chi router with all API routes mounted under /api/v1.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, http.StatusNotFound, "requested resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/schools", func(r chi.Router) {
			r.Post("/", s.registerSchool)
			r.Get("/", s.searchSchools)

			r.Route("/{schoolID}", func(r chi.Router) {
				r.Get("/", s.getSchool)
				r.Post("/join", s.authenticateJoin)
				r.Post("/admin", s.authenticateAdmin)
				r.Get("/messages", s.listMessages)
				r.Get("/messages/subscribe", s.subscribeMessages)

				r.Group(func(r chi.Router) {
					r.Use(s.requireSession)
					r.Post("/buildings", s.addBuilding)
					r.Get("/status", s.liveStatus)
					r.Get("/history", s.history)
				})

				// The websocket handshake reads the token itself; a browser
				// cannot set an Authorization header on an upgrade request.
				r.Get("/subscribe", s.subscribeStatus)
			})
		})

		v1.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/alerts", s.triggerAlert)
			r.Delete("/alerts", s.cancelAlert)
			r.Post("/messages", s.postMessage)
		})
	})

	return r
}
