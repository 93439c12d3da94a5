package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/logger"
)

// SchoolLookup is the slice of the registry the authenticator depends on.
type SchoolLookup interface {
	Get(ctx context.Context, id string) (*domain.School, error)
}

// Service checks presented codes against school secrets and issues sessions.
type Service struct {
	// schools resolves school records for credential checks.
	schools SchoolLookup
	// mu protects the token map.
	mu sync.RWMutex
	// sessions maps issued bearer tokens to sessions.
	sessions map[string]*domain.Session
}

// NewService creates an authenticator over the provided school lookup.
func NewService(schools SchoolLookup) *Service {
	return &Service{
		schools:  schools,
		sessions: make(map[string]*domain.Session),
	}
}

// VerifyJoin checks the join secret and issues a student session.
func (s *Service) VerifyJoin(ctx context.Context, schoolID, code string) (token string, session *domain.Session, err error) {
	return s.verify(ctx, schoolID, code, domain.RoleStudent)
}

// VerifyAdmin checks the admin secret and issues an admin session.
func (s *Service) VerifyAdmin(ctx context.Context, schoolID, code string) (token string, session *domain.Session, err error) {
	return s.verify(ctx, schoolID, code, domain.RoleAdmin)
}

func (s *Service) verify(ctx context.Context, schoolID, code string, role domain.Role) (string, *domain.Session, error) {
	school, err := s.schools.Get(ctx, schoolID)
	if err != nil {
		return "", nil, err
	}

	secret := school.JoinSecret
	if role == domain.RoleAdmin {
		secret = school.AdminSecret
	}

	// Constant-time comparison: the check must not leak how many leading
	// characters of the guess were right. Authentication failures are
	// reported to the caller and never retried here.
	if subtle.ConstantTimeCompare([]byte(code), []byte(secret)) != 1 {
		logger.WarnKV(ctx, "Credential check failed", "school_id", schoolID, "role", role)

		return "", nil, domain.ErrAuth
	}

	session := &domain.Session{
		ID:            uuid.NewString(),
		SchoolID:      schoolID,
		Role:          role,
		EstablishedAt: time.Now(),
	}

	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	logger.InfoKV(ctx, "Session established", "school_id", schoolID, "role", role, "principal", session.ID)

	return token, session.Clone(), nil
}

// Resolve maps a bearer token back to its session.
func (s *Service) Resolve(_ context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown session token", domain.ErrAuth)
	}

	return session.Clone(), nil
}

// Revoke drops a token so it can no longer be resolved. The core does not
// require revocation; the HTTP layer uses it for explicit sign-out.
func (s *Service) Revoke(_ context.Context, token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
