package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	schoolrepo "github.com/safespace/safespace-server/internal/repository/school"
	"github.com/safespace/safespace-server/internal/service/registry"
)

func newTestAuth(t *testing.T) (*Service, *domain.School) {
	t.Helper()

	reg, err := registry.NewService(context.Background(), schoolrepo.NewMemoryRepository())
	require.NoError(t, err)

	school, err := reg.Register(context.Background(), registry.RegisterInput{
		Name:        "Chavez MS",
		JoinSecret:  "CHAVEZ2026",
		AdminSecret: "ADMIN99",
		Buildings:   []string{"Main", "Gym"},
	})
	require.NoError(t, err)

	return NewService(reg), school
}

// TestVerifyJoin covers the student credential path.
func TestVerifyJoin(t *testing.T) {
	t.Parallel()

	s, school := newTestAuth(t)

	token, session, err := s.VerifyJoin(context.Background(), school.ID, "CHAVEZ2026")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, domain.RoleStudent, session.Role)
	require.Equal(t, school.ID, session.SchoolID)
	require.False(t, session.EstablishedAt.IsZero())

	_, _, err = s.VerifyJoin(context.Background(), school.ID, "wrong")
	require.ErrorIs(t, err, domain.ErrAuth)

	// The admin secret is not a join secret.
	_, _, err = s.VerifyJoin(context.Background(), school.ID, "ADMIN99")
	require.ErrorIs(t, err, domain.ErrAuth)

	_, _, err = s.VerifyJoin(context.Background(), "missing", "CHAVEZ2026")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// TestVerifyAdmin covers the administrator credential path.
func TestVerifyAdmin(t *testing.T) {
	t.Parallel()

	s, school := newTestAuth(t)

	_, session, err := s.VerifyAdmin(context.Background(), school.ID, "ADMIN99")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, session.Role)

	// The join secret is not an admin secret.
	_, _, err = s.VerifyAdmin(context.Background(), school.ID, "CHAVEZ2026")
	require.ErrorIs(t, err, domain.ErrAuth)
}

// TestResolveAndRevoke verifies token resolution and explicit sign-out.
func TestResolveAndRevoke(t *testing.T) {
	t.Parallel()

	s, school := newTestAuth(t)

	token, issued, err := s.VerifyJoin(context.Background(), school.ID, "CHAVEZ2026")
	require.NoError(t, err)

	resolved, err := s.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, issued.ID, resolved.ID)

	// Each successful check issues a distinct principal.
	token2, issued2, err := s.VerifyJoin(context.Background(), school.ID, "CHAVEZ2026")
	require.NoError(t, err)
	require.NotEqual(t, token, token2)
	require.NotEqual(t, issued.ID, issued2.ID)

	s.Revoke(context.Background(), token)

	_, err = s.Resolve(context.Background(), token)
	require.ErrorIs(t, err, domain.ErrAuth)

	_, err = s.Resolve(context.Background(), "never-issued")
	require.ErrorIs(t, err, domain.ErrAuth)
}
