package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/safespace/safespace-server/internal/domain/safety"
	"github.com/safespace/safespace-server/internal/logger"
	repo "github.com/safespace/safespace-server/internal/repository/school"
)

// DefaultBuilding is assigned when a registration names no buildings.
const DefaultBuilding = "Main"

// RegisterInput carries the fields of a school registration.
type RegisterInput struct {
	// Name is the display name. Required.
	Name string
	// District is an optional administrative grouping.
	District string
	// JoinSecret gates student access. Required.
	JoinSecret string
	// AdminSecret gates administrator access. Required, must differ from JoinSecret.
	AdminSecret string
	// Buildings lists the school's buildings. Defaults to {"Main"}.
	Buildings []string
}

// Service owns the school catalog. All mutations go through it; the
// repository only sees whole-catalog snapshots.
type Service struct {
	// repo persists the catalog. Nil disables persistence.
	repo repo.Repository
	// mu protects the catalog.
	mu sync.RWMutex
	// schools holds every registered school in registration order.
	schools []*domain.School
	// byID indexes the same records by identifier.
	byID map[string]*domain.School
}

// NewService creates a registry backed by the provided repository and loads
// the existing catalog from it.
func NewService(ctx context.Context, repository repo.Repository) (*Service, error) {
	s := &Service{
		repo: repository,
		byID: make(map[string]*domain.School),
	}

	if repository == nil {
		return s, nil
	}

	schools, err := repository.Load(ctx)
	switch {
	case err == nil:
		for _, school := range schools {
			s.schools = append(s.schools, school)
			s.byID[school.ID] = school
		}
	case errors.Is(err, repo.ErrNotFound):
		// Empty catalog on first start.
	default:
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return s, nil
}

// Register validates the input, assigns a fresh identifier and makes the new
// school visible to subsequent lookups.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.School, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: school name is required", domain.ErrValidation)
	}

	if input.JoinSecret == "" || input.AdminSecret == "" {
		return nil, fmt.Errorf("%w: both join and admin secrets are required", domain.ErrValidation)
	}

	if input.JoinSecret == input.AdminSecret {
		return nil, fmt.Errorf("%w: join and admin secrets must differ", domain.ErrValidation)
	}

	buildings, err := normalizeBuildings(input.Buildings)
	if err != nil {
		return nil, err
	}

	school := &domain.School{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		District:     strings.TrimSpace(input.District),
		Buildings:    buildings,
		JoinSecret:   input.JoinSecret,
		AdminSecret:  input.AdminSecret,
		RegisteredAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schools = append(s.schools, school)
	s.byID[school.ID] = school

	if err = s.persistLocked(ctx); err != nil {
		// Roll back so a failed registration leaves no partial state.
		s.schools = s.schools[:len(s.schools)-1]
		delete(s.byID, school.ID)

		return nil, err
	}

	logger.InfoKV(ctx, "School registered",
		"school_id", school.ID, "name", school.Name, "buildings", len(school.Buildings))

	return school.Clone(), nil
}

// Search returns schools whose name contains the query, case-insensitively,
// in registration order. An empty query returns the whole catalog.
func (s *Service) Search(_ context.Context, query string) ([]*domain.School, error) {
	needle := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.School, 0, len(s.schools))

	for _, school := range s.schools {
		if needle == "" || strings.Contains(strings.ToLower(school.Name), needle) {
			out = append(out, school.Clone())
		}
	}

	return out, nil
}

// Get returns the school with the given identifier.
func (s *Service) Get(_ context.Context, id string) (*domain.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	school, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	return school.Clone(), nil
}

// AddBuilding appends a building to the school. Duplicates are rejected, not
// silently merged, so a misconfigured client hears about it.
func (s *Service) AddBuilding(ctx context.Context, id, name string) (*domain.School, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: building name is required", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	school, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	if school.HasBuilding(name) {
		return nil, fmt.Errorf("%w: building %q already registered", domain.ErrValidation, name)
	}

	school.Buildings = append(school.Buildings, name)

	if err := s.persistLocked(ctx); err != nil {
		school.Buildings = school.Buildings[:len(school.Buildings)-1]

		return nil, err
	}

	logger.InfoKV(ctx, "Building added", "school_id", id, "building", name)

	return school.Clone(), nil
}

// persistLocked saves the catalog snapshot. Callers hold mu.
func (s *Service) persistLocked(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	if err := s.repo.Save(ctx, s.schools); err != nil {
		logger.Errorf(ctx, "Failed to persist school catalog: %v", err)

		return fmt.Errorf("%w: persist catalog: %w", domain.ErrStorage, err)
	}

	return nil
}

// normalizeBuildings trims the provided names, rejects duplicates and falls
// back to the default building for an empty list.
func normalizeBuildings(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	for _, b := range in {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}

		if _, dup := seen[b]; dup {
			return nil, fmt.Errorf("%w: duplicate building %q", domain.ErrValidation, b)
		}

		seen[b] = struct{}{}
		out = append(out, b)
	}

	if len(out) == 0 {
		out = []string{DefaultBuilding}
	}

	return out, nil
}
