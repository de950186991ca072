// Package memory provides thread-safe in-memory implementations of the
// storage interfaces. It is intended for tests, prototyping, and running
// without a configured row store.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nutrilens/companion/internal/app/domain/profile"
	"github.com/nutrilens/companion/internal/app/storage"
)

// Store keeps profile rows and the session slot in process memory. Row order
// is insertion order, matching the "first match wins" expectations of the
// reconciliation flow.
type Store struct {
	mu       sync.RWMutex
	order    []string
	profiles map[string]profile.Profile
	session  *profile.Profile
}

var (
	_ storage.ProfileStore = (*Store)(nil)
	_ storage.SessionStore = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{profiles: make(map[string]profile.Profile)}
}

// FindByEmail implements storage.ProfileStore.
func (s *Store) FindByEmail(_ context.Context, email string) ([]profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []profile.Profile
	for _, id := range s.order {
		p := s.profiles[id]
		if strings.EqualFold(p.Email, email) {
			rows = append(rows, p)
		}
	}
	return rows, nil
}

// GetByID implements storage.ProfileStore.
func (s *Store) GetByID(_ context.Context, id string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, storage.ErrProfileNotFound
	}
	return p, nil
}

// Insert implements storage.ProfileStore. The id is assigned here, the way
// the hosted store assigns one on creation.
func (s *Store) Insert(_ context.Context, draft profile.Draft) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := profile.Profile{
		ID:            uuid.NewString(),
		Name:          draft.Name,
		Email:         draft.Email,
		Age:           draft.Age,
		BloodPressure: draft.BloodPressure,
		Sugar:         draft.Sugar,
		HbA1c:         draft.HbA1c,
		GlycemicIndex: draft.GlycemicIndex,
		Cholesterol:   draft.Cholesterol,
	}

	s.profiles[p.ID] = p
	s.order = append(s.order, p.ID)
	return p, nil
}

// UpdateFields implements storage.ProfileStore.
func (s *Store) UpdateFields(_ context.Context, id string, fields map[string]string) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, storage.ErrProfileNotFound
	}
	for field, value := range fields {
		if err := p.Apply(field, value); err != nil {
			return profile.Profile{}, err
		}
	}
	s.profiles[id] = p
	return p, nil
}

// Upsert implements storage.ProfileStore.
func (s *Store) Upsert(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.profiles[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.profiles[p.ID] = p
	return nil
}

// Load implements storage.SessionStore.
func (s *Store) Load(_ context.Context) (profile.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return profile.Profile{}, false, nil
	}
	return *s.session, true, nil
}

// Replace implements storage.SessionStore.
func (s *Store) Replace(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &p
	return nil
}

// Clear implements storage.SessionStore.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	return nil
}
