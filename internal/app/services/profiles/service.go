// Package profiles implements the profile reconciliation service: it decides,
// on login or registration, whether a matching remote record exists and
// whether to create, reuse, or update it, keeping the local session slot
// consistent with the row store.
package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/nutrilens/companion/internal/app/domain/profile"
	"github.com/nutrilens/companion/internal/app/storage"
	"github.com/nutrilens/companion/pkg/logger"
)

// Service coordinates the remote profile store and the single-slot local
// session. Remote failures pass through verbatim and are never retried here;
// the session slot is written only after a remote call has succeeded.
type Service struct {
	profiles storage.ProfileStore
	session  storage.SessionStore
	log      *logger.Logger
}

// New creates the reconciliation service.
func New(profiles storage.ProfileStore, session storage.SessionStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("profiles")
	}
	return &Service{profiles: profiles, session: session, log: log}
}

// Result is the outcome of a reconciliation operation.
type Result struct {
	Profile profile.Profile
	// Reused is true when registration found an existing row for the email
	// and adopted it instead of creating a new one.
	Reused bool
}

// Authenticate looks up the profile for an email, case-insensitively. A
// match becomes the active session; no match is ErrNotRegistered, and the
// session slot is left untouched on every outcome except a match.
//
// Duplicate rows for one email are a store-level inconsistency this service
// tolerates: the first row in store order wins.
func (s *Service) Authenticate(ctx context.Context, name, email string) (profile.Profile, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return profile.Profile{}, profile.ErrValidation
	}

	rows, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		s.log.WithError(err).Warn("email lookup failed")
		return profile.Profile{}, err
	}
	if len(rows) == 0 {
		return profile.Profile{}, profile.ErrNotRegistered
	}

	match := rows[0]
	if len(rows) > 1 {
		s.log.WithField("email", email).Warnf("email matches %d rows, using first", len(rows))
	}

	if err := s.session.Replace(ctx, match); err != nil {
		return profile.Profile{}, fmt.Errorf("cache session: %w", err)
	}

	s.log.WithField("profile_id", match.ID).Info("authenticated")
	return match, nil
}

// RegisterOrReuse creates a profile from the draft, or adopts the existing
// row when the email already has one. Repeated registration with the same
// email is idempotent: the second call returns the first call's row and no
// duplicate is created. The winning row becomes the active session.
func (s *Service) RegisterOrReuse(ctx context.Context, draft profile.Draft) (Result, error) {
	if err := draft.Validate(); err != nil {
		return Result{}, err
	}

	rows, err := s.profiles.FindByEmail(ctx, draft.Email)
	if err != nil {
		s.log.WithError(err).Warn("existence check failed")
		return Result{}, err
	}

	if len(rows) > 0 {
		existing := rows[0]
		if err := s.session.Replace(ctx, existing); err != nil {
			return Result{}, fmt.Errorf("cache session: %w", err)
		}
		s.log.WithField("profile_id", existing.ID).Info("registration reused existing profile")
		return Result{Profile: existing, Reused: true}, nil
	}

	created, err := s.profiles.Insert(ctx, draft)
	if err != nil {
		s.log.WithError(err).Warn("profile creation failed")
		return Result{}, err
	}
	if !created.Persisted() {
		return Result{}, profile.ErrCreationFailed
	}

	if err := s.session.Replace(ctx, created); err != nil {
		return Result{}, fmt.Errorf("cache session: %w", err)
	}

	s.log.WithField("profile_id", created.ID).Info("profile created")
	return Result{Profile: created}, nil
}

// UpdateField issues a partial update of one field against the row store,
// then merges the new value into the cached session copy. An empty session
// slot is not an error: the remote write still counts, there is just nothing
// local to merge into.
func (s *Service) UpdateField(ctx context.Context, id, field, value string) (profile.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return profile.Profile{}, profile.ErrValidation
	}
	if _, ok := profile.UpdatableFields[field]; !ok {
		return profile.Profile{}, profile.ErrUnknownField
	}

	updated, err := s.profiles.UpdateFields(ctx, id, map[string]string{field: value})
	if err != nil {
		s.log.WithError(err).WithField("field", field).Warn("field update failed")
		return profile.Profile{}, err
	}

	cached, ok, err := s.session.Load(ctx)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("load session: %w", err)
	}
	if !ok || cached.ID != id {
		// Remote write succeeded with no session to merge into.
		return updated, nil
	}

	if err := cached.Apply(field, value); err != nil {
		return profile.Profile{}, err
	}
	if err := s.session.Replace(ctx, cached); err != nil {
		return profile.Profile{}, fmt.Errorf("cache session: %w", err)
	}
	return cached, nil
}

// UpdateImage stores an image reference on the profile.
func (s *Service) UpdateImage(ctx context.Context, id, image string) (profile.Profile, error) {
	return s.UpdateField(ctx, id, "image", image)
}

// Current returns the active session's profile, or ErrNoSession.
func (s *Service) Current(ctx context.Context) (profile.Profile, error) {
	p, ok, err := s.session.Load(ctx)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return profile.Profile{}, profile.ErrNoSession
	}
	return p, nil
}

// Refresh re-fetches the active session's row from the store and replaces
// the cached copy. A failed remote read falls back to the cached copy and
// leaves the slot untouched, so the caller always gets the best profile
// available.
func (s *Service) Refresh(ctx context.Context) (profile.Profile, error) {
	cached, err := s.Current(ctx)
	if err != nil {
		return profile.Profile{}, err
	}

	fresh, err := s.profiles.GetByID(ctx, cached.ID)
	if err != nil {
		s.log.WithError(err).Warn("session refresh failed, serving cached profile")
		return cached, nil
	}

	if err := s.session.Replace(ctx, fresh); err != nil {
		return profile.Profile{}, fmt.Errorf("cache session: %w", err)
	}
	return fresh, nil
}

// Logout clears the session slot. Logging out with no session is a no-op.
func (s *Service) Logout(ctx context.Context) error {
	return s.session.Clear(ctx)
}
