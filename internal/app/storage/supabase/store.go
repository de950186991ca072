// Package supabase implements the remote profile store over the Supabase
// PostgREST API.
package supabase

import (
	"context"
	"fmt"

	"github.com/nutrilens/companion/internal/app/domain/profile"
	"github.com/nutrilens/companion/internal/app/storage"
	"github.com/nutrilens/companion/internal/supabase"
	"github.com/nutrilens/companion/pkg/logger"
)

// table is the hosted row store table holding user profiles.
const table = "DatasUser"

// ProfileStore adapts the PostgREST client to the storage.ProfileStore
// contract. Errors from the row store pass through with their original
// message; no retries happen at this layer.
type ProfileStore struct {
	client *supabase.Client
	log    *logger.Logger
}

var _ storage.ProfileStore = (*ProfileStore)(nil)

// New creates a profile store backed by the given client.
func New(client *supabase.Client, log *logger.Logger) *ProfileStore {
	if log == nil {
		log = logger.NewDefault("storage.supabase")
	}
	return &ProfileStore{client: client, log: log}
}

// FindByEmail implements storage.ProfileStore. The email is matched with a
// case-insensitive equality filter; no wildcards are added, so the lookup
// only differs from eq by case folding.
func (s *ProfileStore) FindByEmail(ctx context.Context, email string) ([]profile.Profile, error) {
	resp, err := s.client.From(table).
		Select("*").
		ILike("email", email).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("find by email: %w", err)
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []profile.Profile
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// GetByID implements storage.ProfileStore.
func (s *ProfileStore) GetByID(ctx context.Context, id string) (profile.Profile, error) {
	resp, err := s.client.From(table).
		Select("*").
		Eq("id", id).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get by id: %w", err)
	}
	if err := resp.Error(); err != nil {
		return profile.Profile{}, err
	}

	var rows []profile.Profile
	if err := resp.JSON(&rows); err != nil {
		return profile.Profile{}, fmt.Errorf("decode rows: %w", err)
	}
	if len(rows) == 0 {
		return profile.Profile{}, storage.ErrProfileNotFound
	}
	return rows[0], nil
}

// Insert implements storage.ProfileStore. The row store assigns the id; the
// insert asks for the created representation and expects exactly one row
// back.
func (s *ProfileStore) Insert(ctx context.Context, draft profile.Draft) (profile.Profile, error) {
	resp, err := s.client.From(table).ExecuteInsert(ctx, draft)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	if err := resp.Error(); err != nil {
		return profile.Profile{}, err
	}

	var rows []profile.Profile
	if err := resp.JSON(&rows); err != nil {
		return profile.Profile{}, fmt.Errorf("decode inserted row: %w", err)
	}
	if len(rows) != 1 {
		s.log.Warnf("insert returned %d rows, want 1", len(rows))
		return profile.Profile{}, profile.ErrCreationFailed
	}
	return rows[0], nil
}

// UpdateFields implements storage.ProfileStore.
func (s *ProfileStore) UpdateFields(ctx context.Context, id string, fields map[string]string) (profile.Profile, error) {
	resp, err := s.client.From(table).Eq("id", id).ExecuteUpdate(ctx, fields)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	if err := resp.Error(); err != nil {
		return profile.Profile{}, err
	}

	var rows []profile.Profile
	if err := resp.JSON(&rows); err != nil {
		return profile.Profile{}, fmt.Errorf("decode updated row: %w", err)
	}
	if len(rows) == 0 {
		return profile.Profile{}, storage.ErrProfileNotFound
	}
	return rows[0], nil
}

// Upsert implements storage.ProfileStore.
func (s *ProfileStore) Upsert(ctx context.Context, p profile.Profile) error {
	resp, err := s.client.From(table).ExecuteUpsert(ctx, p)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return resp.Error()
}
