// Package storage defines the persistence contracts for the companion core.
package storage

import (
	"context"
	"errors"

	"github.com/nutrilens/companion/internal/app/domain/profile"
)

// ErrProfileNotFound is returned by lookups that match no row.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore is the remote profile collaborator: a row store keyed by an
// opaque id with a case-insensitive email lookup. Implementations surface
// remote failures verbatim and never retry; retry policy, if any, lives in
// the transport underneath.
type ProfileStore interface {
	// FindByEmail returns every row whose email equals the argument,
	// case-insensitively, in store order. An empty result is not an error.
	FindByEmail(ctx context.Context, email string) ([]profile.Profile, error)

	// GetByID returns the row with the given id, or ErrProfileNotFound.
	GetByID(ctx context.Context, id string) (profile.Profile, error)

	// Insert creates a row from the draft and returns it with the
	// store-assigned id.
	Insert(ctx context.Context, draft profile.Draft) (profile.Profile, error)

	// UpdateFields applies a partial update to the row with the given id and
	// returns the updated row.
	UpdateFields(ctx context.Context, id string, fields map[string]string) (profile.Profile, error)

	// Upsert writes a full row, merging on the id. Used by seeding, not by
	// the reconciliation flow.
	Upsert(ctx context.Context, p profile.Profile) error
}

// SessionStore is the single-slot local cache of the active profile. If a
// record is present it mirrors the last successfully persisted or fetched
// profile; a write either fully replaces the old record or leaves it intact.
type SessionStore interface {
	// Load returns the cached profile and whether the slot holds one.
	Load(ctx context.Context) (profile.Profile, bool, error)

	// Replace overwrites the slot.
	Replace(ctx context.Context, p profile.Profile) error

	// Clear empties the slot. Clearing an empty slot is a no-op.
	Clear(ctx context.Context) error
}
