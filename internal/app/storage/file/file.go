// Package file provides the on-disk single-slot session store.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nutrilens/companion/internal/app/domain/profile"
	"github.com/nutrilens/companion/internal/app/storage"
)

// sessionFile is the fixed key under which the active profile is cached.
const sessionFile = "userProfile.json"

// SessionStore persists the active profile as one JSON document. Writes go
// to a temporary file in the same directory followed by a rename, so a
// crashed write leaves the previous record intact and a reader never
// observes a partial one.
type SessionStore struct {
	dir string
}

var _ storage.SessionStore = (*SessionStore)(nil)

// New creates a session store rooted at dir, creating the directory when
// missing.
func New(dir string) (*SessionStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("session store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &SessionStore{dir: dir}, nil
}

func (s *SessionStore) path() string {
	return filepath.Join(s.dir, sessionFile)
}

// Load implements storage.SessionStore.
func (s *SessionStore) Load(_ context.Context) (profile.Profile, bool, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return profile.Profile{}, false, nil
	}
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("read session: %w", err)
	}

	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return profile.Profile{}, false, fmt.Errorf("decode session: %w", err)
	}
	return p, true, nil
}

// Replace implements storage.SessionStore.
func (s *SessionStore) Replace(_ context.Context, p profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, sessionFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear implements storage.SessionStore.
func (s *SessionStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
