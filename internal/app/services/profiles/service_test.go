package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/nutrilens/companion/internal/app/domain/profile"
	"github.com/nutrilens/companion/internal/app/storage"
	"github.com/nutrilens/companion/internal/app/storage/memory"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return New(store, store, nil), store
}

func TestAuthenticateValidation(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Authenticate(context.Background(), "", "a@x.com"); !errors.Is(err, profile.ErrValidation) {
		t.Errorf("empty name: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Authenticate(context.Background(), "Alice", "  "); !errors.Is(err, profile.ErrValidation) {
		t.Errorf("blank email: err = %v, want ErrValidation", err)
	}
}

func TestAuthenticateNotRegistered(t *testing.T) {
	svc, store := newTestService()

	_, err := svc.Authenticate(context.Background(), "Alice", "a@x.com")
	if !errors.Is(err, profile.ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}

	if _, ok, _ := store.Load(context.Background()); ok {
		t.Fatal("session must stay empty when authentication finds no row")
	}
}

func TestRegisterThenAuthenticateDifferentCase(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "Alice", "a@x.com"); !errors.Is(err, profile.ErrNotRegistered) {
		t.Fatalf("pre-registration auth: err = %v, want ErrNotRegistered", err)
	}

	res, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Reused {
		t.Fatal("first registration must not report reuse")
	}
	if !res.Profile.Persisted() {
		t.Fatal("created profile must carry a store-assigned id")
	}

	got, err := svc.Authenticate(ctx, "Alice", "A@X.COM")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != res.Profile.ID {
		t.Fatalf("authenticated id = %q, want %q", got.ID, res.Profile.ID)
	}
}

func TestRegisterOrReuseIsIdempotent(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	first, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("first register: %v", err)
	}

	second, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Completely Different", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if !second.Reused {
		t.Fatal("second registration must report reuse")
	}
	if second.Profile.ID != first.Profile.ID {
		t.Fatalf("second registration returned id %q, want %q", second.Profile.ID, first.Profile.ID)
	}
	if second.Profile.Name != "Alice" {
		t.Fatalf("reuse must return the existing row, got name %q", second.Profile.Name)
	}

	rows, _ := store.FindByEmail(ctx, "a@x.com")
	if len(rows) != 1 {
		t.Fatalf("store holds %d rows for the email, want 1", len(rows))
	}
}

func TestRegisterKeepsDraftHealthFields(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	res, err := svc.RegisterOrReuse(ctx, profile.Draft{
		Name:  "Alice",
		Email: "a@x.com",
		Age:   "45",
		Sugar: "110",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Profile.Age != "45" || res.Profile.Sugar != "110" {
		t.Fatalf("health fields lost on creation: %+v", res.Profile)
	}

	cached, ok, _ := store.Load(ctx)
	if !ok || cached.ID != res.Profile.ID {
		t.Fatalf("session does not hold the created row: ok=%v %+v", ok, cached)
	}
}

func TestAuthenticateFirstMatchWins(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	store.Upsert(ctx, profile.Profile{ID: "first", Name: "Alice", Email: "a@x.com"})
	store.Upsert(ctx, profile.Profile{ID: "second", Name: "Shadow", Email: "A@x.com"})

	got, err := svc.Authenticate(ctx, "Alice", "a@x.com")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != "first" {
		t.Fatalf("id = %q, want the first row in store order", got.ID)
	}
}

func TestUpdateFieldMergesIntoSession(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	res, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.UpdateField(ctx, res.Profile.ID, "age", "45")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Age != "45" {
		t.Fatalf("age = %q, want 45", got.Age)
	}

	cached, ok, _ := store.Load(ctx)
	if !ok || cached.Age != "45" {
		t.Fatalf("session not merged: ok=%v %+v", ok, cached)
	}
}

func TestUpdateFieldWithClearedSession(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	res, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	got, err := svc.UpdateField(ctx, res.Profile.ID, "age", "45")
	if err != nil {
		t.Fatalf("remote update must still succeed without a session: %v", err)
	}
	if got.Age != "45" {
		t.Fatalf("age = %q, want 45", got.Age)
	}

	if _, ok, _ := store.Load(ctx); ok {
		t.Fatal("session must remain empty, there was nothing to merge into")
	}
}

func TestUpdateFieldRejectsUnknownField(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateField(context.Background(), "some-id", "email", "new@x.com")
	if !errors.Is(err, profile.ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
}

func TestUpdateFieldRemoteFailureLeavesSessionIntact(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	res, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// The row disappears remotely while the session still holds it.
	_, err = svc.UpdateField(ctx, "no-such-row", "age", "45")
	if !errors.Is(err, storage.ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}

	cached, ok, _ := store.Load(ctx)
	if !ok || cached.ID != res.Profile.ID || cached.Age != "" {
		t.Fatalf("session changed on a failed update: ok=%v %+v", ok, cached)
	}
}

func TestCurrentAndRefresh(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, err := svc.Current(ctx); !errors.Is(err, profile.ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}

	res, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Another device edits the row; refresh picks it up.
	edited := res.Profile
	edited.Cholesterol = "190"
	store.Upsert(ctx, edited)

	got, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.Cholesterol != "190" {
		t.Fatalf("cholesterol = %q, want 190", got.Cholesterol)
	}

	cur, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur != got {
		t.Fatalf("current %+v, want refreshed %+v", cur, got)
	}
}

type unreachableStore struct {
	*memory.Store
	getErr error
}

func (s *unreachableStore) GetByID(context.Context, string) (profile.Profile, error) {
	return profile.Profile{}, s.getErr
}

func TestRefreshFallsBackToCachedOnRemoteFailure(t *testing.T) {
	store := memory.New()
	remote := &unreachableStore{Store: store, getErr: errors.New("network down")}
	svc := New(remote, store, nil)
	ctx := context.Background()

	res, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com", Age: "45"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh must fall back to the cached copy, got error: %v", err)
	}
	if got != res.Profile {
		t.Fatalf("refresh returned %+v, want the cached %+v", got, res.Profile)
	}

	cached, ok, _ := store.Load(ctx)
	if !ok || cached != res.Profile {
		t.Fatalf("slot changed on a failed refresh: ok=%v %+v", ok, cached)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout with no session: %v", err)
	}

	if _, err := svc.RegisterOrReuse(ctx, profile.Draft{Name: "Alice", Email: "a@x.com"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Current(ctx); !errors.Is(err, profile.ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession after logout", err)
	}
}
