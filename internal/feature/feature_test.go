package feature

import (
	"testing"

	"github.com/pipewright/pipewright/internal/errors"
	"github.com/pipewright/pipewright/internal/state"
)

func TestFindByID_NotFound(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = repo.FindByID("missing")
	if !errors.Is(err, errors.ErrFeatureNotFound) {
		t.Errorf("expected ErrFeatureNotFound, got: %v", err)
	}
}

func TestUpdateAndFind_RoundTrip(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	f := &Feature{
		ID:         "feat-1",
		Name:       "login",
		Branch:     "feature/login",
		BaseBranch: "main",
		Lifecycle:  state.LifecycleBuild,
	}
	if err := repo.Update(f); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if f.CreatedAt.IsZero() || f.UpdatedAt.IsZero() {
		t.Error("Update must stamp CreatedAt and UpdatedAt")
	}

	got, err := repo.FindByID("feat-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Branch != "feature/login" || got.Lifecycle != state.LifecycleBuild {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestUpdate_AdvancesLifecycle(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	f := &Feature{ID: "feat-1", Name: "login", Branch: "feature/login", Lifecycle: state.LifecycleBuild}
	if err := repo.Update(f); err != nil {
		t.Fatal(err)
	}
	created := f.CreatedAt

	f.Lifecycle = state.LifecycleMaintain
	if err := repo.Update(f); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByID("feat-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Lifecycle != state.LifecycleMaintain {
		t.Errorf("Lifecycle = %s, want %s", got.Lifecycle, state.LifecycleMaintain)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on update: %v -> %v", created, got.CreatedAt)
	}
}

func TestUpdate_RejectsBadIdentity(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"", "  ", "../escape", "a/b"} {
		if err := repo.Update(&Feature{ID: id}); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("Update(%q): expected ErrInvalidInput, got: %v", id, err)
		}
	}
}
