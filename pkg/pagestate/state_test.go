package pagestate

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	s := New("accounts", nil)

	if s.EntityType != "accounts" {
		t.Fatalf("EntityType = %q, want %q", s.EntityType, "accounts")
	}
	if s.ID != nil {
		t.Fatalf("ID = %v, want nil", s.ID)
	}
	if s.Pages != 0 {
		t.Fatalf("Pages = %d, want 0", s.Pages)
	}
	if len(s.Items) != 0 {
		t.Fatalf("Items = %v, want empty", s.Items)
	}
	if !s.Cursor.IsNeverFetched() {
		t.Fatalf("Cursor = %v, want NeverFetched", s.Cursor)
	}
	if s.Terminal() {
		t.Fatal("freshly constructed state must not be terminal")
	}
}

func TestNew_NullIDIsDistinct(t *testing.T) {
	byNil := New("repos", nil)
	id := uuid.New()
	byID := New("repos", id)

	if byNil.Key == byID.Key {
		t.Fatal("nil id and concrete id must produce distinct keys")
	}
}

func TestAdvance_AppendsItemsAndIncrementsPages(t *testing.T) {
	s := New("accounts", nil)

	s.Advance([]any{1, 2}, Next("cursor-1"))
	if s.Pages != 1 {
		t.Fatalf("Pages = %d, want 1", s.Pages)
	}
	if len(s.Items) != 2 {
		t.Fatalf("Items = %v, want 2 elements", s.Items)
	}
	tok, ok := s.Cursor.Token()
	if !ok || tok != "cursor-1" {
		t.Fatalf("Token() = (%v, %v), want (\"cursor-1\", true)", tok, ok)
	}

	s.Advance([]any{3}, Done())
	if s.Pages != 2 {
		t.Fatalf("Pages = %d, want 2", s.Pages)
	}
	if len(s.Items) != 3 {
		t.Fatalf("Items = %v, want 3 elements", s.Items)
	}
	if !s.Terminal() {
		t.Fatal("state with Done cursor must be terminal")
	}
}

func TestFail_PreservesAccumulatedItems(t *testing.T) {
	s := New("accounts", nil)
	s.Advance([]any{1}, Next("c1"))

	want := errors.New("boom")
	s.Fail(want)

	if !s.Terminal() {
		t.Fatal("failed state must be terminal")
	}
	if !errors.Is(s.Exception, want) {
		t.Fatalf("Exception = %v, want %v", s.Exception, want)
	}
	if len(s.Items) != 1 {
		t.Fatalf("Items = %v, want partial items preserved", s.Items)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	s := New("accounts", nil)
	s.Advance([]any{1, 2}, Next("c1"))

	clone := s.Clone()
	clone.Items[0] = 99

	if s.Items[0] == 99 {
		t.Fatal("mutating clone's items must not affect original")
	}
	if clone.Key != s.Key {
		t.Fatalf("clone key = %v, want %v", clone.Key, s.Key)
	}
}

func TestCursor_EqualAndToken(t *testing.T) {
	a := Next("x")
	b := Next("x")
	c := Next("y")

	if !a.Equal(b) {
		t.Fatal("equal tokens must compare equal")
	}
	if a.Equal(c) {
		t.Fatal("different tokens must not compare equal")
	}
	if NeverFetched().Equal(Done()) {
		t.Fatal("NeverFetched and Done must not compare equal")
	}
	if !Done().Equal(Done()) {
		t.Fatal("Done must equal Done")
	}

	if Next(nil) != Done() {
		t.Fatal("Next(nil) must collapse to Done, per spec.md missing-key convention")
	}
}
