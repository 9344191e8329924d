package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := NotFoundf("task %s", "abc")

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrAuthorization) {
		t.Fatalf("NotFound must not match ErrAuthorization")
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("kind lost after re-wrapping: %v", wrapped)
	}
}

func TestErrorMessageIncludesKindAndDetail(t *testing.T) {
	err := Authorizationf("task %s belongs to another session", "abc")

	want := "not authorized: task abc belongs to another session"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestBareKindMessage(t *testing.T) {
	err := &Error{Kind: ErrFeed}
	if err.Error() != "feed error" {
		t.Fatalf("got %q", err.Error())
	}
}
