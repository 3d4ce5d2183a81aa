package memory

import (
	"testing"

	"mediwise-quiz-service/internal/session"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	store.Put("s1", session.New())
	if _, ok := store.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}
