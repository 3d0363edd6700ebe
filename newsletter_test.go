package chainpost

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSubscriberStoreAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.json")
	s := NewSubscriberStore(path)

	sub, err := s.Add("  Reader@Example.COM ", "Reader")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if sub.Email != "reader@example.com" {
		t.Errorf("Email = %q, want lowercased/trimmed", sub.Email)
	}
	if sub.CreatedAt == "" {
		t.Error("CreatedAt should be set")
	}

	// The write survives a reopen.
	reopened := NewSubscriberStore(path)
	subs, err := reopened.List()
	if err != nil || len(subs) != 1 {
		t.Fatalf("List after reopen = %v, %v; want one subscriber", subs, err)
	}
}

func TestSubscriberStoreDuplicate(t *testing.T) {
	s := NewSubscriberStore(filepath.Join(t.TempDir(), "subscribers.json"))
	if _, err := s.Add("reader@example.com", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := s.Add("READER@example.com", ""); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate Add = %v, want ErrDuplicateEmail", err)
	}
}

func TestSubscriberStoreInvalidEmail(t *testing.T) {
	s := NewSubscriberStore(filepath.Join(t.TempDir(), "subscribers.json"))
	cases := []string{"", "no-at-sign", strings.Repeat("a", 250) + "@example.com"}
	for _, email := range cases {
		if _, err := s.Add(email, ""); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Add(%q) = %v, want ErrInvalidEmail", email, err)
		}
	}
}
