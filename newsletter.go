package chainpost

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const maxEmailLength = 254

// SubscriberStore is a newsletter signup list backed by a single JSON file.
// A mutex serializes the read-modify-write cycle; the list is small enough
// that rewriting it whole on every signup is fine.
type SubscriberStore struct {
	mu   sync.Mutex
	path string
}

// NewSubscriberStore returns a store persisting to path. The file is created
// on first signup.
func NewSubscriberStore(path string) *SubscriberStore {
	return &SubscriberStore{path: path}
}

// Add validates and appends a signup. Emails are lowercased and trimmed
// before the uniqueness check; invalid emails yield ErrInvalidEmail and
// existing ones ErrDuplicateEmail.
func (s *SubscriberStore) Add(email, name string) (Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || len(email) > maxEmailLength {
		return Subscriber{}, ErrInvalidEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load()
	if err != nil {
		return Subscriber{}, err
	}
	for _, existing := range subs {
		if existing.Email == email {
			return Subscriber{}, ErrDuplicateEmail
		}
	}
	sub := Subscriber{
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	subs = append(subs, sub)
	if err := s.save(subs); err != nil {
		return Subscriber{}, err
	}
	return sub, nil
}

// List returns all signups in insertion order.
func (s *SubscriberStore) List() ([]Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SubscriberStore) load() ([]Subscriber, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var subs []Subscriber
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *SubscriberStore) save(subs []Subscriber) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
