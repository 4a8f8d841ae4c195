package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cartsync/internal/cart"
)

// sessionFile is the on-disk session format.
//
//	identity_id: 0192f0c4-...
//	anonymous: true
//	signed_in_at: 2026-10-14T09:00:00Z
type sessionFile struct {
	cart.Identity `yaml:",inline"`
	SignedInAt    time.Time `yaml:"signed_in_at"`
}

// session holds the current identity, persists it and publishes changes.
// An empty path keeps the session in memory only.
type session struct {
	// pubMu orders changes: it is held across persist, update and publish
	// so subscribers see changes in the order current took them.
	// Subscriber callbacks must not call set.
	pubMu sync.Mutex

	mu       sync.Mutex
	path     string
	clock    clockwork.Clock
	current  *cart.Identity
	notifier Notifier
}

func newSession(path string, clock clockwork.Clock) (*session, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &session{path: strings.TrimSpace(path), clock: clock}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session %s: %w", s.path, err)
	}

	var f sessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse session %s: %w", s.path, err)
	}
	if f.Identity.IsZero() {
		return nil
	}
	id := f.Identity
	s.current = &id
	return nil
}

func (s *session) get() *cart.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyIdentity(s.current)
}

// set replaces the current identity, persists it, then publishes it.
// Publishing happens after mu is released, under pubMu.
func (s *session) set(id *cart.Identity) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if err := s.persist(id); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = copyIdentity(id)
	s.mu.Unlock()

	s.notifier.Publish(id)
	return nil
}

func (s *session) persist(id *cart.Identity) error {
	if s.path == "" {
		return nil
	}
	if id == nil {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove session %s: %w", s.path, err)
		}
		return nil
	}

	data, err := yaml.Marshal(sessionFile{Identity: *id, SignedInAt: s.clock.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// Write then rename so a crash never leaves a truncated session.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename session %s: %w", s.path, err)
	}
	return nil
}

// subscribe registers fn and delivers the current identity to it.
func (s *session) subscribe(fn func(*cart.Identity)) func() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	cancel := s.notifier.Subscribe(fn)
	fn(s.get())
	return cancel
}
