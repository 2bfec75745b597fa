// Package identity owns the assistant's mutable identity and persists
// every change.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Accents lists the supported accent codes.
var Accents = []string{"es", "es-us", "en", "en-us"}

var (
	ErrEmptyName        = errors.New("assistant name must not be empty")
	ErrUnknownAccent    = errors.New("unknown accent")
	ErrInvalidThreshold = errors.New("energy threshold must be > 0")
)

// Identity is a point-in-time copy of the assistant identity.
type Identity struct {
	Name            string
	Accent          string
	EnergyThreshold float64
	VoiceID         string
}

type document struct {
	AssistantName   string  `json:"assistant_name"`
	Accent          string  `json:"accent"`
	EnergyThreshold float64 `json:"energy_threshold"`
	VoiceID         string  `json:"selected_voice_id"`
}

// Store guards the current identity. Reads take the read lock; setters
// validate, update, and persist under the write lock.
type Store struct {
	mu       sync.RWMutex
	current  Identity
	defaults Identity
	path     string
}

// Open loads the identity document at path over defaults. A missing file is
// not an error. An empty path keeps the store in memory only.
func Open(path string, defaults Identity) (*Store, error) {
	if err := validate(defaults); err != nil {
		return nil, fmt.Errorf("invalid identity defaults: %w", err)
	}

	s := &Store{current: defaults, defaults: defaults, path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read identity %q: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse identity %q: %w", path, err)
	}

	loaded := defaults
	if name := strings.TrimSpace(doc.AssistantName); name != "" {
		loaded.Name = name
	}
	if slices.Contains(Accents, doc.Accent) {
		loaded.Accent = doc.Accent
	}
	if doc.EnergyThreshold > 0 {
		loaded.EnergyThreshold = doc.EnergyThreshold
	}
	loaded.VoiceID = strings.TrimSpace(doc.VoiceID)
	s.current = loaded
	return s, nil
}

// Path returns the backing document path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns the current identity.
func (s *Store) Snapshot() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Name returns the current assistant name.
func (s *Store) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Name
}

// SetName renames the assistant.
func (s *Store) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return s.update(func(id *Identity) { id.Name = name })
}

// SetAccent changes the speech accent.
func (s *Store) SetAccent(accent string) error {
	accent = strings.ToLower(strings.TrimSpace(accent))
	if !slices.Contains(Accents, accent) {
		return fmt.Errorf("%w: %q", ErrUnknownAccent, accent)
	}
	return s.update(func(id *Identity) { id.Accent = accent })
}

// SetEnergyThreshold stores the calibrated microphone energy threshold.
func (s *Store) SetEnergyThreshold(threshold float64) error {
	if threshold <= 0 {
		return ErrInvalidThreshold
	}
	return s.update(func(id *Identity) { id.EnergyThreshold = threshold })
}

// SetVoice selects the synthesizer voice id. Empty restores the default voice.
func (s *Store) SetVoice(voiceID string) error {
	voiceID = strings.TrimSpace(voiceID)
	return s.update(func(id *Identity) { id.VoiceID = voiceID })
}

// Reset restores the defaults the store was opened with.
func (s *Store) Reset() error {
	return s.update(func(id *Identity) { *id = s.defaults })
}

func (s *Store) update(mutate func(*Identity)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	mutate(&next)
	if err := s.save(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *Store) save(id Identity) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(document{
		AssistantName:   id.Name,
		Accent:          id.Accent,
		EnergyThreshold: id.EnergyThreshold,
		VoiceID:         id.VoiceID,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".identity-*.json")
	if err != nil {
		return fmt.Errorf("create identity temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close identity: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace identity %q: %w", s.path, err)
	}
	return nil
}

func validate(id Identity) error {
	if strings.TrimSpace(id.Name) == "" {
		return ErrEmptyName
	}
	if !slices.Contains(Accents, id.Accent) {
		return fmt.Errorf("%w: %q", ErrUnknownAccent, id.Accent)
	}
	if id.EnergyThreshold <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}
