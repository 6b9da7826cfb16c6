package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// State is the durable session state.
// The JSON keys are a fixed contract shared with prior releases.
type State struct {
	// Locked is the persisted lock posture.
	Locked bool `json:"locked"`

	// LastNonce is the last issued outbound nonce counter.
	LastNonce uint64 `json:"last_nonce"`
}

// StateStore manages persistence of session state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a new state store backed by path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the backing file path.
func (s *StateStore) Path() string {
	return s.path
}

// Save persists the state to disk.
func (s *StateStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(state)
}

// write persists without taking the lock. Callers must hold s.mu.
func (s *StateStore) write(state State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the state from disk.
//
// A missing file yields the zero state. A corrupted file is renamed to
// "<path>_corrupted", replaced with defaults, and also yields the zero
// state - startup must never fail on a bad state document.
func (s *StateStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// Keep the bad document around for diagnosis, then reset.
		_ = os.Rename(s.path, s.path+"_corrupted")
		if werr := s.write(State{}); werr != nil {
			return State{}, werr
		}
		return State{}, nil
	}

	return state, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
