// Package model provides shared state management for gonlp estimators.
//
// Trainers and trained models embed a StateManager by composition to track
// whether they have been fitted, and to produce a consistent NotFittedError
// when an unfitted model is used.
package model

import (
	"sync"

	"github.com/ezoic/gonlp/pkg/errors"
)

// StateManager tracks the fitted/not-fitted state of an estimator.
// Safe for concurrent use.
type StateManager struct {
	mu     sync.RWMutex
	fitted bool
}

// NewStateManager creates a StateManager in the not-fitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether the estimator has been trained.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the estimator as trained. Called by estimator
// implementations at the end of a successful Fit/Train.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
}

// Reset returns the estimator to the not-fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
}

// RequireFitted returns a NotFittedError naming the model and method if the
// estimator has not been trained, nil otherwise.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
