// Package preferences holds the durable stores of learned user profiles.
package preferences

import (
	"context"
	"fmt"
	"sync"

	"github.com/tastemap/backend/internal/domain"
)

// MemoryRepository is a process-local PreferenceRepository.
// Profiles do not survive a restart.
type MemoryRepository struct {
	profiles map[string]domain.UserPreferences
	mutex    sync.RWMutex
}

var _ domain.PreferenceRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: make(map[string]domain.UserPreferences),
	}
}

// Get returns a copy of the stored profile
func (r *MemoryRepository) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	prefs, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrPreferencesNotFound
	}

	out := prefs.Clone()
	return &out, nil
}

// Put stores a copy of prefs
func (r *MemoryRepository) Put(ctx context.Context, userID string, prefs *domain.UserPreferences) error {
	if err := validatePut(userID, prefs); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.profiles[userID] = prefs.Clone()
	return nil
}

func validatePut(userID string, prefs *domain.UserPreferences) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrInvalidRequest)
	}
	if prefs == nil {
		return fmt.Errorf("%w: nil profile", domain.ErrInvalidRequest)
	}
	return nil
}
