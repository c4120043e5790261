package domain

import (
	"context"
	"time"
)

// RecommendationStore holds ranked vendor lists keyed by request fingerprint
type RecommendationStore interface {
	Get(ctx context.Context, key string) ([]RecommendationResult, error)
	Set(ctx context.Context, key string, value []RecommendationResult, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// PreferenceRepository is the durable owner of user profiles.
// Get returns ErrPreferencesNotFound when the user has no profile.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*UserPreferences, error)
	Put(ctx context.Context, userID string, prefs *UserPreferences) error
}
