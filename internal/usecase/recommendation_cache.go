package usecase

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/metrics"
)

// DefaultCacheTTL is how long a ranked vendor list is served without recomputation
const DefaultCacheTTL = 5 * time.Minute

// RecommendationCacheConfig holds configuration for the recommendation cache
type RecommendationCacheConfig struct {
	TTL time.Duration
}

// RecommendationCache memoizes the sorted output of a VendorRanker.
// Vendor attributes may be stale for up to one TTL.
type RecommendationCache struct {
	ranker VendorRanker
	store  domain.RecommendationStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRecommendationCache creates a cache in front of ranker
func NewRecommendationCache(
	ranker VendorRanker,
	store domain.RecommendationStore,
	config RecommendationCacheConfig,
	logger zerolog.Logger,
) *RecommendationCache {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &RecommendationCache{
		ranker: ranker,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "recommendation_cache").Logger(),
	}
}

// Rank returns the cached ranking for the candidate set and context,
// recomputing it on a miss or after expiry.
func (c *RecommendationCache) Rank(
	ctx context.Context,
	userID string,
	candidates []domain.Vendor,
	userLocation domain.Coordinate,
	rc domain.RecommendationContext,
	prefs domain.UserPreferences,
) []domain.RecommendationResult {
	key := buildCacheKey(candidates, userID, rc)

	cached, err := c.store.Get(ctx, key)
	if err == nil {
		metrics.RecommendationCacheHits.Inc()
		c.logger.Debug().Str("user_id", userID).Int("results", len(cached)).Msg("cache hit")
		return slices.Clone(cached)
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		c.logger.Warn().Err(err).Msg("cache read failed")
	}

	metrics.RecommendationCacheMisses.Inc()
	c.logger.Debug().Str("user_id", userID).Int("candidates", len(candidates)).Msg("cache miss")

	results := c.ranker.Rank(ctx, candidates, userLocation, rc, prefs)

	if err := c.store.Set(ctx, key, slices.Clone(results), c.ttl); err != nil {
		// Log but don't fail if caching fails
		c.logger.Warn().Err(err).Msg("cache write failed")
	}

	return results
}

// Clear empties the store unconditionally
func (c *RecommendationCache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// buildCacheKey fingerprints a request.
// Format: "recs:{len}:{id}...|{userID}|{context tag}" with ids sorted and
// length-prefixed so that no two distinct id sets join to the same key.
func buildCacheKey(candidates []domain.Vendor, userID string, rc domain.RecommendationContext) string {
	ids := make([]string, len(candidates))
	for i, v := range candidates {
		ids[i] = v.ID
	}
	slices.Sort(ids)

	var b strings.Builder
	b.WriteString("recs:")
	for _, id := range ids {
		b.WriteString(strconv.Itoa(len(id)))
		b.WriteByte(':')
		b.WriteString(id)
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(len(userID)))
	b.WriteByte(':')
	b.WriteString(userID)
	b.WriteByte('|')
	b.WriteString(rc.Tag())

	return b.String()
}
