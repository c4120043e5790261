package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/cache"
	"github.com/tastemap/backend/internal/infrastructure/metrics"
)

// RecommendationServiceConfig holds configuration for the recommendation service
type RecommendationServiceConfig struct {
	// DiversityWindow is the number of recently shown posts remembered per user
	DiversityWindow int
	// CreatorWindow is the number of recently shown creators remembered per user; 0 disables it
	CreatorWindow int
	// SessionTTL drops the tracker of a user idle for this long
	SessionTTL time.Duration
	Now        func() time.Time
}

// RecommendationService is the entry point of the ranking core.
// Flow: load preferences -> rank (cached for vendors) -> return
type RecommendationService struct {
	preferences *PreferenceService
	vendors     *RecommendationCache
	posts       *PostRankingEngine
	logger      zerolog.Logger

	diversityWindow int
	creatorWindow   int
	sessionTTL      time.Duration

	mu       sync.Mutex
	trackers *cache.MemoryCache[*DiversityTracker]
}

// NewRecommendationService creates the orchestrator with its collaborators
func NewRecommendationService(
	preferences *PreferenceService,
	vendors *RecommendationCache,
	posts *PostRankingEngine,
	config RecommendationServiceConfig,
	logger zerolog.Logger,
) *RecommendationService {
	window := config.DiversityWindow
	if window <= 0 {
		window = DefaultDiversityWindow
	}

	creatorWindow := config.CreatorWindow
	if creatorWindow < 0 {
		creatorWindow = 0
	}

	sessionTTL := config.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &RecommendationService{
		preferences:     preferences,
		vendors:         vendors,
		posts:           posts,
		logger:          logger.With().Str("component", "recommendation_service").Logger(),
		diversityWindow: window,
		creatorWindow:   creatorWindow,
		sessionTTL:      sessionTTL,
		trackers:        cache.NewMemoryCache[*DiversityTracker](sessionTTL, cache.WithClock[*DiversityTracker](now)),
	}
}

// Close stops the session janitors of the service and its preference store
func (s *RecommendationService) Close() {
	s.trackers.Close()
	s.preferences.Close()
}

// GenerateRecommendations ranks candidate vendors for userID.
// An empty userID is anonymous and ranks with the neutral profile.
func (s *RecommendationService) GenerateRecommendations(
	ctx context.Context,
	userID string,
	candidates []domain.Vendor,
	userLocation domain.Coordinate,
	rc domain.RecommendationContext,
) []domain.RecommendationResult {
	if len(candidates) == 0 {
		return []domain.RecommendationResult{}
	}

	prefs := s.preferences.Load(ctx, userID)
	results := s.vendors.Rank(ctx, userID, candidates, userLocation, rc, prefs)

	s.logger.Debug().
		Str("user_id", userID).
		Str("meal_period", string(rc.MealPeriod)).
		Int("candidates", len(candidates)).
		Int("results", len(results)).
		Msg("generated vendor recommendations")

	return results
}

// RankPosts orders posts for the feed of userID
func (s *RecommendationService) RankPosts(ctx context.Context, userID string, posts []domain.Post) []domain.Post {
	ranked := s.RankPostsDetailed(ctx, userID, posts)

	out := make([]domain.Post, len(ranked))
	for i, r := range ranked {
		out[i] = r.Post
	}
	return out
}

// RankPostsDetailed orders posts and keeps their score breakdowns
func (s *RecommendationService) RankPostsDetailed(ctx context.Context, userID string, posts []domain.Post) []domain.RankedPost {
	if len(posts) == 0 {
		return []domain.RankedPost{}
	}

	prefs := s.preferences.Load(ctx, userID)
	return s.posts.Rank(posts, prefs, s.tracker(userID))
}

// MarkAsShown records that postID was surfaced to userID
func (s *RecommendationService) MarkAsShown(userID, postID string) {
	s.tracker(userID).MarkAsShown(postID)
}

// MarkCreatorShown records that a post by authorID was surfaced to userID
func (s *RecommendationService) MarkCreatorShown(userID, authorID string) {
	s.tracker(userID).MarkCreatorShown(authorID)
}

// UpdatePreferences learns from a post the user liked
func (s *RecommendationService) UpdatePreferences(ctx context.Context, userID string, likedPost domain.Post) domain.UserPreferences {
	return s.preferences.Learn(ctx, userID, likedPost)
}

// LearnVendor learns from a vendor the user favorited
func (s *RecommendationService) LearnVendor(ctx context.Context, userID string, vendor domain.Vendor) domain.UserPreferences {
	return s.preferences.LearnVendor(ctx, userID, vendor)
}

// SetVendorProfile replaces the cuisines, price tier and dietary tags of userID
func (s *RecommendationService) SetVendorProfile(
	ctx context.Context,
	userID string,
	cuisines []string,
	priceTier int,
	dietaryTags []string,
) domain.UserPreferences {
	return s.preferences.SetVendorProfile(ctx, userID, cuisines, priceTier, dietaryTags)
}

// Preferences returns the current profile of userID
func (s *RecommendationService) Preferences(ctx context.Context, userID string) domain.UserPreferences {
	return s.preferences.Load(ctx, userID)
}

// ClearCache empties the vendor recommendation cache
func (s *RecommendationService) ClearCache(ctx context.Context) error {
	if err := s.vendors.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("recommendation cache cleared")
	return nil
}

// tracker returns the diversity tracker of userID; anonymous users share one.
// Each access restarts the idle TTL.
func (s *RecommendationService) tracker(userID string) *DiversityTracker {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.trackers.Get(ctx, userID)
	if err != nil {
		t = NewDiversityTracker(s.diversityWindow, s.creatorWindow)
	}
	_ = s.trackers.Set(ctx, userID, t, s.sessionTTL)
	metrics.ActiveSessions.WithLabelValues("diversity").Set(float64(s.trackers.Size()))
	return t
}
