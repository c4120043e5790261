package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/cache"
)

type serviceFixture struct {
	svc    *RecommendationService
	repo   *mockPreferenceRepository
	ranker *countingRanker
	clock  *manualClock
}

func newServiceFixture(t *testing.T, config RecommendationServiceConfig) serviceFixture {
	t.Helper()

	clock := &manualClock{now: postNow}
	store := cache.NewMemoryCache[[]domain.RecommendationResult](0,
		cache.WithClock[[]domain.RecommendationResult](clock.Now))
	t.Cleanup(store.Close)

	repo := newMockPreferenceRepository()
	ranker := newCountingRanker()
	if config.Now == nil {
		config.Now = clock.Now
	}

	svc := NewRecommendationService(
		newTestPreferenceService(t, repo),
		NewRecommendationCache(ranker, store, RecommendationCacheConfig{TTL: 5 * time.Minute}, zerolog.Nop()),
		NewPostRankingEngine(PostRankingConfig{Now: clock.Now}),
		config,
		zerolog.Nop(),
	)
	t.Cleanup(svc.Close)

	return serviceFixture{svc: svc, repo: repo, ranker: ranker, clock: clock}
}

func TestGenerateRecommendations_CachedWithinTTL(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})
	ctx := context.Background()
	candidates := []domain.Vendor{italianVendor("a", 100, true), italianVendor("b", 900, true)}

	f.svc.GenerateRecommendations(ctx, "u1", candidates, testOrigin, lunch)
	f.clock.Advance(2 * time.Minute)
	f.svc.GenerateRecommendations(ctx, "u1", candidates, testOrigin, lunch)
	assert.Equal(t, 1, f.ranker.Calls())

	f.clock.Advance(3 * time.Minute)
	f.svc.GenerateRecommendations(ctx, "u1", candidates, testOrigin, lunch)
	assert.Equal(t, 2, f.ranker.Calls())
}

func TestGenerateRecommendations_UsesStoredProfile(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})
	f.repo.profiles["u1"] = italianPrefs()

	candidates := []domain.Vendor{italianVendor("y", 150, false), italianVendor("x", 150, true)}
	results := f.svc.GenerateRecommendations(context.Background(), "u1", candidates, testOrigin, lunch)

	require.Len(t, results, 2)
	assert.Equal(t, "x", results[0].Vendor.ID)
	assert.InDelta(t, 95.0, results[0].Breakdown.Personalization, 1e-9)
	assert.Equal(t, 0.0, results[1].Breakdown.BusinessHealth)
}

func TestGenerateRecommendations_AnonymousUsesDefaults(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})
	f.repo.profiles[""] = italianPrefs()

	results := f.svc.GenerateRecommendations(context.Background(), "", []domain.Vendor{italianVendor("x", 150, true)}, testOrigin, lunch)

	require.Len(t, results, 1)
	// base plus the mid-range price match of the neutral profile
	assert.InDelta(t, 45.0, results[0].Breakdown.Personalization, 1e-9)
	assert.Equal(t, 0, f.repo.getCount())
}

func TestGenerateRecommendations_EmptyCandidates(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})

	results := f.svc.GenerateRecommendations(context.Background(), "u1", nil, testOrigin, lunch)

	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, f.ranker.Calls())
}

func TestClearCache_ForcesRecompute(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})
	ctx := context.Background()
	candidates := []domain.Vendor{italianVendor("a", 100, true)}

	f.svc.GenerateRecommendations(ctx, "u1", candidates, testOrigin, lunch)
	require.NoError(t, f.svc.ClearCache(ctx))
	f.svc.GenerateRecommendations(ctx, "u1", candidates, testOrigin, lunch)

	assert.Equal(t, 2, f.ranker.Calls())
}

func TestRankPosts_MarkAsShownDemotes(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})
	ctx := context.Background()

	posts := []domain.Post{
		{ID: "a", LikeCount: 3, ViewCount: 10, CreatedAt: postNow},
		{ID: "b", LikeCount: 3, ViewCount: 10, CreatedAt: postNow},
	}

	before := f.svc.RankPosts(ctx, "u1", posts)
	require.Len(t, before, 2)
	assert.Equal(t, "a", before[0].ID)

	f.svc.MarkAsShown("u1", "a")
	after := f.svc.RankPosts(ctx, "u1", posts)
	assert.Equal(t, "b", after[0].ID)

	other := f.svc.RankPosts(ctx, "u2", posts)
	assert.Equal(t, "a", other[0].ID, "trackers are per user")
}

func TestRankPosts_IdleTrackersExpire(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{SessionTTL: 10 * time.Minute})
	ctx := context.Background()

	posts := []domain.Post{
		{ID: "a", LikeCount: 3, ViewCount: 10, CreatedAt: postNow},
		{ID: "b", LikeCount: 3, ViewCount: 10, CreatedAt: postNow},
	}

	f.svc.MarkAsShown("u1", "a")
	f.clock.Advance(9 * time.Minute)
	assert.Equal(t, "b", f.svc.RankPosts(ctx, "u1", posts)[0].ID, "access keeps the tracker alive")

	f.clock.Advance(9 * time.Minute)
	assert.Equal(t, "b", f.svc.RankPosts(ctx, "u1", posts)[0].ID)

	f.clock.Advance(10 * time.Minute)
	assert.Equal(t, "a", f.svc.RankPosts(ctx, "u1", posts)[0].ID, "idle tracker is dropped")
}

func TestRankPostsDetailed_CreatorWindow(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{CreatorWindow: 5})
	ctx := context.Background()

	posts := []domain.Post{
		{ID: "a", AuthorID: "chef", LikeCount: 3, ViewCount: 10, CreatedAt: postNow},
		{ID: "b", AuthorID: "cook", LikeCount: 3, ViewCount: 10, CreatedAt: postNow},
	}

	f.svc.MarkCreatorShown("u1", "chef")
	ranked := f.svc.RankPostsDetailed(ctx, "u1", posts)

	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Post.ID)
	assert.Equal(t, DefaultCreatorPenalty, ranked[1].Breakdown.Diversity)
}

func TestUpdatePreferences_IdempotentAndAffectsAffinity(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})
	ctx := context.Background()

	once := f.svc.UpdatePreferences(ctx, "u1", likedPost)
	twice := f.svc.UpdatePreferences(ctx, "u1", likedPost)
	assert.Equal(t, once, twice)
	assert.Equal(t, twice, f.svc.Preferences(ctx, "u1"))

	posts := []domain.Post{
		{ID: "plain", CreatedAt: postNow},
		{ID: "match", AuthorID: "chef-1", MealType: "brunch", CreatedAt: postNow},
	}
	ranked := f.svc.RankPostsDetailed(ctx, "u1", posts)
	require.Len(t, ranked, 2)
	assert.Equal(t, "match", ranked[0].Post.ID)
	assert.InDelta(t, 0.3, ranked[0].Breakdown.Affinity, 1e-9)
}

func TestVendorProfileOperations(t *testing.T) {
	f := newServiceFixture(t, RecommendationServiceConfig{})
	ctx := context.Background()

	f.svc.SetVendorProfile(ctx, "u1", []string{"Thai"}, 2, []string{"vegan"})
	prefs := f.svc.LearnVendor(ctx, "u1", domain.Vendor{ID: "v", Cuisine: strPtr("Italian")})

	assert.Equal(t, []string{"Thai", "Italian"}, prefs.FavoriteCuisines)
	assert.Equal(t, []string{"vegan"}, prefs.DietaryTags)

	stored, ok := f.repo.stored("u1")
	require.True(t, ok)
	assert.Equal(t, prefs.FavoriteCuisines, stored.FavoriteCuisines)
}
