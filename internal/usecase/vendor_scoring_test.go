package usecase

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastemap/backend/internal/domain"
)

var testOrigin = domain.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

// northOf returns a coordinate the given distance due north of origin
func northOf(origin domain.Coordinate, meters float64) domain.Coordinate {
	return domain.Coordinate{
		Latitude:  origin.Latitude + (meters/earthRadiusMeters)*180/math.Pi,
		Longitude: origin.Longitude,
	}
}

func strPtr(s string) *string { return &s }

func testNow(hour int) time.Time {
	return time.Date(2026, 5, 4, hour, 0, 0, 0, time.UTC)
}

func italianVendor(id string, meters float64, open bool) domain.Vendor {
	return domain.Vendor{
		ID:          id,
		Name:        "Trattoria " + id,
		Location:    northOf(testOrigin, meters),
		Rating:      4.8,
		ReviewCount: 5000,
		PriceLevel:  "$$",
		Cuisine:     strPtr("Italian"),
		Category:    domain.CategoryRestaurant,
		IsOpen:      open,
		DeliveryFee: 2.99,
	}
}

func italianPrefs() domain.UserPreferences {
	prefs := domain.DefaultPreferences()
	prefs.FavoriteCuisines = []string{"Italian"}
	prefs.PreferredPriceTier = 2
	return prefs
}

var lunch = domain.RecommendationContext{TimeOfDay: domain.Afternoon, MealPeriod: domain.Lunch}

func TestVendorWeightsSumToOne(t *testing.T) {
	sum := weightPersonalization + weightQuality + weightProximity + weightContext +
		weightSocialProof + weightFreshness + weightBusinessHealth
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestProximityScore_Boundaries(t *testing.T) {
	tests := []struct {
		meters float64
		want   float64
	}{
		{0, 100},
		{199, 100},
		{200, 90},
		{499, 90},
		{500, 70},
		{999, 70},
		{1000, 50},
		{1999, 50},
		{2000, 30},
		{2999, 30},
		{3000, 10},
		{25000, 10},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.0fm", tt.meters), func(t *testing.T) {
			assert.Equal(t, tt.want, proximityScore(tt.meters))
		})
	}
}

func TestPersonalizationScore(t *testing.T) {
	tests := []struct {
		name    string
		cuisine *string
		price   string
		prefs   func() domain.UserPreferences
		want    float64
	}{
		{
			name:    "exact cuisine and price match",
			cuisine: strPtr("Italian"),
			price:   "$$",
			prefs:   italianPrefs,
			want:    95,
		},
		{
			name:    "case-insensitive exact match",
			cuisine: strPtr("italian"),
			price:   "",
			prefs:   italianPrefs,
			want:    80,
		},
		{
			name:    "substring match gives partial bonus",
			cuisine: strPtr("Italian Pizza"),
			price:   "",
			prefs:   italianPrefs,
			want:    55,
		},
		{
			name:    "price off by one",
			cuisine: nil,
			price:   "$$$",
			prefs:   italianPrefs,
			want:    38,
		},
		{
			name:    "price off by two is penalized",
			cuisine: nil,
			price:   "$$$$",
			prefs:   italianPrefs,
			want:    25,
		},
		{
			name:    "dietary profile bonus",
			cuisine: strPtr("Thai"),
			price:   "",
			prefs: func() domain.UserPreferences {
				p := domain.DefaultPreferences()
				p.DietaryTags = []string{"vegan"}
				return p
			},
			want: 35,
		},
		{
			name:    "clamped at 100",
			cuisine: strPtr("Italian"),
			price:   "$$",
			prefs: func() domain.UserPreferences {
				p := italianPrefs()
				p.DietaryTags = []string{"halal"}
				return p
			},
			want: 100,
		},
		{
			name:    "missing cuisine with neutral profile",
			cuisine: nil,
			price:   "",
			prefs:   domain.DefaultPreferences,
			want:    30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor := domain.Vendor{ID: "v", Cuisine: tt.cuisine, PriceLevel: tt.price}
			assert.InDelta(t, tt.want, personalizationScore(vendor, tt.prefs()), 1e-9)
		})
	}
}

func TestQualityScore(t *testing.T) {
	t.Run("formula", func(t *testing.T) {
		vendor := domain.Vendor{Rating: 4.8, ReviewCount: 5000}
		want := 4.8/5*60 + math.Log10(5001)/4*40
		assert.InDelta(t, want, qualityScore(vendor), 1e-9)
	})

	t.Run("zero reviews are smoothed", func(t *testing.T) {
		vendor := domain.Vendor{Rating: 5, ReviewCount: 0}
		assert.InDelta(t, 60.0, qualityScore(vendor), 1e-9)
	})

	t.Run("review volume saturates", func(t *testing.T) {
		vendor := domain.Vendor{Rating: 5, ReviewCount: 1_000_000}
		assert.InDelta(t, 100.0, qualityScore(vendor), 1e-9)
	})
}

func TestContextScore(t *testing.T) {
	tests := []struct {
		name   string
		vendor domain.Vendor
		rc     domain.RecommendationContext
		want   float64
	}{
		{"cafe at breakfast", domain.Vendor{Category: domain.CategoryCafe}, domain.RecommendationContext{MealPeriod: domain.Breakfast}, 80},
		{"restaurant at lunch", domain.Vendor{Category: domain.CategoryRestaurant}, lunch, 80},
		{"restaurant at dinner", domain.Vendor{Category: domain.CategoryRestaurant}, domain.RecommendationContext{MealPeriod: domain.Dinner}, 70},
		{"open at late night", domain.Vendor{Category: domain.CategoryRestaurant, IsOpen: true}, domain.RecommendationContext{MealPeriod: domain.LateNight}, 70},
		{"closed at late night", domain.Vendor{Category: domain.CategoryRestaurant}, domain.RecommendationContext{MealPeriod: domain.LateNight}, 30},
		{"grocery outside grocery search", domain.Vendor{Category: domain.CategoryGrocery}, lunch, 10},
		{"grocery in grocery search", domain.Vendor{Category: domain.CategoryGrocery}, domain.RecommendationContext{MealPeriod: domain.Lunch, GrocerySearch: true}, 30},
		{"free delivery in rain", domain.Vendor{Category: domain.CategoryRestaurant}, domain.RecommendationContext{MealPeriod: domain.Lunch, Weather: "Rain"}, 90},
		{"paid delivery in rain", domain.Vendor{Category: domain.CategoryRestaurant, DeliveryFee: 1}, domain.RecommendationContext{MealPeriod: domain.Lunch, Weather: "rain"}, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, contextScore(tt.vendor, tt.rc), 1e-9)
		})
	}
}

func TestSocialProofScore(t *testing.T) {
	assert.InDelta(t, 40.0, socialProofScore(domain.Vendor{Social: &domain.SocialProof{}}), 1e-9)
	assert.InDelta(t, 80.0, socialProofScore(domain.Vendor{Social: &domain.SocialProof{FriendsFavorited: 2}}), 1e-9)
	assert.InDelta(t, 100.0, socialProofScore(domain.Vendor{Social: &domain.SocialProof{FriendsFavorited: 10}}), 1e-9)
	assert.InDelta(t, 12.5, socialProofScore(domain.Vendor{ReviewCount: 1250}), 1e-9)
	assert.InDelta(t, 100.0, socialProofScore(domain.Vendor{ReviewCount: 50000}), 1e-9)
}

func TestFreshnessScore(t *testing.T) {
	assert.Equal(t, 100.0, freshnessScore(domain.Vendor{Badges: []string{"trending", "NEW"}}))
	assert.Equal(t, 80.0, freshnessScore(domain.Vendor{Badges: []string{"trending"}}))
	assert.Equal(t, 50.0, freshnessScore(domain.Vendor{}))
}

func TestBusinessHealthScore(t *testing.T) {
	t.Run("closed vendor is zero regardless of other fields", func(t *testing.T) {
		vendors := []domain.Vendor{
			{IsOpen: false},
			{IsOpen: false, DeliveryFee: 0, Rating: 5, Badges: []string{"new"}},
			{IsOpen: false, DeliveryFee: 4.5, Social: &domain.SocialProof{FriendsFavorited: 9}},
		}
		for _, v := range vendors {
			assert.Equal(t, 0.0, businessHealthScore(v))
		}
	})

	t.Run("open with delivery fee", func(t *testing.T) {
		assert.Equal(t, 80.0, businessHealthScore(domain.Vendor{IsOpen: true, DeliveryFee: 1.5}))
	})

	t.Run("open with free delivery", func(t *testing.T) {
		assert.Equal(t, 100.0, businessHealthScore(domain.Vendor{IsOpen: true}))
	})
}

func TestScore_BoundedComponents(t *testing.T) {
	engine := NewVendorScoringEngine(VendorScoringConfig{})
	prefs := italianPrefs()
	prefs.DietaryTags = []string{"vegan"}

	vendors := []domain.Vendor{
		{ID: "empty"},
		{ID: "extreme", Rating: 50, ReviewCount: math.MaxInt32, PriceLevel: "$$", Cuisine: strPtr("Italian"),
			Category: domain.CategoryCafe, IsOpen: true, Badges: []string{"new"},
			Social: &domain.SocialProof{FriendsFavorited: 1000}},
		{ID: "negative", Rating: -3, ReviewCount: -10, Social: &domain.SocialProof{FriendsFavorited: -4},
			Category: domain.CategoryGrocery},
		{ID: "far", Location: domain.Coordinate{Latitude: -33.86, Longitude: 151.21}, IsOpen: true},
	}
	contexts := []domain.RecommendationContext{
		CurrentContext(testNow(8)), CurrentContext(testNow(13)),
		CurrentContext(testNow(19)), CurrentContext(testNow(2)),
		{MealPeriod: domain.LateNight, Weather: "snow"},
	}

	for _, v := range vendors {
		for _, rc := range contexts {
			b := engine.Score(v, testOrigin, rc, prefs)
			for name, c := range map[string]float64{
				"personalization": b.Personalization, "quality": b.Quality, "proximity": b.Proximity,
				"context": b.Context, "social": b.SocialProof, "freshness": b.Freshness,
				"business": b.BusinessHealth, "total": b.Total,
			} {
				assert.GreaterOrEqual(t, c, 0.0, "%s/%s %s", v.ID, rc.MealPeriod, name)
				assert.LessOrEqual(t, c, 100.0, "%s/%s %s", v.ID, rc.MealPeriod, name)
			}
		}
	}
}

func TestScore_ScenarioOpenVersusClosed(t *testing.T) {
	engine := NewVendorScoringEngine(VendorScoringConfig{})
	prefs := italianPrefs()

	x := engine.Score(italianVendor("x", 150, true), testOrigin, lunch, prefs)
	y := engine.Score(italianVendor("y", 150, false), testOrigin, lunch, prefs)

	assert.InDelta(t, 95.0, x.Personalization, 1e-9)
	assert.InDelta(t, 4.8/5*60+math.Log10(5001)/4*40, x.Quality, 1e-9)
	assert.Equal(t, 100.0, x.Proximity)
	assert.GreaterOrEqual(t, x.Context, 70.0)
	assert.Equal(t, 0.0, y.BusinessHealth)
	assert.Greater(t, x.Total, y.Total)

	results := engine.Rank(context.Background(), []domain.Vendor{italianVendor("y", 150, false), italianVendor("x", 150, true)}, testOrigin, lunch, prefs)
	require.Len(t, results, 2)
	assert.Equal(t, "x", results[0].Vendor.ID)
	assert.Equal(t, "y", results[1].Vendor.ID)
}

func TestScore_ScenarioDistance(t *testing.T) {
	engine := NewVendorScoringEngine(VendorScoringConfig{})
	prefs := domain.DefaultPreferences()

	near := italianVendor("near", 100, true)
	far := italianVendor("far", 2500, true)

	nb := engine.Score(near, testOrigin, lunch, prefs)
	fb := engine.Score(far, testOrigin, lunch, prefs)
	assert.GreaterOrEqual(t, nb.Proximity-fb.Proximity, 60.0)

	results := engine.Rank(context.Background(), []domain.Vendor{far, near}, testOrigin, lunch, prefs)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Vendor.ID)
}

func TestRank_StableForEqualScores(t *testing.T) {
	engine := NewVendorScoringEngine(VendorScoringConfig{Workers: 3})

	candidates := make([]domain.Vendor, 10)
	for i := range candidates {
		candidates[i] = italianVendor(fmt.Sprintf("v%d", i), 300, true)
	}

	results := engine.Rank(context.Background(), candidates, testOrigin, lunch, domain.DefaultPreferences())
	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("v%d", i), r.Vendor.ID)
	}
}

func TestRank_TruncatesAndAnnotates(t *testing.T) {
	engine := NewVendorScoringEngine(VendorScoringConfig{})

	candidates := make([]domain.Vendor, 25)
	for i := range candidates {
		candidates[i] = italianVendor(fmt.Sprintf("v%d", i), float64(100+i*150), true)
	}
	candidates[3].Social = &domain.SocialProof{
		FriendsFavorited: 2,
		RecentVisits:     []domain.FriendVisit{{Name: "Ana"}, {Name: "Ben"}},
	}

	results := engine.Rank(context.Background(), candidates, testOrigin, lunch, italianPrefs())
	require.Len(t, results, DefaultMaxResults)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	first := results[0]
	assert.Equal(t, "v0", first.Vendor.ID)
	assert.Equal(t, "100m", first.Distance)
	assert.Equal(t, 1, first.WalkingMinutes)
	assert.Equal(t, "1 min walk", first.WalkingTime)
	assert.Equal(t, ReasonCuisine, first.MatchReason)

	for _, r := range results {
		if r.Vendor.ID == "v3" {
			assert.Equal(t, []string{"Ana", "Ben"}, r.SocialProof)
		}
	}
}

func TestRank_EmptyCandidates(t *testing.T) {
	engine := NewVendorScoringEngine(VendorScoringConfig{})
	results := engine.Rank(context.Background(), nil, testOrigin, lunch, domain.DefaultPreferences())
	assert.Empty(t, results)
}

func TestMatchReason(t *testing.T) {
	tests := []struct {
		name string
		b    domain.ScoreBreakdown
		want string
	}{
		{"personalization wins", domain.ScoreBreakdown{Personalization: 71, Proximity: 100, Quality: 99, SocialProof: 99}, ReasonCuisine},
		{"proximity next", domain.ScoreBreakdown{Personalization: 70, Proximity: 90, Quality: 99}, ReasonClose},
		{"quality next", domain.ScoreBreakdown{Proximity: 70, Quality: 86, SocialProof: 99}, ReasonRated},
		{"friends next", domain.ScoreBreakdown{Quality: 85, SocialProof: 80}, ReasonFriends},
		{"fallback", domain.ScoreBreakdown{SocialProof: 70}, ReasonFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchReason(tt.b))
		})
	}
}

func TestDistanceHelpers(t *testing.T) {
	assert.InDelta(t, 1500.0, DistanceMeters(testOrigin, northOf(testOrigin, 1500)), 0.01)
	assert.Equal(t, 0.0, DistanceMeters(testOrigin, testOrigin))

	assert.Equal(t, "150m", FormatDistance(150.2))
	assert.Equal(t, "1.2km", FormatDistance(1234))
	assert.Equal(t, 2, WalkingMinutes(150))
	assert.Equal(t, 12, WalkingMinutes(1000))
}
