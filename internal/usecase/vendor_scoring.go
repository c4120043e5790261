package usecase

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/metrics"
)

// Component weights for vendor scoring, summing to 1.0
const (
	weightPersonalization = 0.25
	weightQuality         = 0.20
	weightProximity       = 0.15
	weightContext         = 0.15
	weightSocialProof     = 0.10
	weightFreshness       = 0.08
	weightBusinessHealth  = 0.07
)

// Scoring bonuses and bases
const (
	personalizationBase   = 30.0
	cuisineExactBonus     = 50.0
	cuisinePartialBonus   = 25.0
	priceExactBonus       = 15.0
	priceNearBonus        = 8.0
	priceFarPenalty       = -5.0
	dietaryProfileBonus   = 5.0
	qualityRatingShare    = 60.0
	qualityReviewShare    = 40.0
	contextBase           = 30.0
	groceryContextPenalty = -20.0
	weatherDeliveryBonus  = 10.0
)

// Match reason thresholds, checked in order
const (
	reasonPersonalizationThreshold = 70.0
	reasonProximityThreshold       = 80.0
	reasonQualityThreshold         = 85.0
	reasonSocialThreshold          = 70.0
)

// Match reasons
const (
	ReasonCuisine  = "matches your cuisine preferences"
	ReasonClose    = "very close to you"
	ReasonRated    = "highly rated"
	ReasonFriends  = "loved by friends"
	ReasonFallback = "recommended for you"
)

const (
	// DefaultMaxResults caps the ranked vendor list
	DefaultMaxResults = 20

	walkingSpeedMetersPerSecond = 1.4
	earthRadiusMeters           = 6371000.0
)

// contextBonuses holds per-meal-period category bonuses of the context component
var contextBonuses = map[domain.MealPeriod]map[domain.VendorCategory]float64{
	domain.Breakfast: {
		domain.CategoryCafe:        50,
		domain.CategoryConvenience: 20,
		domain.CategoryRestaurant:  10,
	},
	domain.Lunch: {
		domain.CategoryRestaurant:  50,
		domain.CategoryCafe:        20,
		domain.CategoryConvenience: 10,
	},
	domain.Dinner: {
		domain.CategoryRestaurant: 40,
		domain.CategoryAlcohol:    30,
		domain.CategoryDessert:    20,
	},
	domain.LateNight: {
		domain.CategoryAlcohol:     20,
		domain.CategoryConvenience: 20,
		domain.CategoryDessert:     10,
	},
}

const lateNightOpenBonus = 40.0

// VendorRanker orders a candidate set of vendors
type VendorRanker interface {
	Rank(
		ctx context.Context,
		candidates []domain.Vendor,
		userLocation domain.Coordinate,
		rc domain.RecommendationContext,
		prefs domain.UserPreferences,
	) []domain.RecommendationResult
}

// VendorScoringConfig holds configuration for the vendor scoring engine
type VendorScoringConfig struct {
	MaxResults int
	Workers    int
}

// VendorScoringEngine computes 0-100 composite scores for vendors.
// Scoring is pure; Rank fans candidates out across a bounded worker pool.
type VendorScoringEngine struct {
	maxResults int
	workers    int
}

// NewVendorScoringEngine creates a scoring engine with the given configuration
func NewVendorScoringEngine(config VendorScoringConfig) *VendorScoringEngine {
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}

	return &VendorScoringEngine{
		maxResults: maxResults,
		workers:    workers,
	}
}

// Score computes the breakdown of one vendor
func (e *VendorScoringEngine) Score(
	vendor domain.Vendor,
	userLocation domain.Coordinate,
	rc domain.RecommendationContext,
	prefs domain.UserPreferences,
) domain.ScoreBreakdown {
	b := domain.ScoreBreakdown{
		Personalization: personalizationScore(vendor, prefs),
		Quality:         qualityScore(vendor),
		Proximity:       proximityScore(DistanceMeters(userLocation, vendor.Location)),
		Context:         contextScore(vendor, rc),
		SocialProof:     socialProofScore(vendor),
		Freshness:       freshnessScore(vendor),
		BusinessHealth:  businessHealthScore(vendor),
	}

	b.Total = clampScore(b.Personalization*weightPersonalization +
		b.Quality*weightQuality +
		b.Proximity*weightProximity +
		b.Context*weightContext +
		b.SocialProof*weightSocialProof +
		b.Freshness*weightFreshness +
		b.BusinessHealth*weightBusinessHealth)

	return b
}

// Rank scores every candidate, stable-sorts by descending total and returns
// at most maxResults results with distance and walking time attached.
func (e *VendorScoringEngine) Rank(
	ctx context.Context,
	candidates []domain.Vendor,
	userLocation domain.Coordinate,
	rc domain.RecommendationContext,
	prefs domain.UserPreferences,
) []domain.RecommendationResult {
	start := time.Now()
	defer func() {
		metrics.VendorScoringRuns.Inc()
		metrics.VendorScoringDuration.Observe(time.Since(start).Seconds())
	}()

	results := make([]domain.RecommendationResult, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range candidates {
		g.Go(func() error {
			results[i] = e.buildResult(candidates[i], userLocation, rc, prefs)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(results, func(a, b domain.RecommendationResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(results) > e.maxResults {
		results = results[:e.maxResults]
	}
	return results
}

func (e *VendorScoringEngine) buildResult(
	vendor domain.Vendor,
	userLocation domain.Coordinate,
	rc domain.RecommendationContext,
	prefs domain.UserPreferences,
) domain.RecommendationResult {
	breakdown := e.Score(vendor, userLocation, rc, prefs)
	meters := DistanceMeters(userLocation, vendor.Location)
	minutes := WalkingMinutes(meters)

	return domain.RecommendationResult{
		Vendor:         vendor,
		Score:          breakdown.Total,
		DistanceMeters: meters,
		Distance:       FormatDistance(meters),
		WalkingMinutes: minutes,
		WalkingTime:    fmt.Sprintf("%d min walk", minutes),
		MatchReason:    MatchReason(breakdown),
		SocialProof:    vendor.SocialProofNames(),
		Breakdown:      breakdown,
	}
}

// personalizationScore rewards favorite cuisines, a matching price tier and a dietary profile
func personalizationScore(vendor domain.Vendor, prefs domain.UserPreferences) float64 {
	score := personalizationBase

	if cuisine := strings.ToLower(vendor.CuisineOrEmpty()); cuisine != "" {
		score += cuisineBonus(cuisine, prefs.FavoriteCuisines)
	}

	if tier := vendor.PriceTier(); tier > 0 && prefs.PreferredPriceTier > 0 {
		diff := tier - prefs.PreferredPriceTier
		if diff < 0 {
			diff = -diff
		}
		switch diff {
		case 0:
			score += priceExactBonus
		case 1:
			score += priceNearBonus
		default:
			score += priceFarPenalty
		}
	}

	if len(prefs.DietaryTags) > 0 {
		score += dietaryProfileBonus
	}

	return clampScore(score)
}

// cuisineBonus returns the exact bonus when any favorite equals the cuisine,
// otherwise the partial bonus when one contains the other.
func cuisineBonus(cuisine string, favorites []string) float64 {
	partial := false
	for _, fav := range favorites {
		f := strings.ToLower(strings.TrimSpace(fav))
		if f == "" {
			continue
		}
		if f == cuisine {
			return cuisineExactBonus
		}
		if strings.Contains(cuisine, f) || strings.Contains(f, cuisine) {
			partial = true
		}
	}
	if partial {
		return cuisinePartialBonus
	}
	return 0
}

// qualityScore blends the star rating with a log-damped review volume.
// Review counts are smoothed with +1 so zero reviews are valid.
func qualityScore(vendor domain.Vendor) float64 {
	rating := math.Max(0, math.Min(vendor.Rating, 5))
	reviews := math.Max(0, float64(vendor.ReviewCount))

	volume := math.Min(math.Log10(reviews+1)/4, 1)
	return clampScore((rating/5)*qualityRatingShare + volume*qualityReviewShare)
}

// proximityScore is a step function over the distance in meters
func proximityScore(meters float64) float64 {
	switch {
	case meters < 200:
		return 100
	case meters < 500:
		return 90
	case meters < 1000:
		return 70
	case meters < 2000:
		return 50
	case meters < 3000:
		return 30
	default:
		return 10
	}
}

// contextScore biases categories toward the current meal period
func contextScore(vendor domain.Vendor, rc domain.RecommendationContext) float64 {
	score := contextBase
	score += contextBonuses[rc.MealPeriod][vendor.Category]

	if rc.MealPeriod == domain.LateNight && vendor.IsOpen {
		score += lateNightOpenBonus
	}

	if vendor.Category == domain.CategoryGrocery && !rc.GrocerySearch {
		score += groceryContextPenalty
	}

	switch strings.ToLower(rc.Weather) {
	case "rain", "snow":
		if vendor.DeliveryFee == 0 {
			score += weatherDeliveryBonus
		}
	}

	return clampScore(score)
}

// socialProofScore uses friend activity when present, otherwise review volume
func socialProofScore(vendor domain.Vendor) float64 {
	if social := vendor.SocialProofOrNil(); social != nil {
		friends := math.Max(0, float64(social.FriendsFavorited))
		return clampScore(math.Min(friends*20, 60) + 40)
	}
	return clampScore(math.Min(float64(vendor.ReviewCount)/100, 100))
}

func freshnessScore(vendor domain.Vendor) float64 {
	switch {
	case vendor.HasBadge(domain.BadgeNew):
		return 100
	case vendor.HasBadge(domain.BadgeTrending):
		return 80
	default:
		return 50
	}
}

// businessHealthScore is zero for a closed vendor. Only this component is zeroed.
func businessHealthScore(vendor domain.Vendor) float64 {
	if !vendor.IsOpen {
		return 0
	}
	score := 50.0 + 30.0
	if vendor.DeliveryFee == 0 {
		score += 20
	}
	return clampScore(score)
}

// MatchReason picks the explanation of the highest-priority satisfied threshold
func MatchReason(b domain.ScoreBreakdown) string {
	switch {
	case b.Personalization > reasonPersonalizationThreshold:
		return ReasonCuisine
	case b.Proximity > reasonProximityThreshold:
		return ReasonClose
	case b.Quality > reasonQualityThreshold:
		return ReasonRated
	case b.SocialProof > reasonSocialThreshold:
		return ReasonFriends
	default:
		return ReasonFallback
	}
}

// DistanceMeters returns the great-circle distance between two coordinates
func DistanceMeters(from, to domain.Coordinate) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	deltaLat := (to.Latitude - from.Latitude) * math.Pi / 180
	deltaLon := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// WalkingMinutes converts meters to whole minutes at 1.4 m/s
func WalkingMinutes(meters float64) int {
	return int(math.Round(meters / walkingSpeedMetersPerSecond / 60))
}

// FormatDistance renders "350m" below a kilometer and "1.2km" above
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// clampScore caps a component to [0,100]
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
