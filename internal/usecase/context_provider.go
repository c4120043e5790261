package usecase

import (
	"time"

	"github.com/tastemap/backend/internal/domain"
)

// CurrentContext buckets the local hour of now into a time-of-day and meal period:
// [6,12) morning/breakfast, [12,17) afternoon/lunch, [17,21) evening/dinner, else night/lateNight.
func CurrentContext(now time.Time) domain.RecommendationContext {
	hour := now.Hour()

	switch {
	case hour >= 6 && hour < 12:
		return domain.RecommendationContext{TimeOfDay: domain.Morning, MealPeriod: domain.Breakfast}
	case hour >= 12 && hour < 17:
		return domain.RecommendationContext{TimeOfDay: domain.Afternoon, MealPeriod: domain.Lunch}
	case hour >= 17 && hour < 21:
		return domain.RecommendationContext{TimeOfDay: domain.Evening, MealPeriod: domain.Dinner}
	default:
		return domain.RecommendationContext{TimeOfDay: domain.Night, MealPeriod: domain.LateNight}
	}
}
