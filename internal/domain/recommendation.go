package domain

import (
	"fmt"
	"strings"
)

// TimeOfDay buckets the hour of day
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// MealPeriod is the meal associated with a time-of-day bucket
type MealPeriod string

const (
	Breakfast MealPeriod = "breakfast"
	Lunch     MealPeriod = "lunch"
	Dinner    MealPeriod = "dinner"
	LateNight MealPeriod = "lateNight"
)

// ParseTimeOfDay parses the string form of a TimeOfDay (case-insensitive)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, t := range []TimeOfDay{Morning, Afternoon, Evening, Night} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown time of day %q", ErrInvalidRequest, s)
}

// ParseMealPeriod parses the string form of a MealPeriod (case-insensitive)
func ParseMealPeriod(s string) (MealPeriod, error) {
	for _, m := range []MealPeriod{Breakfast, Lunch, Dinner, LateNight} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown meal period %q", ErrInvalidRequest, s)
}

// RecommendationContext is the temporal context used to bias vendor scoring.
// Values are immutable once constructed.
type RecommendationContext struct {
	TimeOfDay     TimeOfDay  `json:"timeOfDay"`
	MealPeriod    MealPeriod `json:"mealPeriod"`
	Weather       string     `json:"weather,omitempty"`
	GrocerySearch bool       `json:"grocerySearch,omitempty"`
}

// Tag identifies the context for cache keys
func (c RecommendationContext) Tag() string {
	return fmt.Sprintf("%s|%s|%t", c.MealPeriod, strings.ToLower(c.Weather), c.GrocerySearch)
}

// ScoreBreakdown holds each weighted vendor component (0-100) and the weighted total
type ScoreBreakdown struct {
	Personalization float64 `json:"personalization"`
	Quality         float64 `json:"quality"`
	Proximity       float64 `json:"proximity"`
	Context         float64 `json:"context"`
	SocialProof     float64 `json:"socialProof"`
	Freshness       float64 `json:"freshness"`
	BusinessHealth  float64 `json:"businessHealth"`
	Total           float64 `json:"total"`
}

// RecommendationResult is one ranked vendor
type RecommendationResult struct {
	Vendor         Vendor         `json:"vendor"`
	Score          float64        `json:"score"`
	DistanceMeters float64        `json:"distanceMeters"`
	Distance       string         `json:"distance"`
	WalkingMinutes int            `json:"walkingMinutes"`
	WalkingTime    string         `json:"walkingTime"`
	MatchReason    string         `json:"matchReason"`
	SocialProof    []string       `json:"socialProof,omitempty"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
}
