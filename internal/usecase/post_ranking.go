package usecase

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/infrastructure/metrics"
)

// Component weights for post ranking, summing to 1.0
const (
	weightEngagement    = 0.35
	weightPostFreshness = 0.25
	weightAffinity      = 0.20
	weightDiversity     = 0.15
	weightPostQuality   = 0.05
)

// Interaction weights of the engagement rate
const (
	likeWeight     = 1.0
	commentWeight  = 3.0
	bookmarkWeight = 4.0
)

// Affinity bonuses, capped at 1.0 in total
const (
	affinityDietShare = 0.4
	affinityLocation  = 0.3
	affinityMealType  = 0.2
	affinityCreator   = 0.1
)

// Diversity values
const (
	repeatPenalty         = 0.2
	DefaultCreatorPenalty = 0.6
)

const captionMinLength = 20

// PostRankingConfig holds configuration for the post ranking engine
type PostRankingConfig struct {
	// CreatorPenalty is the diversity value of a post whose author was
	// recently surfaced. Only applies when the tracker has a creator window.
	CreatorPenalty float64
	Now            func() time.Time
}

// PostRankingEngine scores posts for the social feed.
// Scores are comparable but not normalized to 100.
type PostRankingEngine struct {
	creatorPenalty float64
	now            func() time.Time
}

// NewPostRankingEngine creates a post ranking engine
func NewPostRankingEngine(config PostRankingConfig) *PostRankingEngine {
	penalty := config.CreatorPenalty
	if penalty <= 0 || penalty > 1 {
		penalty = DefaultCreatorPenalty
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &PostRankingEngine{
		creatorPenalty: penalty,
		now:            now,
	}
}

// Score computes the weighted components of one post. tracker may be nil.
func (e *PostRankingEngine) Score(post domain.Post, prefs domain.UserPreferences, tracker *DiversityTracker) domain.PostScoreBreakdown {
	b := domain.PostScoreBreakdown{
		Engagement: engagementScore(post),
		Freshness:  postFreshnessScore(post, e.now()),
		Affinity:   affinityScore(post, prefs),
		Diversity:  e.diversityScore(post, tracker),
		Quality:    postQualityScore(post),
	}

	b.Total = b.Engagement*weightEngagement +
		b.Freshness*weightPostFreshness +
		b.Affinity*weightAffinity +
		b.Diversity*weightDiversity +
		b.Quality*weightPostQuality

	return b
}

// Rank scores posts and stable-sorts them by descending score
func (e *PostRankingEngine) Rank(posts []domain.Post, prefs domain.UserPreferences, tracker *DiversityTracker) []domain.RankedPost {
	ranked := make([]domain.RankedPost, len(posts))
	for i, post := range posts {
		b := e.Score(post, prefs, tracker)
		ranked[i] = domain.RankedPost{Post: post, Score: b.Total, Breakdown: b}
	}

	slices.SortStableFunc(ranked, func(a, b domain.RankedPost) int {
		return cmp.Compare(b.Score, a.Score)
	})

	metrics.PostsRanked.Add(float64(len(posts)))
	return ranked
}

// engagementScore damps the weighted interaction rate per view into [0,1]
func engagementScore(post domain.Post) float64 {
	weighted := float64(post.LikeCount)*likeWeight +
		float64(post.CommentCount)*commentWeight +
		float64(post.BookmarkCount)*bookmarkWeight
	if weighted <= 0 {
		return 0
	}

	views := math.Max(float64(post.ViewCount), 1)
	rate := weighted / views

	return math.Min(math.Log10(1+rate*100)/2, 1)
}

// postFreshnessScore halves roughly every 24 hours. Future timestamps count as now.
func postFreshnessScore(post domain.Post, now time.Time) float64 {
	hours := now.Sub(post.CreatedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return 1 / (1 + hours/24)
}

func affinityScore(post domain.Post, prefs domain.UserPreferences) float64 {
	score := 0.0

	if len(post.DietTags) > 0 && len(prefs.FavoriteDietTags) > 0 {
		matches := 0
		for _, tag := range post.DietTags {
			if containsFold(prefs.FavoriteDietTags, tag) {
				matches++
			}
		}
		score += float64(matches) / float64(len(post.DietTags)) * affinityDietShare
	}

	if prefs.FavoriteLocation != "" && post.Location != "" &&
		strings.Contains(strings.ToLower(post.Location), strings.ToLower(prefs.FavoriteLocation)) {
		score += affinityLocation
	}

	if post.MealType != "" && containsFold(prefs.PreferredMealTypes, post.MealType) {
		score += affinityMealType
	}

	if post.AuthorID != "" && slices.Contains(prefs.FavoriteCreatorIDs, post.AuthorID) {
		score += affinityCreator
	}

	return math.Min(score, 1)
}

func (e *PostRankingEngine) diversityScore(post domain.Post, tracker *DiversityTracker) float64 {
	if tracker == nil {
		return 1
	}
	if tracker.Contains(post.ID) {
		return repeatPenalty
	}
	if post.AuthorID != "" && tracker.ContainsCreator(post.AuthorID) {
		return e.creatorPenalty
	}
	return 1
}

func postQualityScore(post domain.Post) float64 {
	score := 0.0
	if post.PhotoCount > 1 {
		score += 0.3
	}
	if utf8.RuneCountInString(post.Note) > captionMinLength {
		score += 0.3
	}
	if post.Location != "" {
		score += 0.2
	}
	if len(post.DietTags) > 0 {
		score += 0.2
	}
	return score
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
