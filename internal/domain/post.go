package domain

import "time"

// Post is a user-generated food post for the social feed. Read-only to the core.
type Post struct {
	ID            string    `json:"id" binding:"required"`
	AuthorID      string    `json:"authorId"`
	CreatedAt     time.Time `json:"createdAt"`
	Location      string    `json:"location,omitempty"`
	MealType      string    `json:"mealType,omitempty"`
	DietTags      []string  `json:"dietTags,omitempty"`
	LikeCount     int       `json:"likeCount"`
	CommentCount  int       `json:"commentCount"`
	BookmarkCount int       `json:"bookmarkCount"`
	ViewCount     int       `json:"viewCount"`
	PhotoCount    int       `json:"photoCount"`
	Note          string    `json:"note,omitempty"`
}

// PostScoreBreakdown holds the weighted components of a post score
type PostScoreBreakdown struct {
	Engagement float64 `json:"engagement"`
	Freshness  float64 `json:"freshness"`
	Affinity   float64 `json:"affinity"`
	Diversity  float64 `json:"diversity"`
	Quality    float64 `json:"quality"`
	Total      float64 `json:"total"`
}

// RankedPost pairs a post with its score
type RankedPost struct {
	Post      Post               `json:"post"`
	Score     float64            `json:"score"`
	Breakdown PostScoreBreakdown `json:"breakdown"`
}
