package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tastemap/backend/internal/domain"
	"github.com/tastemap/backend/internal/usecase"
)

// UserIDHeader carries the caller identity; absent means anonymous
const UserIDHeader = "X-User-ID"

// RecommendationUsecase is the orchestrator surface served over HTTP
type RecommendationUsecase interface {
	GenerateRecommendations(ctx context.Context, userID string, candidates []domain.Vendor, userLocation domain.Coordinate, rc domain.RecommendationContext) []domain.RecommendationResult
	RankPostsDetailed(ctx context.Context, userID string, posts []domain.Post) []domain.RankedPost
	MarkAsShown(userID, postID string)
	MarkCreatorShown(userID, authorID string)
	UpdatePreferences(ctx context.Context, userID string, likedPost domain.Post) domain.UserPreferences
	LearnVendor(ctx context.Context, userID string, vendor domain.Vendor) domain.UserPreferences
	SetVendorProfile(ctx context.Context, userID string, cuisines []string, priceTier int, dietaryTags []string) domain.UserPreferences
	Preferences(ctx context.Context, userID string) domain.UserPreferences
	ClearCache(ctx context.Context) error
}

// StoreHealthChecker reports whether the preference store is reachable
type StoreHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recommendations RecommendationUsecase
	store           StoreHealthChecker
	now             func() time.Time
	logger          zerolog.Logger
}

// NewHandler creates a new HTTP handler. store may be nil when the
// preference store has nothing to check.
func NewHandler(recommendations RecommendationUsecase, store StoreHealthChecker, logger zerolog.Logger) *Handler {
	return &Handler{
		recommendations: recommendations,
		store:           store,
		now:             time.Now,
		logger:          logger.With().Str("component", "http_handler").Logger(),
	}
}

// contextRequest overrides parts of the wall-clock derived context
type contextRequest struct {
	TimeOfDay     string `json:"timeOfDay"`
	MealPeriod    string `json:"mealPeriod"`
	Weather       string `json:"weather"`
	GrocerySearch bool   `json:"grocerySearch"`
}

type vendorRecommendationRequest struct {
	Candidates []domain.Vendor    `json:"candidates" binding:"dive"`
	Location   *domain.Coordinate `json:"location"`
	Context    *contextRequest    `json:"context"`
}

type rankPostsRequest struct {
	Posts []domain.Post `json:"posts" binding:"dive"`
}

type markShownRequest struct {
	AuthorID string `json:"authorId"`
}

type vendorProfileRequest struct {
	Cuisines    []string `json:"cuisines"`
	PriceTier   int      `json:"priceTier" binding:"required,min=1,max=4"`
	DietaryTags []string `json:"dietaryTags"`
}

// HealthCheck returns the health status of the API and its preference store
func (h *Handler) HealthCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.store.HealthCheck(ctx); err != nil {
			h.logger.Error().Err(err).Msg("preference store health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "tastemap-backend",
				"version": "1.0.0",
				"store":   "unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tastemap-backend",
		"version": "1.0.0",
	})
}

// GenerateRecommendations ranks the posted candidate vendors for the caller
func (h *Handler) GenerateRecommendations(c *gin.Context) {
	var req vendorRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Location == nil {
		respondError(c, http.StatusBadRequest, "location is required")
		return
	}
	if !validCoordinate(*req.Location) {
		respondError(c, http.StatusBadRequest, "location is out of range")
		return
	}

	rc, err := h.resolveContext(req.Context)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	results := h.recommendations.GenerateRecommendations(c.Request.Context(), userID(c), req.Candidates, *req.Location, rc)

	c.JSON(http.StatusOK, gin.H{
		"recommendations": results,
		"count":           len(results),
		"context":         rc,
	})
}

// ClearCache empties the recommendation cache
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.recommendations.ClearCache(c.Request.Context()); err != nil {
		h.logger.Error().Err(err).Msg("clear cache failed")
		respondError(c, http.StatusInternalServerError, "failed to clear cache")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// RankPosts orders the posted feed posts for the caller
func (h *Handler) RankPosts(c *gin.Context) {
	var req rankPostsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ranked := h.recommendations.RankPostsDetailed(c.Request.Context(), userID(c), req.Posts)

	c.JSON(http.StatusOK, gin.H{
		"posts": ranked,
		"count": len(ranked),
	})
}

// MarkPostShown records that a post was surfaced to the caller
func (h *Handler) MarkPostShown(c *gin.Context) {
	postID := strings.TrimSpace(c.Param("postId"))
	if postID == "" {
		respondError(c, http.StatusBadRequest, "post id is required")
		return
	}

	// The body is optional
	var req markShownRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	uid := userID(c)
	h.recommendations.MarkAsShown(uid, postID)
	if req.AuthorID != "" {
		h.recommendations.MarkCreatorShown(uid, req.AuthorID)
	}

	c.Status(http.StatusNoContent)
}

// GetPreferences returns the caller's current profile
func (h *Handler) GetPreferences(c *gin.Context) {
	uid := userID(c)
	h.respondPreferences(c, uid, h.recommendations.Preferences(c.Request.Context(), uid))
}

// LearnFromPost folds a liked post into the caller's profile
func (h *Handler) LearnFromPost(c *gin.Context) {
	var post domain.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	uid := userID(c)
	h.respondPreferences(c, uid, h.recommendations.UpdatePreferences(c.Request.Context(), uid, post))
}

// LearnFromVendor folds a favorited vendor into the caller's profile
func (h *Handler) LearnFromVendor(c *gin.Context) {
	var vendor domain.Vendor
	if err := c.ShouldBindJSON(&vendor); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	uid := userID(c)
	h.respondPreferences(c, uid, h.recommendations.LearnVendor(c.Request.Context(), uid, vendor))
}

// SetVendorProfile replaces the caller's cuisines, price tier and dietary tags
func (h *Handler) SetVendorProfile(c *gin.Context) {
	var req vendorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	uid := userID(c)
	if uid == "" {
		respondError(c, http.StatusUnauthorized, "a user id is required to store a profile")
		return
	}

	prefs := h.recommendations.SetVendorProfile(c.Request.Context(), uid, req.Cuisines, req.PriceTier, req.DietaryTags)
	h.respondPreferences(c, uid, prefs)
}

func (h *Handler) respondPreferences(c *gin.Context, uid string, prefs domain.UserPreferences) {
	c.JSON(http.StatusOK, gin.H{
		"preferences": prefs,
		"anonymous":   uid == "",
	})
}

// resolveContext starts from the wall-clock context and applies request overrides
func (h *Handler) resolveContext(req *contextRequest) (domain.RecommendationContext, error) {
	rc := usecase.CurrentContext(h.now())
	if req == nil {
		return rc, nil
	}

	if req.MealPeriod != "" {
		period, err := domain.ParseMealPeriod(req.MealPeriod)
		if err != nil {
			return rc, err
		}
		rc.MealPeriod = period
	}
	if req.TimeOfDay != "" {
		tod, err := domain.ParseTimeOfDay(req.TimeOfDay)
		if err != nil {
			return rc, err
		}
		rc.TimeOfDay = tod
	}
	rc.Weather = strings.TrimSpace(req.Weather)
	rc.GrocerySearch = req.GrocerySearch

	return rc, nil
}

func userID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(UserIDHeader))
}

func validCoordinate(c domain.Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
