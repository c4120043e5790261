package docstore

import (
	"strings"
	"time"

	"github.com/tastemap/backend/internal/domain"
)

// SchemaVersion is written into every document
const SchemaVersion = 1

// ProfileDocument is the wire form of a profile in the document service.
// Price is stored as its "$" symbol form.
type ProfileDocument struct {
	UserID        string   `json:"user_id"`
	SchemaVersion int      `json:"schema_version"`
	DietTags      []string `json:"diet_tags,omitempty"`
	Location      string   `json:"favorite_location,omitempty"`
	MealTypes     []string `json:"meal_types,omitempty"`
	CreatorIDs    []string `json:"creator_ids,omitempty"`
	Cuisines      []string `json:"cuisines,omitempty"`
	PriceLevel    string   `json:"price_level,omitempty"`
	DietaryTags   []string `json:"dietary_tags,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// MapToPreferences converts a stored document to our domain UserPreferences model
func MapToPreferences(doc *ProfileDocument) domain.UserPreferences {
	prefs := domain.UserPreferences{
		FavoriteLocation:   doc.Location,
		PreferredPriceTier: strings.Count(doc.PriceLevel, "$"),
	}

	// Older writers may have stored duplicates
	for _, v := range doc.DietTags {
		domain.AppendUniqueFold(&prefs.FavoriteDietTags, v)
	}
	for _, v := range doc.MealTypes {
		domain.AppendUniqueFold(&prefs.PreferredMealTypes, v)
	}
	for _, v := range doc.CreatorIDs {
		domain.AppendUnique(&prefs.FavoriteCreatorIDs, v)
	}
	for _, v := range doc.Cuisines {
		domain.AppendUniqueFold(&prefs.FavoriteCuisines, v)
	}
	for _, v := range doc.DietaryTags {
		domain.AppendUniqueFold(&prefs.DietaryTags, v)
	}

	if ts, err := time.Parse(time.RFC3339, doc.UpdatedAt); err == nil {
		prefs.UpdatedAt = ts
	}

	prefs.Normalize()
	return prefs
}

// MapFromPreferences converts a profile to its document form
func MapFromPreferences(userID string, prefs domain.UserPreferences) *ProfileDocument {
	doc := &ProfileDocument{
		UserID:        userID,
		SchemaVersion: SchemaVersion,
		DietTags:      prefs.FavoriteDietTags,
		Location:      prefs.FavoriteLocation,
		MealTypes:     prefs.PreferredMealTypes,
		CreatorIDs:    prefs.FavoriteCreatorIDs,
		Cuisines:      prefs.FavoriteCuisines,
		PriceLevel:    domain.PriceLevelFromTier(prefs.PreferredPriceTier),
		DietaryTags:   prefs.DietaryTags,
	}
	if !prefs.UpdatedAt.IsZero() {
		doc.UpdatedAt = prefs.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return doc
}
