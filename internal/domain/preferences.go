package domain

import (
	"slices"
	"strings"
	"time"
)

// DefaultPriceTier is the mid-range tier used by the neutral profile
const DefaultPriceTier = 2

// UserPreferences is the learned personalization profile of one user.
// List fields never hold duplicates: appends are guarded by a membership check.
type UserPreferences struct {
	// Post-feed profile
	FavoriteDietTags   []string `json:"favoriteDietTags"`
	FavoriteLocation   string   `json:"favoriteLocation,omitempty"`
	PreferredMealTypes []string `json:"preferredMealTypes"`
	FavoriteCreatorIDs []string `json:"favoriteCreatorIds"`

	// Vendor-feed profile
	FavoriteCuisines   []string `json:"favoriteCuisines"`
	PreferredPriceTier int      `json:"preferredPriceTier"`
	DietaryTags        []string `json:"dietaryTags"`

	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// DefaultPreferences returns the neutral profile: empty lists and a mid-range price tier
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		FavoriteDietTags:   []string{},
		PreferredMealTypes: []string{},
		FavoriteCreatorIDs: []string{},
		FavoriteCuisines:   []string{},
		PreferredPriceTier: DefaultPriceTier,
		DietaryTags:        []string{},
	}
}

// Clone returns a deep copy
func (p UserPreferences) Clone() UserPreferences {
	out := p
	out.FavoriteDietTags = cloneList(p.FavoriteDietTags)
	out.PreferredMealTypes = cloneList(p.PreferredMealTypes)
	out.FavoriteCreatorIDs = cloneList(p.FavoriteCreatorIDs)
	out.FavoriteCuisines = cloneList(p.FavoriteCuisines)
	out.DietaryTags = cloneList(p.DietaryTags)
	return out
}

// Normalize fills nil lists and an unset price tier so stored profiles
// from older writers behave like the neutral profile.
func (p *UserPreferences) Normalize() {
	if p.FavoriteDietTags == nil {
		p.FavoriteDietTags = []string{}
	}
	if p.PreferredMealTypes == nil {
		p.PreferredMealTypes = []string{}
	}
	if p.FavoriteCreatorIDs == nil {
		p.FavoriteCreatorIDs = []string{}
	}
	if p.FavoriteCuisines == nil {
		p.FavoriteCuisines = []string{}
	}
	if p.DietaryTags == nil {
		p.DietaryTags = []string{}
	}
	if p.PreferredPriceTier < 1 || p.PreferredPriceTier > 4 {
		p.PreferredPriceTier = DefaultPriceTier
	}
}

// AppendUnique appends value to list unless it is empty or already present.
// Reports whether the list changed.
func AppendUnique(list *[]string, value string) bool {
	if value == "" || slices.Contains(*list, value) {
		return false
	}
	*list = append(*list, value)
	return true
}

// AppendUniqueFold is AppendUnique for labels: the value is trimmed and
// compared case-insensitively, so "Vegan" and "vegan" are one tag.
func AppendUniqueFold(list *[]string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, item := range *list {
		if strings.EqualFold(item, value) {
			return false
		}
	}
	*list = append(*list, value)
	return true
}

func cloneList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
