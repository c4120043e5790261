package domain

import (
	"strings"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VendorCategory classifies what a vendor sells
type VendorCategory string

const (
	CategoryRestaurant  VendorCategory = "restaurant"
	CategoryCafe        VendorCategory = "cafe"
	CategoryGrocery     VendorCategory = "grocery"
	CategoryDessert     VendorCategory = "dessert"
	CategoryAlcohol     VendorCategory = "alcohol"
	CategoryConvenience VendorCategory = "convenience"
)

// Badge values that influence the freshness component
const (
	BadgeNew      = "new"
	BadgeTrending = "trending"
)

// FriendVisit is one entry of a vendor's recent-visit list
type FriendVisit struct {
	Name      string    `json:"name"`
	VisitedAt time.Time `json:"visitedAt"`
}

// SocialProof summarizes friend activity around a vendor
type SocialProof struct {
	FriendsFavorited int           `json:"friendsFavorited"`
	RecentVisits     []FriendVisit `json:"recentVisits,omitempty"`
}

// Vendor is a venue candidate for the discovery feed. Read-only to the core.
type Vendor struct {
	ID          string         `json:"id" binding:"required"`
	Name        string         `json:"name"`
	Location    Coordinate     `json:"location"`
	Rating      float64        `json:"rating"` // 0-5
	ReviewCount int            `json:"reviewCount"`
	PriceLevel  string         `json:"priceLevel"` // "$" to "$$$$"
	Cuisine     *string        `json:"cuisine,omitempty"`
	Category    VendorCategory `json:"category"`
	IsOpen      bool           `json:"isOpen"`
	DeliveryFee float64        `json:"deliveryFee"`
	Badges      []string       `json:"badges,omitempty"`
	Social      *SocialProof   `json:"socialProof,omitempty"`
}

// PriceTier returns the number of "$" symbols in the price level (0 when unknown)
func (v Vendor) PriceTier() int {
	return strings.Count(v.PriceLevel, "$")
}

// CuisineOrEmpty returns the cuisine label, or "" when the vendor has none
func (v Vendor) CuisineOrEmpty() string {
	if v.Cuisine == nil {
		return ""
	}
	return strings.TrimSpace(*v.Cuisine)
}

// HasBadge reports whether the vendor carries the given badge (case-insensitive).
// A vendor without badges has none.
func (v Vendor) HasBadge(badge string) bool {
	for _, b := range v.Badges {
		if strings.EqualFold(b, badge) {
			return true
		}
	}
	return false
}

// SocialProofOrNil returns the social summary, or nil when absent
func (v Vendor) SocialProofOrNil() *SocialProof {
	return v.Social
}

// SocialProofNames returns the names from the recent-visit list, or nil
func (v Vendor) SocialProofNames() []string {
	if v.Social == nil || len(v.Social.RecentVisits) == 0 {
		return nil
	}
	names := make([]string, 0, len(v.Social.RecentVisits))
	for _, visit := range v.Social.RecentVisits {
		if visit.Name != "" {
			names = append(names, visit.Name)
		}
	}
	return names
}

// PriceLevelFromTier renders a tier as "$" symbols
func PriceLevelFromTier(tier int) string {
	if tier <= 0 {
		return ""
	}
	return strings.Repeat("$", tier)
}
