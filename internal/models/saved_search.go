package models

import "time"

// SearchCriteria is a user's stored search. Nil bounds mean "no constraint",
// never zero.
type SearchCriteria struct {
	MinPrice      *float64   `bson:"min_price,omitempty" json:"min_price,omitempty"`
	MaxPrice      *float64   `bson:"max_price,omitempty" json:"max_price,omitempty"`
	MinBedrooms   *int       `bson:"min_bedrooms,omitempty" json:"min_bedrooms,omitempty"`
	MaxBedrooms   *int       `bson:"max_bedrooms,omitempty" json:"max_bedrooms,omitempty"`
	MinBathrooms  *float64   `bson:"min_bathrooms,omitempty" json:"min_bathrooms,omitempty"`
	MaxBathrooms  *float64   `bson:"max_bathrooms,omitempty" json:"max_bathrooms,omitempty"`
	MinSquareFeet *int       `bson:"min_square_feet,omitempty" json:"min_square_feet,omitempty"`
	MaxSquareFeet *int       `bson:"max_square_feet,omitempty" json:"max_square_feet,omitempty"`
	MoveInAfter   *time.Time `bson:"move_in_after,omitempty" json:"move_in_after,omitempty"`
	MoveInBefore  *time.Time `bson:"move_in_before,omitempty" json:"move_in_before,omitempty"`

	Neighborhoods     []string `bson:"neighborhoods,omitempty" json:"neighborhoods,omitempty"`
	RequiredAmenities []string `bson:"required_amenities,omitempty" json:"required_amenities,omitempty"`

	RequiresDogsAllowed bool `bson:"requires_dogs_allowed" json:"requires_dogs_allowed"`
	RequiresCatsAllowed bool `bson:"requires_cats_allowed" json:"requires_cats_allowed"`
	NoFeeOnly           bool `bson:"no_fee_only" json:"no_fee_only"`

	MaxListingAgeDays *int `bson:"max_listing_age_days,omitempty" json:"max_listing_age_days,omitempty"`
}

// SavedSearch is owned by the user-preferences collaborator; this service
// only reads it and advances LastAlertAt.
type SavedSearch struct {
	ID            string         `bson:"_id" json:"id"`
	UserID        string         `bson:"user_id" json:"user_id"`
	Name          string         `bson:"name" json:"name"`
	Criteria      SearchCriteria `bson:"criteria" json:"criteria"`
	AlertsEnabled bool           `bson:"alerts_enabled" json:"alerts_enabled"`
	LastAlertAt   *time.Time     `bson:"last_alert_at,omitempty" json:"last_alert_at,omitempty"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
}

// AlertMatch is handed to the delivery collaborator: one listing that newly
// satisfies one saved search.
type AlertMatch struct {
	ID        string    `bson:"_id" json:"id"`
	SearchID  string    `bson:"search_id" json:"search_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	ListingID string    `bson:"listing_id" json:"listing_id"`
	MatchedAt time.Time `bson:"matched_at" json:"matched_at"`
	Delivered bool      `bson:"delivered" json:"delivered"`
}
