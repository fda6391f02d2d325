package models

import "time"

// PetPolicyPatch carries only the pet-policy subfields a source reported.
type PetPolicyPatch struct {
	DogsAllowed *bool    `json:"dogs_allowed,omitempty"`
	CatsAllowed *bool    `json:"cats_allowed,omitempty"`
	Deposit     *float64 `json:"deposit,omitempty"`
}

// BrokerFeePatch carries only the broker-fee subfields a source reported.
type BrokerFeePatch struct {
	Required *bool    `json:"required,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
}

// UtilitiesPatch carries only the utility flags a source reported.
type UtilitiesPatch struct {
	Heat        *bool `json:"heat,omitempty"`
	Water       *bool `json:"water,omitempty"`
	Electricity *bool `json:"electricity,omitempty"`
	Gas         *bool `json:"gas,omitempty"`
	Internet    *bool `json:"internet,omitempty"`
}

// SourceRef identifies the single source an incoming candidate came from.
type SourceRef struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	URL       string    `json:"url,omitempty"`
	ScrapedAt time.Time `json:"scraped_at,omitempty"`
}

// ListingCandidate is one raw record produced by a scraper. Nil pointers mean
// the source did not report the field.
type ListingCandidate struct {
	Street      string    `json:"street"`
	Unit        string    `json:"unit,omitempty"`
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	PostalCode  string    `json:"postal_code,omitempty"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude]

	Price         *float64   `json:"price"`
	Currency      string     `json:"currency,omitempty"`
	Period        string     `json:"period,omitempty"`
	AvailableDate *time.Time `json:"available_date,omitempty"`

	Bedrooms   *int     `json:"bedrooms"`
	Bathrooms  *float64 `json:"bathrooms"`
	SquareFeet *int     `json:"square_feet,omitempty"`

	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
	FloorPlans  []string `json:"floor_plans,omitempty"`

	PetPolicy *PetPolicyPatch `json:"pet_policy,omitempty"`
	BrokerFee *BrokerFeePatch `json:"broker_fee,omitempty"`
	Utilities *UtilitiesPatch `json:"utilities,omitempty"`
	IsActive  *bool           `json:"is_active,omitempty"`

	Source SourceRef `json:"source"`
}
