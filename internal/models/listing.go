package models

import (
	"time"
)

const (
	DefaultCurrency = "USD"
	DefaultPeriod   = "monthly"
)

// Address is the display form of a listing's location. Street and unit are
// identity; city, state and postal code are denormalized for filtering.
type Address struct {
	Street     string `bson:"street" json:"street"`
	Unit       string `bson:"unit,omitempty" json:"unit,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postal_code,omitempty" json:"postal_code,omitempty"`
}

// PetPolicy describes which pets are accepted.
type PetPolicy struct {
	DogsAllowed bool     `bson:"dogs_allowed" json:"dogs_allowed"`
	CatsAllowed bool     `bson:"cats_allowed" json:"cats_allowed"`
	Deposit     *float64 `bson:"deposit,omitempty" json:"deposit,omitempty"`
}

// BrokerFee describes whether a broker fee is charged.
type BrokerFee struct {
	Required bool     `bson:"required" json:"required"`
	Amount   *float64 `bson:"amount,omitempty" json:"amount,omitempty"`
}

// Utilities lists which utilities are included in the rent.
type Utilities struct {
	Heat        bool `bson:"heat" json:"heat"`
	Water       bool `bson:"water" json:"water"`
	Electricity bool `bson:"electricity" json:"electricity"`
	Gas         bool `bson:"gas" json:"gas"`
	Internet    bool `bson:"internet" json:"internet"`
}

// Source is one provenance entry: an external site and its local id.
type Source struct {
	Name      string    `bson:"name" json:"name"`
	SourceID  string    `bson:"source_id" json:"source_id"`
	URL       string    `bson:"url,omitempty" json:"url,omitempty"`
	FirstSeen time.Time `bson:"first_seen" json:"first_seen"`
	LastSeen  time.Time `bson:"last_seen" json:"last_seen"`
}

// SameOrigin reports whether s and other identify the same source record.
func (s Source) SameOrigin(name, sourceID string) bool {
	return s.Name == name && s.SourceID == sourceID
}

// Listing is the canonical, merged record of one rental unit offering.
type Listing struct {
	ID       string  `bson:"_id" json:"id"`
	Address  Address `bson:"address" json:"address"`
	Location GeoJSON `bson:"location" json:"location"`

	// Derived identity fields kept in sync with Address and Location so the
	// store can index them.
	NormalizedStreet string `bson:"norm_street" json:"-"`
	NormalizedUnit   string `bson:"norm_unit" json:"-"`
	DedupBucket      string `bson:"dedup_bucket,omitempty" json:"-"`

	Price         float64    `bson:"price" json:"price"`
	Currency      string     `bson:"currency" json:"currency"`
	Period        string     `bson:"period" json:"period"`
	AvailableDate *time.Time `bson:"available_date,omitempty" json:"available_date,omitempty"`

	Bedrooms   int     `bson:"bedrooms" json:"bedrooms"`
	Bathrooms  float64 `bson:"bathrooms" json:"bathrooms"`
	SquareFeet *int    `bson:"square_feet,omitempty" json:"square_feet,omitempty"`

	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Images      []string `bson:"images" json:"images"`
	Amenities   []string `bson:"amenities" json:"amenities"`
	FloorPlans  []string `bson:"floor_plans" json:"floor_plans"`

	PetPolicy PetPolicy `bson:"pet_policy" json:"pet_policy"`
	BrokerFee BrokerFee `bson:"broker_fee" json:"broker_fee"`
	Utilities Utilities `bson:"utilities" json:"utilities"`

	Sources []Source `bson:"sources" json:"sources"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Version   int64     `bson:"version" json:"version"`
}

// Coordinates returns the listing position as [lon, lat].
func (l *Listing) Coordinates() (lon, lat float64) {
	if len(l.Location.Coordinates) != 2 {
		return 0, 0
	}
	return l.Location.Coordinates[0], l.Location.Coordinates[1]
}

// Clone returns a deep copy so callers can mutate the result freely.
func (l Listing) Clone() Listing {
	c := l
	c.Location.Coordinates = append([]float64(nil), l.Location.Coordinates...)
	c.Images = append([]string(nil), l.Images...)
	c.Amenities = append([]string(nil), l.Amenities...)
	c.FloorPlans = append([]string(nil), l.FloorPlans...)
	c.Sources = append([]Source(nil), l.Sources...)
	if l.AvailableDate != nil {
		d := *l.AvailableDate
		c.AvailableDate = &d
	}
	if l.SquareFeet != nil {
		v := *l.SquareFeet
		c.SquareFeet = &v
	}
	c.PetPolicy.Deposit = cloneFloat(l.PetPolicy.Deposit)
	c.BrokerFee.Amount = cloneFloat(l.BrokerFee.Amount)
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
