package services

import (
	"math"
	"strings"

	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

// ValidateCandidate checks the fields every canonical listing requires.
// It never touches the store.
func ValidateCandidate(c *models.ListingCandidate) error {
	if strings.TrimSpace(c.Street) == "" {
		return &ValidationError{Field: "street", Reason: "must not be empty"}
	}
	if len(c.Coordinates) != 2 {
		return &ValidationError{Field: "coordinates", Reason: "must be [longitude, latitude]"}
	}
	if !geo.ValidPoint(c.Coordinates[0], c.Coordinates[1]) {
		return &ValidationError{Field: "coordinates", Reason: "longitude must be in [-180,180] and latitude in [-90,90]"}
	}
	if c.Price == nil || math.IsNaN(*c.Price) || math.IsInf(*c.Price, 0) || *c.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "must be a positive number"}
	}
	if c.Bedrooms == nil || *c.Bedrooms < 0 {
		return &ValidationError{Field: "bedrooms", Reason: "must be a non-negative integer"}
	}
	if c.Bathrooms == nil || math.IsNaN(*c.Bathrooms) || math.IsInf(*c.Bathrooms, 0) || *c.Bathrooms <= 0 {
		return &ValidationError{Field: "bathrooms", Reason: "must be a positive number"}
	}
	if c.SquareFeet != nil && *c.SquareFeet <= 0 {
		return &ValidationError{Field: "square_feet", Reason: "must be positive when present"}
	}
	if strings.TrimSpace(c.Source.Name) == "" || strings.TrimSpace(c.Source.ID) == "" {
		return &ValidationError{Field: "source", Reason: "name and id are required"}
	}
	return nil
}
