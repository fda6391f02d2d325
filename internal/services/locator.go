package services

import (
	"context"
	"sort"

	"github.com/emd5953/leaseIQ-sub000/internal/address"
	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

// DefaultRadiusMeters is the proximity radius used when none is configured.
const DefaultRadiusMeters = 50.0

// IDuplicateLocator finds canonical listings that an address and point
// would duplicate.
type IDuplicateLocator interface {
	FindDuplicates(ctx context.Context, street, unit string, coords geo.Point, radiusMeters float64) ([]models.Listing, error)
}

type duplicateLocator struct {
	store         store.ListingStore
	defaultRadius float64
}

// NewDuplicateLocator creates a locator; radiusMeters <= 0 means DefaultRadiusMeters.
func NewDuplicateLocator(s store.ListingStore, radiusMeters float64) IDuplicateLocator {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &duplicateLocator{store: s, defaultRadius: radiusMeters}
}

// FindDuplicates returns every listing whose normalized street and unit equal
// the query's and whose distance is within the radius, ordered by CreatedAt
// then ID. A radius <= 0 means the configured default.
func (d *duplicateLocator) FindDuplicates(ctx context.Context, street, unit string, coords geo.Point, radiusMeters float64) ([]models.Listing, error) {
	if radiusMeters <= 0 {
		radiusMeters = d.defaultRadius
	}
	normStreet := address.Normalize(street)
	if normStreet == "" {
		return nil, nil
	}
	normUnit := address.NormalizeUnit(unit)

	candidates, err := d.store.FindCandidates(ctx, normStreet, normUnit, coords, radiusMeters)
	if err != nil {
		return nil, storeError("find duplicate candidates", err)
	}

	var out []models.Listing
	for _, c := range candidates {
		// Stored derived fields may predate a normalizer change, so compare
		// against freshly normalized display values.
		if address.Normalize(c.Address.Street) != normStreet || address.NormalizeUnit(c.Address.Unit) != normUnit {
			continue
		}
		lon, lat := c.Coordinates()
		if len(c.Location.Coordinates) != 2 || geo.DistanceMeters(geo.Point{lon, lat}, coords) > radiusMeters {
			continue
		}
		out = append(out, c)
	}
	sortByAge(out)
	return out, nil
}

// sortByAge orders listings oldest first, breaking ties by ID.
func sortByAge(ls []models.Listing) {
	sort.SliceStable(ls, func(i, j int) bool {
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.Before(ls[j].CreatedAt)
		}
		return ls[i].ID < ls[j].ID
	})
}
