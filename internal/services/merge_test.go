package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

var (
	t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(72 * time.Hour)
)

func baseListing() models.Listing {
	return models.Listing{
		ID:               "L1",
		Address:          models.Address{Street: "123 Main St", Unit: "4B"},
		Location:         models.NewPoint(-74.006, 40.7128),
		NormalizedStreet: "123 main st",
		NormalizedUnit:   "4b",
		Price:            2000,
		Currency:         "USD",
		Period:           "monthly",
		Bedrooms:         2,
		Bathrooms:        1,
		Description:      "Sunny two bedroom",
		Images:           []string{"https://img/1.jpg"},
		Amenities:        []string{"gym"},
		PetPolicy:        models.PetPolicy{DogsAllowed: true, CatsAllowed: false, Deposit: ptr(300.0)},
		Sources: []models.Source{{
			Name: "StreetEasy", SourceID: "1", FirstSeen: t0, LastSeen: t0,
		}},
		IsActive:  true,
		CreatedAt: t0,
		UpdatedAt: t0,
		Version:   1,
	}
}

func TestMerge_PreservesCreatedAtAndAdvancesUpdatedAt(t *testing.T) {
	existing := baseListing()
	in := candidate("123 Main Street", "Apt 4B", -74.0061, 40.71281, 2100, "Zillow", "1")

	merged := Merge(existing, in, t1)

	assert.True(t, merged.CreatedAt.Equal(t0))
	assert.False(t, merged.UpdatedAt.Before(t1))
	assert.Equal(t, int64(2), merged.Version)
}

func TestMerge_UpdatedAtNeverBelowCreatedAt(t *testing.T) {
	existing := baseListing()
	merged := Merge(existing, candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "StreetEasy", "1"), t0.Add(-time.Hour))
	assert.True(t, merged.UpdatedAt.Equal(t0))
	assert.True(t, merged.CreatedAt.Equal(t0))
}

func TestMerge_SourcesAreAdditive(t *testing.T) {
	existing := baseListing()

	b := candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "Zillow", "1")
	b.Source.ScrapedAt = t1
	withB := Merge(existing, b, t1)
	require.Len(t, withB.Sources, 2)
	assert.Equal(t, "StreetEasy", withB.Sources[0].Name)
	assert.Equal(t, "Zillow", withB.Sources[1].Name)
	assert.True(t, withB.Sources[1].FirstSeen.Equal(t1))

	later := t1.Add(time.Hour)
	a := candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "StreetEasy", "1")
	a.Source.ScrapedAt = later
	again := Merge(withB, a, later)
	require.Len(t, again.Sources, 2)
	assert.True(t, again.Sources[0].LastSeen.Equal(later))
	assert.True(t, again.Sources[0].FirstSeen.Equal(t0))

	// Same source id under a different site is a different source.
	other := Merge(again, candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "Craigslist", "1"), later)
	assert.Len(t, other.Sources, 3)
}

func TestMerge_LastSeenDoesNotMoveBackwards(t *testing.T) {
	existing := baseListing()
	existing.Sources[0].LastSeen = t1
	stale := candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "StreetEasy", "1")
	stale.Source.ScrapedAt = t0
	merged := Merge(existing, stale, t1.Add(time.Hour))
	assert.True(t, merged.Sources[0].LastSeen.Equal(t1))
}

func TestMerge_ScalarsLastWriteWins(t *testing.T) {
	existing := baseListing()
	in := candidate("123 Main St", "4B", -74.006, 40.7128, 2400, "Zillow", "9")
	in.Bedrooms = ptr(0)
	in.Bathrooms = ptr(1.5)
	in.SquareFeet = ptr(650)
	in.AvailableDate = ptr(t1)
	in.Description = "   "

	merged := Merge(existing, in, t1)
	assert.Equal(t, 2400.0, merged.Price)
	assert.Equal(t, 0, merged.Bedrooms)
	assert.Equal(t, 1.5, merged.Bathrooms)
	require.NotNil(t, merged.SquareFeet)
	assert.Equal(t, 650, *merged.SquareFeet)
	require.NotNil(t, merged.AvailableDate)
	assert.True(t, merged.AvailableDate.Equal(t1))
	assert.Equal(t, "Sunny two bedroom", merged.Description, "blank description keeps existing")

	absent := models.ListingCandidate{Source: models.SourceRef{Name: "Zillow", ID: "9"}}
	kept := Merge(merged, absent, t1)
	assert.Equal(t, 2400.0, kept.Price)
	assert.Equal(t, 650, *kept.SquareFeet)
}

func TestMerge_CollectionsUnion(t *testing.T) {
	existing := baseListing()
	in := candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "Zillow", "1")
	in.Images = []string{"https://img/2.jpg", " https://img/1.jpg ", "https://img/2.jpg", ""}
	in.Amenities = []string{"Gym", "Parking", "parking "}

	merged := Merge(existing, in, t1)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, merged.Images)
	assert.Equal(t, []string{"gym", "parking"}, merged.Amenities)

	shrink := Merge(merged, candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "Zillow", "1"), t1)
	assert.Len(t, shrink.Images, 2, "collections never shrink")
}

func TestMerge_NestedPoliciesShallow(t *testing.T) {
	existing := baseListing()
	in := candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "Zillow", "1")
	in.PetPolicy = &models.PetPolicyPatch{CatsAllowed: ptr(true)}
	in.BrokerFee = &models.BrokerFeePatch{Required: ptr(true)}
	in.Utilities = &models.UtilitiesPatch{Heat: ptr(true)}

	merged := Merge(existing, in, t1)
	assert.True(t, merged.PetPolicy.DogsAllowed, "unspecified subfield keeps existing value")
	assert.True(t, merged.PetPolicy.CatsAllowed)
	require.NotNil(t, merged.PetPolicy.Deposit)
	assert.Equal(t, 300.0, *merged.PetPolicy.Deposit)
	assert.True(t, merged.BrokerFee.Required)
	assert.Nil(t, merged.BrokerFee.Amount)
	assert.True(t, merged.Utilities.Heat)
	assert.False(t, merged.Utilities.Water)
}

func TestMerge_IsActiveOnlyWhenExplicit(t *testing.T) {
	existing := baseListing()
	in := candidate("123 Main St", "4B", -74.006, 40.7128, 2000, "Zillow", "1")
	assert.True(t, Merge(existing, in, t1).IsActive)

	in.IsActive = ptr(false)
	assert.False(t, Merge(existing, in, t1).IsActive)
}

func TestMerge_IdentityAndInputUntouched(t *testing.T) {
	existing := baseListing()
	in := candidate("999 Other Ave", "7", 10, 10, 2000, "Zillow", "1")
	in.City = "New York"
	in.Amenities = []string{"pool"}

	merged := Merge(existing, in, t1)
	assert.Equal(t, "123 Main St", merged.Address.Street)
	assert.Equal(t, "4B", merged.Address.Unit)
	assert.Equal(t, []float64{-74.006, 40.7128}, merged.Location.Coordinates)
	assert.Equal(t, "New York", merged.Address.City, "empty display fields are filled")

	assert.Equal(t, []string{"gym"}, existing.Amenities)
	assert.Len(t, existing.Sources, 1)
	assert.Equal(t, int64(1), existing.Version)
}

// conflictingStore lets another writer bump the version before the first
// n replacements.
type conflictingStore struct {
	*store.MemoryListingStore
	n     int
	calls int
}

func (s *conflictingStore) ReplaceIfVersion(ctx context.Context, l *models.Listing, expected int64) error {
	s.calls++
	if s.calls <= s.n {
		cur, err := s.MemoryListingStore.FindByID(ctx, l.ID)
		if err != nil {
			return err
		}
		cur.Price += 1
		cur.Version++
		if err := s.MemoryListingStore.ReplaceIfVersion(ctx, cur, cur.Version-1); err != nil {
			return err
		}
	}
	return s.MemoryListingStore.ReplaceIfVersion(ctx, l, expected)
}

func TestMergeResolver_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryListingStore()
	existing := baseListing()
	require.NoError(t, mem.Insert(ctx, &existing))

	s := &conflictingStore{MemoryListingStore: mem, n: 2}
	r := NewMergeResolver(s, 3, logging.Discard())
	in := candidate("123 Main St", "4B", -74.006, 40.7128, 2500, "Zillow", "1")

	merged, err := r.MergeInto(ctx, "L1", in)
	require.NoError(t, err)
	assert.Equal(t, 3, s.calls)
	assert.Equal(t, 2500.0, merged.Price)
	assert.Equal(t, int64(4), merged.Version, "merge applied on top of the re-fetched record")
	assert.Len(t, merged.Sources, 2)

	stored, err := mem.FindByID(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, merged.Version, stored.Version)
}

func TestMergeResolver_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryListingStore()
	existing := baseListing()
	require.NoError(t, mem.Insert(ctx, &existing))

	s := &conflictingStore{MemoryListingStore: mem, n: 100}
	r := NewMergeResolver(s, 3, logging.Discard())

	_, err := r.MergeInto(ctx, "L1", candidate("123 Main St", "4B", -74.006, 40.7128, 2500, "Zillow", "1"))
	assert.ErrorIs(t, err, ErrConflictRetryable)
	assert.Equal(t, 4, s.calls)
}

func TestMergeResolver_NotFound(t *testing.T) {
	r := NewMergeResolver(store.NewMemoryListingStore(), 3, logging.Discard())
	_, err := r.MergeInto(context.Background(), "gone", candidate("123 Main St", "4B", -74.006, 40.7128, 2500, "Zillow", "1"))
	assert.ErrorIs(t, err, ErrNotFound)
}
