package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emd5953/leaseIQ-sub000/internal/criteria"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func listing(id string, created time.Time, price float64) *models.Listing {
	return &models.Listing{
		ID:               id,
		Address:          models.Address{Street: "123 Main St", Unit: "4B", City: "New York"},
		Location:         models.NewPoint(-74.006, 40.7128),
		NormalizedStreet: "123 main st",
		NormalizedUnit:   "4b",
		Price:            price,
		Bedrooms:         2,
		Bathrooms:        1,
		Sources:          []models.Source{{Name: "StreetEasy", SourceID: id}},
		IsActive:         true,
		CreatedAt:        created,
		UpdatedAt:        created,
		Version:          1,
	}
}

func TestMemoryListingStore_InsertAndFindByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryListingStore()
	l := listing("a", t0, 2000)
	require.NoError(t, s.Insert(ctx, l))

	got, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, got.Price)

	// Returned records are copies.
	got.Sources[0].Name = "mutated"
	again, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "StreetEasy", again.Sources[0].Name)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Insert(ctx, l), ErrDuplicateKey)
}

func TestMemoryListingStore_DedupBucketIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryListingStore()
	a := listing("a", t0, 2000)
	a.DedupBucket = "dr5regw3"
	require.NoError(t, s.Insert(ctx, a))

	b := listing("b", t0, 2100)
	b.DedupBucket = "dr5regw3"
	assert.ErrorIs(t, s.Insert(ctx, b), ErrDuplicateKey)

	b.NormalizedUnit = "5c"
	assert.NoError(t, s.Insert(ctx, b))
	assert.Equal(t, 2, s.Len())
}

func TestMemoryListingStore_ReplaceIfVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryListingStore()
	require.NoError(t, s.Insert(ctx, listing("a", t0, 2000)))

	next := listing("a", t0, 2100)
	next.Version = 2
	require.NoError(t, s.ReplaceIfVersion(ctx, next, 1))

	stale := listing("a", t0, 2200)
	stale.Version = 2
	assert.ErrorIs(t, s.ReplaceIfVersion(ctx, stale, 1), ErrVersionConflict)

	got, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2100.0, got.Price)
	assert.Equal(t, int64(2), got.Version)

	assert.ErrorIs(t, s.ReplaceIfVersion(ctx, listing("ghost", t0, 1), 1), ErrNotFound)
}

func TestMemoryListingStore_Find(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryListingStore()
	require.NoError(t, s.Insert(ctx, listing("old", t0, 2000)))
	require.NoError(t, s.Insert(ctx, listing("new", t0.Add(2*time.Hour), 2500)))
	require.NoError(t, s.Insert(ctx, listing("pricey", t0.Add(time.Hour), 4000)))
	inactive := listing("gone", t0.Add(3*time.Hour), 2200)
	inactive.IsActive = false
	require.NoError(t, s.Insert(ctx, inactive))

	maxPrice := 3000.0
	p := criteria.CompileAt(models.SearchCriteria{MaxPrice: &maxPrice}, t0)

	got, err := s.Find(ctx, p, FindOptions{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)

	after := t0
	got, err = s.Find(ctx, p, FindOptions{CreatedAfter: &after})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "gone", got[0].ID)
	assert.Equal(t, "new", got[1].ID)

	got, err = s.Find(ctx, nil, FindOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gone", got[0].ID)
}

func TestMemorySavedSearchStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySavedSearchStore(
		models.SavedSearch{ID: "s2", AlertsEnabled: true},
		models.SavedSearch{ID: "s1", AlertsEnabled: true},
		models.SavedSearch{ID: "off"},
	)

	searches, err := s.ListAlertEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, searches, 2)
	assert.Equal(t, "s1", searches[0].ID)

	n, err := s.RecordMatches(ctx, []models.AlertMatch{{ID: "s1:a", SearchID: "s1", ListingID: "a"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.Matches(), 1)

	// a repeated id is skipped, a new one in the same batch is kept
	n, err = s.RecordMatches(ctx, []models.AlertMatch{
		{ID: "s1:a", SearchID: "s1", ListingID: "a"},
		{ID: "s1:b", SearchID: "s1", ListingID: "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.Matches(), 2)

	require.NoError(t, s.MarkAlerted(ctx, "s1", t0))
	ss, ok := s.Search("s1")
	require.True(t, ok)
	require.NotNil(t, ss.LastAlertAt)
	assert.True(t, ss.LastAlertAt.Equal(t0))

	assert.ErrorIs(t, s.MarkAlerted(ctx, "nope", t0), ErrNotFound)
}
