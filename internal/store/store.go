// Package store persists canonical listings and saved searches. It provides a
// MongoDB implementation and an in-memory implementation with identical
// matching semantics.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/emd5953/leaseIQ-sub000/internal/criteria"
	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

var (
	// ErrNotFound is returned when a listing or search does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrVersionConflict is returned by ReplaceIfVersion when another writer
	// changed the record first.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrDuplicateKey is returned by Insert when the id or the dedup bucket
	// is already taken.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// FindOptions narrows a predicate query. Pagination and sort order belong to
// the calling layer; Limit is only a safety cap.
type FindOptions struct {
	ActiveOnly   bool
	CreatedAfter *time.Time
	Limit        int64
}

// ListingStore is the persistence contract the engine depends on.
type ListingStore interface {
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	// FindCandidates returns a superset of the listings that may duplicate the
	// given normalized address near the point. Callers apply the exact test.
	FindCandidates(ctx context.Context, normStreet, normUnit string, near geo.Point, radiusMeters float64) ([]models.Listing, error)
	Insert(ctx context.Context, l *models.Listing) error
	// ReplaceIfVersion atomically replaces the stored listing when its
	// version still equals expectedVersion.
	ReplaceIfVersion(ctx context.Context, l *models.Listing, expectedVersion int64) error
	Find(ctx context.Context, p *criteria.Predicate, opts FindOptions) ([]models.Listing, error)
}

// SavedSearchStore reads saved searches and records alert hand-offs.
type SavedSearchStore interface {
	ListAlertEnabled(ctx context.Context) ([]models.SavedSearch, error)
	// RecordMatches stores matches, skipping ids already recorded, and
	// returns how many were new.
	RecordMatches(ctx context.Context, matches []models.AlertMatch) (int, error)
	MarkAlerted(ctx context.Context, searchID string, at time.Time) error
}
