package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emd5953/leaseIQ-sub000/internal/criteria"
	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

// MemoryListingStore keeps listings in process memory. FindCandidates is a
// brute-force scan; it is used by tests and single-process tooling.
type MemoryListingStore struct {
	mu       sync.RWMutex
	listings map[string]models.Listing
	buckets  map[string]string // dedup key -> listing id
}

func NewMemoryListingStore() *MemoryListingStore {
	return &MemoryListingStore{
		listings: make(map[string]models.Listing),
		buckets:  make(map[string]string),
	}
}

func dedupKey(l *models.Listing) string {
	if l.DedupBucket == "" {
		return ""
	}
	return l.NormalizedStreet + "|" + l.NormalizedUnit + "|" + l.DedupBucket
}

func (s *MemoryListingStore) FindByID(_ context.Context, id string) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := l.Clone()
	return &c, nil
}

func (s *MemoryListingStore) FindCandidates(_ context.Context, _, _ string, _ geo.Point, _ float64) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (s *MemoryListingStore) Insert(_ context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.listings[l.ID]; exists {
		return fmt.Errorf("listing %s: %w", l.ID, ErrDuplicateKey)
	}
	if key := dedupKey(l); key != "" {
		if owner, taken := s.buckets[key]; taken {
			return fmt.Errorf("dedup bucket %s held by listing %s: %w", key, owner, ErrDuplicateKey)
		}
		s.buckets[key] = l.ID
	}
	s.listings[l.ID] = l.Clone()
	return nil
}

func (s *MemoryListingStore) ReplaceIfVersion(_ context.Context, l *models.Listing, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.listings[l.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("listing %s at version %d, expected %d: %w", l.ID, current.Version, expectedVersion, ErrVersionConflict)
	}
	if oldKey, newKey := dedupKey(&current), dedupKey(l); oldKey != newKey {
		if newKey != "" {
			if owner, taken := s.buckets[newKey]; taken && owner != l.ID {
				return fmt.Errorf("dedup bucket %s held by listing %s: %w", newKey, owner, ErrDuplicateKey)
			}
			s.buckets[newKey] = l.ID
		}
		delete(s.buckets, oldKey)
	}
	s.listings[l.ID] = l.Clone()
	return nil
}

func (s *MemoryListingStore) Find(_ context.Context, p *criteria.Predicate, opts FindOptions) ([]models.Listing, error) {
	s.mu.RLock()
	var out []models.Listing
	for _, l := range s.listings {
		if opts.ActiveOnly && !l.IsActive {
			continue
		}
		if opts.CreatedAfter != nil && !l.CreatedAt.After(*opts.CreatedAfter) {
			continue
		}
		if !criteria.Evaluate(p, &l) {
			continue
		}
		out = append(out, l.Clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Len returns the number of stored listings.
func (s *MemoryListingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

func sortNewestFirst(ls []models.Listing) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.After(ls[j].CreatedAt)
		}
		return ls[i].ID < ls[j].ID
	})
}

// MemorySavedSearchStore is the in-memory counterpart of MongoSavedSearchStore.
type MemorySavedSearchStore struct {
	mu        sync.Mutex
	searches  map[string]models.SavedSearch
	matches   []models.AlertMatch
	matchByID map[string]bool
}

func NewMemorySavedSearchStore(searches ...models.SavedSearch) *MemorySavedSearchStore {
	s := &MemorySavedSearchStore{
		searches:  make(map[string]models.SavedSearch),
		matchByID: make(map[string]bool),
	}
	for _, ss := range searches {
		s.searches[ss.ID] = ss
	}
	return s
}

func (s *MemorySavedSearchStore) ListAlertEnabled(_ context.Context) ([]models.SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SavedSearch
	for _, ss := range s.searches {
		if ss.AlertsEnabled {
			out = append(out, ss)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemorySavedSearchStore) RecordMatches(_ context.Context, matches []models.AlertMatch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, m := range matches {
		if s.matchByID[m.ID] {
			continue
		}
		s.matchByID[m.ID] = true
		s.matches = append(s.matches, m)
		added++
	}
	return added, nil
}

func (s *MemorySavedSearchStore) MarkAlerted(_ context.Context, searchID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.searches[searchID]
	if !ok {
		return ErrNotFound
	}
	ss.LastAlertAt = &at
	s.searches[searchID] = ss
	return nil
}

// Matches returns the alert matches recorded so far.
func (s *MemorySavedSearchStore) Matches() []models.AlertMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AlertMatch(nil), s.matches...)
}

// Search returns the stored saved search with the given id.
func (s *MemorySavedSearchStore) Search(id string) (models.SavedSearch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.searches[id]
	return ss, ok
}
