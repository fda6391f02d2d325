package services

import (
	"context"

	"github.com/emd5953/leaseIQ-sub000/internal/criteria"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

// MaxSearchResults caps a single search.
const MaxSearchResults = 200

// ISearchService answers read-only listing queries.
type ISearchService interface {
	FindListingByID(ctx context.Context, id string) (*models.Listing, error)
	Search(ctx context.Context, c models.SearchCriteria, limit int) ([]models.Listing, error)
}

type searchService struct {
	store store.ListingStore
}

func NewSearchService(s store.ListingStore) ISearchService {
	return &searchService{store: s}
}

func (s *searchService) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	l, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("find listing", err)
	}
	return l, nil
}

// Search returns active listings matching c, newest first.
func (s *searchService) Search(ctx context.Context, c models.SearchCriteria, limit int) ([]models.Listing, error) {
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	out, err := s.store.Find(ctx, criteria.Compile(c), store.FindOptions{ActiveOnly: true, Limit: int64(limit)})
	if err != nil {
		return nil, storeError("search listings", err)
	}
	return out, nil
}
