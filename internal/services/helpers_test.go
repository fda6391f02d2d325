package services

import (
	"context"
	"sync"
	"time"

	"github.com/emd5953/leaseIQ-sub000/internal/cache"
	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

func ptr[T any](v T) *T { return &v }

// testClock is a settable clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// nopLocker grants every lock immediately, leaving only the store's unique
// index and version checks to keep ingestion consistent.
type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

var _ cache.Locker = nopLocker{}

func newTestIngestion(s store.ListingStore, locker cache.Locker, clock *testClock) *ingestionService {
	svc := NewIngestionService(s, locker, nil, IngestionConfig{RadiusMeters: 50, MaxRetries: 3, LockTTL: time.Second}, logging.Discard()).(*ingestionService)
	svc.now = clock.Now
	svc.merger.(*mergeResolver).now = clock.Now
	return svc
}

func candidate(street, unit string, lon, lat, price float64, source, sourceID string) models.ListingCandidate {
	return models.ListingCandidate{
		Street:      street,
		Unit:        unit,
		Coordinates: []float64{lon, lat},
		Price:       ptr(price),
		Bedrooms:    ptr(2),
		Bathrooms:   ptr(1.0),
		Source:      models.SourceRef{Name: source, ID: sourceID},
	}
}
