package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emd5953/leaseIQ-sub000/internal/address"
	"github.com/emd5953/leaseIQ-sub000/internal/cache"
	"github.com/emd5953/leaseIQ-sub000/internal/db"
	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/storage"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

// IngestResult describes what an ingest did.
type IngestResult struct {
	Listing *models.Listing
	// Created is true when no duplicate existed and a new listing was stored.
	Created bool
	// DuplicateCount is how many duplicates the locator returned on the
	// attempt that succeeded.
	DuplicateCount int
}

// IIngestionService is the entry point for scraped candidates.
type IIngestionService interface {
	Ingest(ctx context.Context, c models.ListingCandidate) (*models.Listing, error)
	IngestDetailed(ctx context.Context, c models.ListingCandidate) (*IngestResult, error)
}

// IngestionConfig tunes duplicate detection and concurrency control.
type IngestionConfig struct {
	RadiusMeters float64
	MaxRetries   int
	LockTTL      time.Duration
}

type ingestionService struct {
	store     store.ListingStore
	locator   IDuplicateLocator
	merger    IMergeResolver
	locker    cache.Locker
	archive   storage.RawArchive
	logger    *slog.Logger
	radius    float64
	precision uint
	retries   int
	lockTTL   time.Duration
	now       func() time.Time
	newID     func() string
}

// NewIngestionService wires the locator and merge resolver over s. A nil
// locker means an in-process lock; a nil archive disables archiving.
func NewIngestionService(s store.ListingStore, locker cache.Locker, archive storage.RawArchive, cfg IngestionConfig, logger *slog.Logger) IIngestionService {
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = DefaultRadiusMeters
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = db.DefaultMaxRetries
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if archive == nil {
		archive = storage.NoopArchive{}
	}
	return &ingestionService{
		store:     s,
		locator:   NewDuplicateLocator(s, cfg.RadiusMeters),
		merger:    NewMergeResolver(s, cfg.MaxRetries, logger),
		locker:    locker,
		archive:   archive,
		logger:    logger,
		radius:    cfg.RadiusMeters,
		precision: geo.BucketPrecisionFor(cfg.RadiusMeters),
		retries:   cfg.MaxRetries,
		lockTTL:   cfg.LockTTL,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, c models.ListingCandidate) (*models.Listing, error) {
	res, err := s.IngestDetailed(ctx, c)
	if err != nil {
		return nil, err
	}
	return res.Listing, nil
}

// IngestDetailed validates c, then either creates a new canonical listing or
// merges c into the oldest duplicate. Ingests of the same normalized address
// are serialized by the locker; the store's unique dedup index turns a lost
// create race into a merge.
func (s *ingestionService) IngestDetailed(ctx context.Context, c models.ListingCandidate) (*IngestResult, error) {
	if err := ValidateCandidate(&c); err != nil {
		return nil, err
	}
	point := geo.Point{c.Coordinates[0], c.Coordinates[1]}
	normStreet := address.Normalize(c.Street)
	normUnit := address.NormalizeUnit(c.Unit)
	logger := s.logger.With("street", normStreet, "unit", normUnit, "source", c.Source.Name, "source_id", c.Source.ID)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	release, err := s.locker.Acquire(lockCtx, normStreet+"|"+normUnit, s.lockTTL)
	cancel()
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			return nil, fmt.Errorf("ingest lock: %w", ErrConflictRetryable)
		}
		return nil, fmt.Errorf("ingest lock: %w: %w", ErrStoreUnavailable, err)
	}
	defer release()

	if key, err := s.archive.Archive(ctx, c, s.now().UTC()); err != nil {
		logger.Warn("failed to archive raw candidate", logging.Err(err))
	} else if key != "" {
		logger.Debug("archived raw candidate", "key", key)
	}

	for attempt := 0; attempt <= s.retries; attempt++ {
		dups, err := s.locator.FindDuplicates(ctx, c.Street, c.Unit, point, s.radius)
		if err != nil {
			return nil, err
		}

		if len(dups) == 0 {
			l := s.newListing(&c, normStreet, normUnit, point)
			err := s.store.Insert(ctx, l)
			if err == nil {
				logger.Info("created listing", "listing_id", l.ID)
				return &IngestResult{Listing: l, Created: true}, nil
			}
			if errors.Is(err, store.ErrDuplicateKey) {
				logger.Debug("lost create race, retrying as merge", "attempt", attempt)
				continue
			}
			return nil, storeError("create listing", err)
		}

		if len(dups) > 1 {
			ids := make([]string, len(dups))
			for i := range dups {
				ids[i] = dups[i].ID
			}
			logger.Warn("multiple canonical listings match; merging into the oldest", "listing_ids", ids)
		}
		merged, err := s.merger.MergeInto(ctx, dups[0].ID, c)
		if err != nil {
			return nil, err
		}
		logger.Info("merged listing", "listing_id", merged.ID, "sources", len(merged.Sources))
		return &IngestResult{Listing: merged, DuplicateCount: len(dups)}, nil
	}
	return nil, fmt.Errorf("ingest %q: create kept colliding: %w", normStreet, ErrConflictRetryable)
}

// newListing builds a canonical listing from a validated candidate. This is
// the only place CreatedAt is set.
func (s *ingestionService) newListing(c *models.ListingCandidate, normStreet, normUnit string, point geo.Point) *models.Listing {
	now := s.now().UTC()
	l := &models.Listing{
		ID: s.newID(),
		Address: models.Address{
			Street:     strings.TrimSpace(c.Street),
			Unit:       strings.TrimSpace(c.Unit),
			City:       strings.TrimSpace(c.City),
			State:      strings.TrimSpace(c.State),
			PostalCode: strings.TrimSpace(c.PostalCode),
		},
		Location:         models.NewPoint(point.Lon(), point.Lat()),
		NormalizedStreet: normStreet,
		NormalizedUnit:   normUnit,
		DedupBucket:      geo.Bucket(point, s.precision),
		Currency:         models.DefaultCurrency,
		Period:           models.DefaultPeriod,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}
	applyCandidate(l, c)
	recordSource(l, c.Source, now)
	return l
}
