package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emd5953/leaseIQ-sub000/internal/criteria"
	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

// AlertRunSummary reports one evaluation pass.
type AlertRunSummary struct {
	StartedAt time.Time `json:"started_at"`
	Searches  int       `json:"searches"`
	Matches   int       `json:"matches"`
	Failed    int       `json:"failed"`
}

// IAlertService evaluates saved searches against newly created listings.
type IAlertService interface {
	EvaluateAll(ctx context.Context) (*AlertRunSummary, error)
}

// DefaultAlertOverlap is how far before LastAlertAt a pass looks again for
// listings whose insert committed after their CreatedAt stamp.
const DefaultAlertOverlap = 2 * time.Minute

type alertService struct {
	listings    store.ListingStore
	searches    store.SavedSearchStore
	concurrency int
	overlap     time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewAlertService(listings store.ListingStore, searches store.SavedSearchStore, concurrency int, overlap time.Duration, logger *slog.Logger) IAlertService {
	if concurrency <= 0 {
		concurrency = 1
	}
	if overlap <= 0 {
		overlap = DefaultAlertOverlap
	}
	return &alertService{
		listings:    listings,
		searches:    searches,
		concurrency: concurrency,
		overlap:     overlap,
		logger:      logger,
		now:         time.Now,
	}
}

// EvaluateAll compiles every alert-enabled search once with the pass start
// time, records matches among active listings created since the search's last
// alert (less the overlap window), and advances LastAlertAt to the pass start.
// Matches already recorded by an earlier pass are not counted again. A failing
// search is logged and counted; it does not stop the others.
func (s *alertService) EvaluateAll(ctx context.Context) (*AlertRunSummary, error) {
	start := s.now().UTC()
	searches, err := s.searches.ListAlertEnabled(ctx)
	if err != nil {
		return nil, storeError("list saved searches", err)
	}

	summary := &AlertRunSummary{StartedAt: start, Searches: len(searches)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, ss := range searches {
		g.Go(func() error {
			n, err := s.evaluate(ctx, ss, start)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				s.logger.Error("saved search evaluation failed", "search_id", ss.ID, logging.Err(err))
				return nil
			}
			summary.Matches += n
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("alert pass finished", "searches", summary.Searches, "matches", summary.Matches, "failed", summary.Failed)
	return summary, nil
}

func (s *alertService) evaluate(ctx context.Context, ss models.SavedSearch, start time.Time) (int, error) {
	p := criteria.CompileAt(ss.Criteria, start)
	opts := store.FindOptions{ActiveOnly: true}
	if ss.LastAlertAt != nil {
		// CreatedAt is stamped before the insert commits, so a listing can
		// become visible after a pass whose start is later than its stamp.
		after := ss.LastAlertAt.Add(-s.overlap)
		opts.CreatedAfter = &after
	}
	found, err := s.listings.Find(ctx, p, opts)
	if err != nil {
		return 0, storeError("find matching listings", err)
	}

	matches := make([]models.AlertMatch, 0, len(found))
	for i := range found {
		// Listings created after the pass started wait for the next pass.
		if found[i].CreatedAt.After(start) {
			continue
		}
		matches = append(matches, models.AlertMatch{
			ID:        fmt.Sprintf("%s:%s", ss.ID, found[i].ID),
			SearchID:  ss.ID,
			UserID:    ss.UserID,
			ListingID: found[i].ID,
			MatchedAt: start,
		})
	}
	recorded, err := s.searches.RecordMatches(ctx, matches)
	if err != nil {
		return 0, storeError("record alert matches", err)
	}
	if err := s.searches.MarkAlerted(ctx, ss.ID, start); err != nil {
		return 0, storeError("mark search alerted", err)
	}
	return recorded, nil
}
