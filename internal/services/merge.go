package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emd5953/leaseIQ-sub000/internal/db"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/store"
)

// Merge folds one incoming candidate into an existing canonical listing.
//
// Mutable facts (price, dates, counts, non-empty description) take the
// incoming value when present. Images, amenities and floor plans are unioned.
// Policy objects take only the subfields the candidate reports. Street, unit,
// coordinates and CreatedAt never change; UpdatedAt becomes now and Version is
// incremented. existing is not modified.
func Merge(existing models.Listing, incoming models.ListingCandidate, now time.Time) models.Listing {
	merged := existing.Clone()

	applyCandidate(&merged, &incoming)
	recordSource(&merged, incoming.Source, now)

	if merged.Address.City == "" {
		merged.Address.City = strings.TrimSpace(incoming.City)
	}
	if merged.Address.State == "" {
		merged.Address.State = strings.TrimSpace(incoming.State)
	}
	if merged.Address.PostalCode == "" {
		merged.Address.PostalCode = strings.TrimSpace(incoming.PostalCode)
	}

	if !merged.CreatedAt.Equal(existing.CreatedAt) {
		merged.CreatedAt = existing.CreatedAt
	}
	merged.UpdatedAt = now
	if merged.UpdatedAt.Before(merged.CreatedAt) {
		merged.UpdatedAt = merged.CreatedAt
	}
	merged.Version = existing.Version + 1
	return merged
}

// applyCandidate copies the mutable fields a candidate reports onto l.
func applyCandidate(l *models.Listing, c *models.ListingCandidate) {
	if c.Price != nil {
		l.Price = *c.Price
	}
	if c.Currency != "" {
		l.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	}
	if c.Period != "" {
		l.Period = strings.ToLower(strings.TrimSpace(c.Period))
	}
	if c.AvailableDate != nil {
		d := c.AvailableDate.UTC()
		l.AvailableDate = &d
	}
	if c.Bedrooms != nil {
		l.Bedrooms = *c.Bedrooms
	}
	if c.Bathrooms != nil {
		l.Bathrooms = *c.Bathrooms
	}
	if c.SquareFeet != nil {
		v := *c.SquareFeet
		l.SquareFeet = &v
	}
	if d := strings.TrimSpace(c.Description); d != "" {
		l.Description = d
	}

	l.Images = union(l.Images, c.Images, strings.TrimSpace)
	l.Amenities = union(l.Amenities, c.Amenities, normalizeTag)
	l.FloorPlans = union(l.FloorPlans, c.FloorPlans, strings.TrimSpace)

	if p := c.PetPolicy; p != nil {
		if p.DogsAllowed != nil {
			l.PetPolicy.DogsAllowed = *p.DogsAllowed
		}
		if p.CatsAllowed != nil {
			l.PetPolicy.CatsAllowed = *p.CatsAllowed
		}
		if p.Deposit != nil {
			v := *p.Deposit
			l.PetPolicy.Deposit = &v
		}
	}
	if f := c.BrokerFee; f != nil {
		if f.Required != nil {
			l.BrokerFee.Required = *f.Required
		}
		if f.Amount != nil {
			v := *f.Amount
			l.BrokerFee.Amount = &v
		}
	}
	if u := c.Utilities; u != nil {
		setIf(&l.Utilities.Heat, u.Heat)
		setIf(&l.Utilities.Water, u.Water)
		setIf(&l.Utilities.Electricity, u.Electricity)
		setIf(&l.Utilities.Gas, u.Gas)
		setIf(&l.Utilities.Internet, u.Internet)
	}

	if c.IsActive != nil {
		l.IsActive = *c.IsActive
	}
}

// recordSource appends src, or advances LastSeen if it is already listed.
func recordSource(l *models.Listing, src models.SourceRef, now time.Time) {
	seen := src.ScrapedAt.UTC()
	if src.ScrapedAt.IsZero() {
		seen = now
	}
	name, id := strings.TrimSpace(src.Name), strings.TrimSpace(src.ID)
	for i := range l.Sources {
		if l.Sources[i].SameOrigin(name, id) {
			if seen.After(l.Sources[i].LastSeen) {
				l.Sources[i].LastSeen = seen
			}
			return
		}
	}
	l.Sources = append(l.Sources, models.Source{
		Name:      name,
		SourceID:  id,
		URL:       strings.TrimSpace(src.URL),
		FirstSeen: seen,
		LastSeen:  seen,
	})
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// union returns existing followed by the new values of incoming, cleaned by
// clean and de-duplicated. Empty values are dropped.
func union(existing, incoming []string, clean func(string) string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, cap(out))
	for _, group := range [][]string{existing, incoming} {
		for _, v := range group {
			v = clean(v)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func setIf(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// IMergeResolver persists merges with optimistic concurrency.
type IMergeResolver interface {
	MergeInto(ctx context.Context, listingID string, incoming models.ListingCandidate) (*models.Listing, error)
}

type mergeResolver struct {
	store      store.ListingStore
	maxRetries int
	logger     *slog.Logger
	now        func() time.Time
}

// NewMergeResolver creates a resolver that retries version conflicts up to
// maxRetries times, re-reading the listing on every attempt.
func NewMergeResolver(s store.ListingStore, maxRetries int, logger *slog.Logger) IMergeResolver {
	if maxRetries < 0 {
		maxRetries = db.DefaultMaxRetries
	}
	return &mergeResolver{store: s, maxRetries: maxRetries, logger: logger, now: time.Now}
}

// MergeInto loads the listing, applies Merge and writes it back only if no
// other writer changed it in between.
func (r *mergeResolver) MergeInto(ctx context.Context, listingID string, incoming models.ListingCandidate) (*models.Listing, error) {
	var merged models.Listing
	attempt := 0
	op := func() error {
		attempt++
		current, err := r.store.FindByID(ctx, listingID)
		if err != nil {
			return err
		}
		merged = Merge(*current, incoming, r.now().UTC())
		err = r.store.ReplaceIfVersion(ctx, &merged, current.Version)
		if errors.Is(err, store.ErrVersionConflict) {
			r.logger.Debug("merge version conflict", "listing_id", listingID, "attempt", attempt)
		}
		return err
	}
	isConflict := func(err error) bool { return errors.Is(err, store.ErrVersionConflict) }

	if err := db.WithRetries(op, r.maxRetries, isConflict); err != nil {
		if isConflict(err) {
			return nil, fmt.Errorf("merge into %s gave up after %d attempts: %w", listingID, attempt, ErrConflictRetryable)
		}
		return nil, storeError(fmt.Sprintf("merge into %s", listingID), err)
	}
	return &merged, nil
}
