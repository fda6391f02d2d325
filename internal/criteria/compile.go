package criteria

import (
	"strings"
	"time"

	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

// maxListingAgeDays caps the age bound; larger values reach back past any
// listing and would otherwise overflow the date arithmetic.
const maxListingAgeDays = 1_000_000

// Compile translates c into a predicate, resolving relative bounds against the
// current time.
func Compile(c models.SearchCriteria) *Predicate {
	return CompileAt(c, time.Now().UTC())
}

// CompileAt translates c into a predicate with now as the reference time.
// Every populated bound adds one conjunctive clause; nil bounds add nothing.
func CompileAt(c models.SearchCriteria, now time.Time) *Predicate {
	p := &Predicate{compiledAt: now}
	add := func(field Field, op Op, value any) {
		p.clauses = append(p.clauses, Clause{Field: field, Op: op, Value: value})
	}

	if c.MinPrice != nil {
		add(FieldPrice, OpGTE, *c.MinPrice)
	}
	if c.MaxPrice != nil {
		add(FieldPrice, OpLTE, *c.MaxPrice)
	}
	if c.MinBedrooms != nil {
		add(FieldBedrooms, OpGTE, float64(*c.MinBedrooms))
	}
	if c.MaxBedrooms != nil {
		add(FieldBedrooms, OpLTE, float64(*c.MaxBedrooms))
	}
	if c.MinBathrooms != nil {
		add(FieldBathrooms, OpGTE, *c.MinBathrooms)
	}
	if c.MaxBathrooms != nil {
		add(FieldBathrooms, OpLTE, *c.MaxBathrooms)
	}
	if c.MinSquareFeet != nil {
		add(FieldSquareFeet, OpGTE, float64(*c.MinSquareFeet))
	}
	if c.MaxSquareFeet != nil {
		add(FieldSquareFeet, OpLTE, float64(*c.MaxSquareFeet))
	}
	if c.MoveInAfter != nil {
		add(FieldAvailableDate, OpGTE, c.MoveInAfter.UTC())
	}
	if c.MoveInBefore != nil {
		add(FieldAvailableDate, OpLTE, c.MoveInBefore.UTC())
	}

	if tokens := cleanTokens(c.Neighborhoods); len(tokens) > 0 {
		add(FieldCity, OpNeighborhood, tokens)
	}
	if amenities := cleanTokens(c.RequiredAmenities); len(amenities) > 0 {
		add(FieldAmenities, OpAll, amenities)
	}

	// A false flag is the absence of a requirement, not a requirement for absence.
	if c.RequiresDogsAllowed {
		add(FieldDogsAllowed, OpEq, true)
	}
	if c.RequiresCatsAllowed {
		add(FieldCatsAllowed, OpEq, true)
	}
	if c.NoFeeOnly {
		add(FieldBrokerFeeRequired, OpEq, false)
	}

	if c.MaxListingAgeDays != nil {
		days := min(max(*c.MaxListingAgeDays, -maxListingAgeDays), maxListingAgeDays)
		add(FieldCreatedAt, OpGTE, now.AddDate(0, 0, -days).UTC())
	}

	return p
}

// cleanTokens lower-cases, trims and de-duplicates, dropping empty entries.
func cleanTokens(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		t := strings.ToLower(strings.TrimSpace(s))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
