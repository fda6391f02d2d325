// Package criteria compiles stored search criteria into declarative predicates
// over canonical listings. Predicates are independent of any query language:
// they can be evaluated in memory or translated by a store adapter.
package criteria

import (
	"fmt"
	"strings"
	"time"

	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

// Field names a canonical listing attribute. Values match the listing's bson
// paths so store adapters can use them directly.
type Field string

const (
	FieldPrice             Field = "price"
	FieldBedrooms          Field = "bedrooms"
	FieldBathrooms         Field = "bathrooms"
	FieldSquareFeet        Field = "square_feet"
	FieldAvailableDate     Field = "available_date"
	FieldCreatedAt         Field = "created_at"
	FieldDogsAllowed       Field = "pet_policy.dogs_allowed"
	FieldCatsAllowed       Field = "pet_policy.cats_allowed"
	FieldBrokerFeeRequired Field = "broker_fee.required"
	FieldAmenities         Field = "amenities"
	FieldCity              Field = "address.city"
	FieldStreet            Field = "address.street"
)

// Op is a clause operator.
type Op string

const (
	OpGTE Op = "gte" // inclusive lower bound; Value is float64 or time.Time
	OpLTE Op = "lte" // inclusive upper bound; Value is float64 or time.Time
	OpEq  Op = "eq"  // Value is bool
	OpAll Op = "all" // field set must contain every element of Value ([]string)

	// OpNeighborhood matches when the city equals any token or the street
	// contains any token, both case-insensitively. Field is FieldCity and
	// Value is a []string of lower-cased tokens.
	OpNeighborhood Op = "neighborhood"
)

// Clause is one conjunct of a Predicate.
type Clause struct {
	Field Field
	Op    Op
	Value any
}

func (c Clause) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Matches evaluates the clause against l. A bound on an optional field the
// listing does not have never matches.
func (c Clause) Matches(l *models.Listing) bool {
	switch c.Op {
	case OpGTE, OpLTE:
		switch bound := c.Value.(type) {
		case float64:
			v, ok := numberValue(l, c.Field)
			if !ok {
				return false
			}
			if c.Op == OpGTE {
				return v >= bound
			}
			return v <= bound
		case time.Time:
			v, ok := timeValue(l, c.Field)
			if !ok {
				return false
			}
			if c.Op == OpGTE {
				return !v.Before(bound)
			}
			return !v.After(bound)
		}
		return false
	case OpEq:
		want, ok := c.Value.(bool)
		if !ok {
			return false
		}
		v, ok := boolValue(l, c.Field)
		return ok && v == want
	case OpAll:
		required, _ := c.Value.([]string)
		have := make(map[string]struct{}, len(l.Amenities))
		for _, a := range l.Amenities {
			have[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
		}
		for _, r := range required {
			if _, ok := have[r]; !ok {
				return false
			}
		}
		return true
	case OpNeighborhood:
		tokens, _ := c.Value.([]string)
		city := strings.ToLower(strings.TrimSpace(l.Address.City))
		street := strings.ToLower(l.Address.Street)
		for _, tok := range tokens {
			if city == tok || strings.Contains(street, tok) {
				return true
			}
		}
		return false
	}
	return false
}

// Predicate is an immutable conjunction of clauses. The zero-clause predicate
// matches every listing.
type Predicate struct {
	clauses    []Clause
	compiledAt time.Time
}

// Clauses returns a copy of the predicate's clauses.
func (p *Predicate) Clauses() []Clause {
	return append([]Clause(nil), p.clauses...)
}

// CompiledAt is the reference time used for relative bounds such as listing age.
func (p *Predicate) CompiledAt() time.Time {
	return p.compiledAt
}

func (p *Predicate) Empty() bool {
	return len(p.clauses) == 0
}

// Matches reports whether l satisfies every clause.
func (p *Predicate) Matches(l *models.Listing) bool {
	for _, c := range p.clauses {
		if !c.Matches(l) {
			return false
		}
	}
	return true
}

// Evaluate reports whether l satisfies p.
func Evaluate(p *Predicate, l *models.Listing) bool {
	if p == nil {
		return true
	}
	return p.Matches(l)
}

func (p *Predicate) String() string {
	parts := make([]string, len(p.clauses))
	for i, c := range p.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

func numberValue(l *models.Listing, f Field) (float64, bool) {
	switch f {
	case FieldPrice:
		return l.Price, true
	case FieldBedrooms:
		return float64(l.Bedrooms), true
	case FieldBathrooms:
		return l.Bathrooms, true
	case FieldSquareFeet:
		if l.SquareFeet == nil {
			return 0, false
		}
		return float64(*l.SquareFeet), true
	}
	return 0, false
}

func timeValue(l *models.Listing, f Field) (time.Time, bool) {
	switch f {
	case FieldAvailableDate:
		if l.AvailableDate == nil {
			return time.Time{}, false
		}
		return *l.AvailableDate, true
	case FieldCreatedAt:
		return l.CreatedAt, true
	}
	return time.Time{}, false
}

func boolValue(l *models.Listing, f Field) (bool, bool) {
	switch f {
	case FieldDogsAllowed:
		return l.PetPolicy.DogsAllowed, true
	case FieldCatsAllowed:
		return l.PetPolicy.CatsAllowed, true
	case FieldBrokerFeeRequired:
		return l.BrokerFee.Required, true
	}
	return false, false
}
