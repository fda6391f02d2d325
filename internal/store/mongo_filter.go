package store

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/emd5953/leaseIQ-sub000/internal/criteria"
)

// ToMongoFilter translates a compiled predicate into a MongoDB filter with the
// same semantics as criteria.Evaluate.
func ToMongoFilter(p *criteria.Predicate) bson.M {
	if p == nil || p.Empty() {
		return bson.M{}
	}
	var and bson.A
	for _, c := range p.Clauses() {
		field := string(c.Field)
		switch c.Op {
		case criteria.OpGTE:
			and = append(and, bson.M{field: bson.M{"$gte": c.Value}})
		case criteria.OpLTE:
			and = append(and, bson.M{field: bson.M{"$lte": c.Value}})
		case criteria.OpEq:
			and = append(and, bson.M{field: c.Value})
		case criteria.OpAll:
			and = append(and, bson.M{field: bson.M{"$all": c.Value}})
		case criteria.OpNeighborhood:
			tokens, _ := c.Value.([]string)
			var or bson.A
			for _, tok := range tokens {
				quoted := regexp.QuoteMeta(tok)
				or = append(or,
					bson.M{string(criteria.FieldCity): primitive.Regex{Pattern: `^\s*` + quoted + `\s*$`, Options: "i"}},
					bson.M{string(criteria.FieldStreet): primitive.Regex{Pattern: quoted, Options: "i"}},
				)
			}
			and = append(and, bson.M{"$or": or})
		}
	}
	return bson.M{"$and": and}
}
