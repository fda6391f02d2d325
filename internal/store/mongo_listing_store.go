package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emd5953/leaseIQ-sub000/internal/criteria"
	"github.com/emd5953/leaseIQ-sub000/internal/db"
	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

const listingsCollection = "listings"

// candidateSlack widens the $nearSphere radius so the spherical model used by
// MongoDB never excludes a point the locator's haversine test would accept.
const candidateSlack = 1.05

// MongoListingStore implements ListingStore on a MongoDB collection.
type MongoListingStore struct {
	coll *mongo.Collection
}

func NewMongoListingStore(database *mongo.Database) *MongoListingStore {
	return &MongoListingStore{coll: database.Collection(listingsCollection)}
}

// EnsureIndexes creates the indexes candidate lookup and the dedup backstop rely on.
func (s *MongoListingStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "norm_street", Value: 1}, {Key: "norm_unit", Value: 1}}},
		{
			Keys: bson.D{{Key: "norm_street", Value: 1}, {Key: "norm_unit", Value: 1}, {Key: "dedup_bucket", Value: 1}},
			Options: options.Index().
				SetName("dedup_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"dedup_bucket": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return nil
}

func (s *MongoListingStore) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", id, err)
	}
	return &l, nil
}

func (s *MongoListingStore) FindCandidates(ctx context.Context, normStreet, normUnit string, near geo.Point, radiusMeters float64) ([]models.Listing, error) {
	filter := bson.M{
		"norm_street": normStreet,
		"norm_unit":   normUnit,
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{near.Lon(), near.Lat()},
				},
				"$maxDistance": radiusMeters*candidateSlack + 1,
			},
		},
	}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding candidate listings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Listing
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding candidate listings: %w", err)
	}
	return out, nil
}

func (s *MongoListingStore) Insert(ctx context.Context, l *models.Listing) error {
	if _, err := s.coll.InsertOne(ctx, l); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return fmt.Errorf("listing %s: %w", l.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("error inserting listing %s: %w", l.ID, err)
	}
	return nil
}

func (s *MongoListingStore) ReplaceIfVersion(ctx context.Context, l *models.Listing, expectedVersion int64) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": l.ID, "version": expectedVersion}, l)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return fmt.Errorf("listing %s: %w", l.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("error replacing listing %s: %w", l.ID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": l.ID})
	if err != nil {
		return fmt.Errorf("error checking listing %s: %w", l.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return fmt.Errorf("listing %s changed since version %d: %w", l.ID, expectedVersion, ErrVersionConflict)
}

func (s *MongoListingStore) Find(ctx context.Context, p *criteria.Predicate, opts FindOptions) ([]models.Listing, error) {
	filter := bson.M{}
	and := bson.A{ToMongoFilter(p)}
	if opts.ActiveOnly {
		and = append(and, bson.M{"is_active": true})
	}
	if opts.CreatedAfter != nil {
		and = append(and, bson.M{"created_at": bson.M{"$gt": *opts.CreatedAfter}})
	}
	filter["$and"] = and

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("error finding listings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Listing
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding listings: %w", err)
	}
	return out, nil
}
