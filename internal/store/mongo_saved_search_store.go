package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emd5953/leaseIQ-sub000/internal/db"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

const (
	savedSearchesCollection = "saved_searches"
	alertMatchesCollection  = "alert_matches"
)

// MongoSavedSearchStore reads saved searches and writes alert matches.
// Match ids are derived from search and listing ids, so re-recording the
// same pair is a no-op.
type MongoSavedSearchStore struct {
	searches *mongo.Collection
	matches  *mongo.Collection
}

func NewMongoSavedSearchStore(database *mongo.Database) *MongoSavedSearchStore {
	return &MongoSavedSearchStore{
		searches: database.Collection(savedSearchesCollection),
		matches:  database.Collection(alertMatchesCollection),
	}
}

// EnsureIndexes creates the index alert evaluation queries by.
func (s *MongoSavedSearchStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.searches.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "alerts_enabled", Value: 1}}})
	if err != nil {
		return fmt.Errorf("failed to create saved search indexes: %w", err)
	}
	return nil
}

func (s *MongoSavedSearchStore) ListAlertEnabled(ctx context.Context) ([]models.SavedSearch, error) {
	cursor, err := s.searches.Find(ctx, bson.M{"alerts_enabled": true}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding saved searches: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.SavedSearch
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding saved searches: %w", err)
	}
	return out, nil
}

func (s *MongoSavedSearchStore) RecordMatches(ctx context.Context, matches []models.AlertMatch) (int, error) {
	if len(matches) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(matches))
	for i, m := range matches {
		docs[i] = m
	}
	_, err := s.matches.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(matches), nil
	}
	// Unordered inserts report every failed document; duplicates were recorded by an earlier pass.
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return 0, fmt.Errorf("error recording alert matches: %w", err)
	}
	for _, we := range bwe.WriteErrors {
		if !db.IsMongoDuplicateKeyError(we) {
			return 0, fmt.Errorf("error recording alert matches: %w", err)
		}
	}
	return len(matches) - len(bwe.WriteErrors), nil
}

func (s *MongoSavedSearchStore) MarkAlerted(ctx context.Context, searchID string, at time.Time) error {
	res, err := s.searches.UpdateOne(ctx, bson.M{"_id": searchID}, bson.M{"$set": bson.M{"last_alert_at": at}})
	if err != nil {
		return fmt.Errorf("error updating saved search %s: %w", searchID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
