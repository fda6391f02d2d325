package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

// mockMongoDuplicateKeyError creates an error that IsMongoDuplicateKeyError will recognize.
func mockMongoDuplicateKeyError(key string) error {
	mongoErr := mongo.WriteError{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.listings index: dedup_unique dup key: { : \"%s\" }", key),
	}
	return mongo.WriteException{WriteErrors: []mongo.WriteError{mongoErr}}
}

var errStale = errors.New("stale version")

func isStale(err error) bool { return errors.Is(err, errStale) }

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	var opCalled int
	err := WithRetries(func() error {
		opCalled++
		return nil
	}, 3, isStale)

	assert.NoError(t, err)
	assert.Equal(t, 1, opCalled)
}

func TestWithRetries_NonRetryableReturnsImmediately(t *testing.T) {
	var opCalled int
	expectedErr := errors.New("some other error")
	err := WithRetries(func() error {
		opCalled++
		return expectedErr
	}, 3, isStale)

	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 1, opCalled)
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	var opCalled int
	maxRetries := 3
	err := WithRetries(func() error {
		opCalled++
		return fmt.Errorf("listing abc: %w", errStale)
	}, maxRetries, isStale)

	assert.ErrorIs(t, err, errStale)
	assert.Equal(t, maxRetries+1, opCalled)
}

func TestWithRetries_ConflictResolves(t *testing.T) {
	stored := 2
	var opCalled int
	// Each attempt re-reads the stored version; a concurrent writer bumps it
	// once before the second attempt.
	err := WithRetries(func() error {
		opCalled++
		seen := stored
		if opCalled == 1 {
			stored++
		}
		if seen != stored {
			return errStale
		}
		stored++
		return nil
	}, 3, isStale)

	assert.NoError(t, err)
	assert.Equal(t, 2, opCalled)
	assert.Equal(t, 4, stored)
}

func TestWithRetries_ZeroRetries(t *testing.T) {
	var opCalled int
	err := WithRetries(func() error {
		opCalled++
		return errStale
	}, 0, isStale)

	assert.ErrorIs(t, err, errStale)
	assert.Equal(t, 1, opCalled)
}

func TestIsMongoDuplicateKeyError(t *testing.T) {
	assert.True(t, IsMongoDuplicateKeyError(mockMongoDuplicateKeyError("123 main st|4b|dr5regw3")))
	assert.True(t, IsMongoDuplicateKeyError(fmt.Errorf("insert: %w", mockMongoDuplicateKeyError("x"))))

	bulk := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}}}
	assert.True(t, IsMongoDuplicateKeyError(bulk))

	other := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121}}}
	assert.False(t, IsMongoDuplicateKeyError(other))
	assert.False(t, IsMongoDuplicateKeyError(errors.New("boom")))
	assert.False(t, IsMongoDuplicateKeyError(nil))
}
