package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/emd5953/leaseIQ-sub000/internal/config"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

var received = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func TestObjectKey(t *testing.T) {
	key := ObjectKey(models.SourceRef{Name: "StreetEasy", ID: "abc/123"}, received)
	assert.Regexp(t, regexp.MustCompile(`^raw/streeteasy/2026/10/15/abc-123_[0-9a-f-]{36}\.json$`), key)

	key = ObjectKey(models.SourceRef{}, received)
	assert.Contains(t, key, "raw/unknown/2026/10/15/unknown_")
}

func TestS3Archive_Archive(t *testing.T) {
	putter := new(mockPutter)
	price := 2000.0
	cand := models.ListingCandidate{Street: "123 Main St", Price: &price, Source: models.SourceRef{Name: "Zillow", ID: "1"}}

	putter.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		if *in.Bucket != "raw-bucket" || *in.ContentType != "application/json" {
			return false
		}
		body, err := io.ReadAll(in.Body)
		if err != nil {
			return false
		}
		var got models.ListingCandidate
		return json.Unmarshal(body, &got) == nil && got.Street == "123 Main St"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	key, err := NewS3ArchiveWithClient("raw-bucket", putter).Archive(context.Background(), cand, received)
	require.NoError(t, err)
	assert.Contains(t, key, "raw/zillow/2026/10/15/1_")
	putter.AssertExpectations(t)
}

func TestS3Archive_PutError(t *testing.T) {
	putter := new(mockPutter)
	putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := NewS3ArchiveWithClient("raw-bucket", putter).Archive(context.Background(), models.ListingCandidate{}, received)
	assert.ErrorContains(t, err, "access denied")
}

func TestNewS3Archive_NoBucketIsNoop(t *testing.T) {
	a, err := NewS3Archive(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, NoopArchive{}, a)

	key, err := a.Archive(context.Background(), models.ListingCandidate{}, received)
	assert.NoError(t, err)
	assert.Empty(t, key)
}
