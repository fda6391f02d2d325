package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/emd5953/leaseIQ-sub000/internal/config"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
)

// RawArchive keeps an audit copy of every candidate as it was received.
type RawArchive interface {
	Archive(ctx context.Context, c models.ListingCandidate, receivedAt time.Time) (string, error)
}

// ObjectPutter is the subset of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes candidates as JSON objects under raw/<source>/<date>/.
type S3Archive struct {
	bucket string
	client ObjectPutter
}

// NewS3Archive creates an archive backed by the configured bucket. It returns
// a NoopArchive when no bucket is configured.
func NewS3Archive(ctx context.Context, cfg *config.Config) (RawArchive, error) {
	if cfg.RawArchiveBucket == "" {
		return NoopArchive{}, nil
	}
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3ArchiveWithClient(cfg.RawArchiveBucket, s3.NewFromConfig(awsCfg)), nil
}

func NewS3ArchiveWithClient(bucket string, client ObjectPutter) *S3Archive {
	return &S3Archive{bucket: bucket, client: client}
}

// Archive stores c and returns the object key.
func (a *S3Archive) Archive(ctx context.Context, c models.ListingCandidate, receivedAt time.Time) (string, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode candidate: %w", err)
	}
	key := ObjectKey(c.Source, receivedAt)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive candidate to %s: %w", key, err)
	}
	return key, nil
}

// ObjectKey builds raw/<source>/<yyyy>/<mm>/<dd>/<source id>_<uuid>.json.
func ObjectKey(src models.SourceRef, receivedAt time.Time) string {
	return fmt.Sprintf("raw/%s/%s/%s_%s.json",
		keySegment(src.Name),
		receivedAt.UTC().Format("2006/01/02"),
		keySegment(src.ID),
		uuid.NewString(),
	)
}

func keySegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, s)
	if s == "" {
		return "unknown"
	}
	return s
}

// NoopArchive discards candidates.
type NoopArchive struct{}

func (NoopArchive) Archive(context.Context, models.ListingCandidate, time.Time) (string, error) {
	return "", nil
}
