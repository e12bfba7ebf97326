// Package storage fetches import payloads from object storage.
package storage

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxObjectSize bounds the decoded size of an import object.
const MaxObjectSize = 10 << 20

// ErrObjectTooLarge is returned for objects above MaxObjectSize.
var ErrObjectTooLarge = errors.New("import object is too large")

// GetObjectAPI defines the S3 operation used by S3Source.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads import files from a single bucket. Keys ending in .gz are
// decompressed.
type S3Source struct {
	client GetObjectAPI
	bucket string
}

// NewS3Source creates an S3Source for bucket.
func NewS3Source(client GetObjectAPI, bucket string) *S3Source {
	return &S3Source{client: client, bucket: bucket}
}

// NewS3Client creates an S3 client from an AWS configuration. Path-style
// addressing is enabled when a custom endpoint such as LocalStack is used.
func NewS3Client(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BaseEndpoint != nil
	})
}

// Fetch returns the object body as text.
func (s *S3Source) Fetch(ctx context.Context, key string) (string, error) {
	slog.Info("loading import object", slog.String("bucket", s.bucket), slog.String("key", key))

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}
	defer result.Body.Close()

	var body io.Reader = result.Body
	if strings.HasSuffix(strings.ToLower(key), ".gz") {
		gz, err := gzip.NewReader(result.Body)
		if err != nil {
			return "", fmt.Errorf("failed to create gzip reader for S3 object %s: %w", key, err)
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxObjectSize+1))
	if err != nil {
		return "", fmt.Errorf("error reading S3 object %s: %w", key, err)
	}
	if len(data) > MaxObjectSize {
		return "", ErrObjectTooLarge
	}

	return string(data), nil
}

// FileName returns the name an import object is checked against, which is the
// key without a trailing .gz.
func FileName(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".gz") {
		return key[:len(key)-len(".gz")]
	}
	return key
}
