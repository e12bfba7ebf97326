package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	getObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.getObjectFunc(ctx, params, optFns...)
}

func bodyOf(data []byte) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}
}

func TestS3Source_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("plain object", func(t *testing.T) {
		src := NewS3Source(&mockS3Client{
			getObjectFunc: func(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				assert.Equal(t, "imports", aws.ToString(params.Bucket))
				assert.Equal(t, "daily/products.csv", aws.ToString(params.Key))
				return bodyOf([]byte("name,category\nTea,Drinks\n")), nil
			},
		}, "imports")

		payload, err := src.Fetch(ctx, "daily/products.csv")
		require.NoError(t, err)
		assert.Equal(t, "name,category\nTea,Drinks\n", payload)
	})

	t.Run("gzipped object", func(t *testing.T) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte("name,category\nTea,Drinks\n"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		src := NewS3Source(&mockS3Client{
			getObjectFunc: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return bodyOf(buf.Bytes()), nil
			},
		}, "imports")

		payload, err := src.Fetch(ctx, "products.csv.gz")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(payload, "name,category"))
	})

	t.Run("too large", func(t *testing.T) {
		src := NewS3Source(&mockS3Client{
			getObjectFunc: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return bodyOf(bytes.Repeat([]byte("a"), MaxObjectSize+1)), nil
			},
		}, "imports")

		_, err := src.Fetch(ctx, "big.csv")
		assert.ErrorIs(t, err, ErrObjectTooLarge)
	})

	t.Run("get object failure", func(t *testing.T) {
		src := NewS3Source(&mockS3Client{
			getObjectFunc: func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, errors.New("NoSuchKey")
			},
		}, "imports")

		_, err := src.Fetch(ctx, "missing.csv")
		assert.ErrorContains(t, err, "failed to get object from S3")
	})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a/products.csv", FileName("a/products.csv.gz"))
	assert.Equal(t, "products.CSV", FileName("products.CSV.GZ"))
	assert.Equal(t, "products.csv", FileName("products.csv"))
}
