// Package storage reads raw emails from and writes attachment copies to S3.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jarrod-lowe/jmap-service-libs/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// S3API abstracts the S3 operations used by S3Store for dependency inversion.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store reads and writes whole objects.
type S3Store struct {
	client S3API
}

// NewS3Store creates a new S3Store.
func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client}
}

// Get returns the full content of bucket/key.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	ctx, span := tracing.Tracer("connect-email-storage").Start(ctx, "storage.Get",
		trace.WithAttributes(attribute.String("bucket", bucket), attribute.String("key", key)))
	defer span.End()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		tracing.RecordError(span, err)
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	span.SetAttributes(attribute.Int("size", len(data)))
	return data, nil
}

// Put writes data to bucket/key with a private ACL and returns the object URL.
func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	ctx, span := tracing.Tracer("connect-email-storage").Start(ctx, "storage.Put",
		trace.WithAttributes(attribute.String("bucket", bucket), attribute.String("key", key)))
	defer span.End()

	input := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
		ACL:    types.ObjectCannedACLPrivate,
	}
	if contentType != "" {
		input.ContentType = &contentType
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return ObjectURL(bucket, key), nil
}

// ObjectURL returns the virtual-hosted style URL of an object.
func ObjectURL(bucket, key string) string {
	return "https://" + bucket + ".s3.amazonaws.com/" + key
}
