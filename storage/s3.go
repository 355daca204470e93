// Package storage holds the S3-compatible object storage backing raw
// document bytes. Works against AWS S3 as well as Cloudflare R2 and MinIO,
// anything speaking the S3 API at a custom endpoint.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
	"github.com/TripAtlas/trip-atlas-backend/logger"
	"github.com/TripAtlas/trip-atlas-backend/store"
)

// s3API is the slice of the S3 client the facade uses, extracted so tests can
// substitute a fake.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Ensure S3Storage implements store.ObjectStorage.
var _ store.ObjectStorage = (*S3Storage)(nil)

// S3Storage stores document bytes in an S3-compatible bucket.
type S3Storage struct {
	client   s3API
	bucket   string
	endpoint string
}

// NewS3Storage creates an object storage facade against endpoint with static
// credentials.
func NewS3Storage(endpoint, region, bucket, accessKeyID, secretAccessKey string) *S3Storage {
	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: &endpoint,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
	})

	return &S3Storage{
		client:   client,
		bucket:   bucket,
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// validateKey rejects storage keys containing path traversal segments.
func validateKey(key string) error {
	if key == "" {
		return apperrors.ValidationFailed("empty storage key", "")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return apperrors.ValidationFailed("path traversal detected in storage key", key)
		}
	}
	return nil
}

// Upload implements store.ObjectStorage. The content type is sniffed from the
// bytes rather than trusted from the uploader.
func (s *S3Storage) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	contentType := mimetype.Detect(data).String()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.StorageError, "put object failed")
	}

	logger.GetLogger().Debugw("Uploaded object", "key", key, "contentType", contentType, "sizeBytes", len(data))
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key), nil
}

// Download implements store.ObjectStorage.
func (s *S3Storage) Download(ctx context.Context, key string) ([]byte, string, error) {
	if err := validateKey(key); err != nil {
		return nil, "", err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, "", apperrors.NotFound("object", key)
		}
		return nil, "", apperrors.Wrap(err, apperrors.StorageError, "get object failed")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.StorageError, "read object body failed")
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return data, contentType, nil
}

// Delete implements store.ObjectStorage.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.StorageError, "delete object failed")
	}
	return nil
}

// ListKeys implements store.ObjectStorage.
func (s *S3Storage) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var continuation *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.StorageError, "list objects failed")
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			return keys, nil
		}
		continuation = out.NextContinuationToken
	}
}

func isNoSuchKey(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}
