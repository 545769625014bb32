package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Config contains configuration for the S3 blob store backend.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Region is the AWS region.
	Region string

	// Prefix is prepended to all keys, allowing several deployments to
	// share one bucket.
	Prefix string

	// PublicBaseURL, when set, is used to form download URLs (e.g. a CDN
	// domain). Otherwise the standard virtual-hosted S3 URL is used.
	PublicBaseURL string
}

// S3Store implements the Store interface on an S3 bucket.
type S3Store struct {
	client s3iface.S3API
	config *S3Config
}

// NewS3Store creates an S3 blob store with a fresh AWS session.
func NewS3Store(config *S3Config) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(config.Region)})
	if err != nil {
		return nil, NewStoreError("s3", "init", config.Bucket, err)
	}
	return &S3Store{client: s3.New(sess), config: config}, nil
}

// NewS3StoreWithClient creates an S3 blob store with an injected client.
func NewS3StoreWithClient(client s3iface.S3API, config *S3Config) *S3Store {
	return &S3Store{client: client, config: config}
}

func (s *S3Store) fullKey(key string) string {
	if s.config.Prefix == "" {
		return key
	}
	return strings.TrimRight(s.config.Prefix, "/") + "/" + key
}

func isNoSuchKey(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// Get returns the object bytes for a key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, NewStoreError("s3", "get", key, ErrNotFound)
		}
		return nil, NewStoreError("s3", "get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, NewStoreError("s3", "get", key, err)
	}
	return data, nil
}

// Put stores the object and returns its download URL.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(s.fullKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", NewStoreError("s3", "put", key, err)
	}

	if s.config.PublicBaseURL != "" {
		return strings.TrimRight(s.config.PublicBaseURL, "/") + "/" + s.fullKey(key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, s.fullKey(key)), nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil && !isNoSuchKey(err) {
		return NewStoreError("s3", "delete", key, err)
	}
	return nil
}

// Size returns the object size in bytes.
func (s *S3Store) Size(ctx context.Context, key string) (int64, error) {
	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, NewStoreError("s3", "size", key, ErrNotFound)
		}
		return 0, NewStoreError("s3", "size", key, err)
	}
	return aws.Int64Value(out.ContentLength), nil
}

// TotalSize returns the summed size of all objects under a key prefix.
// The listing is paginated; large prefixes may take several round trips.
func (s *S3Store) TotalSize(ctx context.Context, prefix string) (int64, error) {
	var total int64
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			total += aws.Int64Value(obj.Size)
		}
		return true
	})
	if err != nil {
		return 0, NewStoreError("s3", "total_size", prefix, err)
	}
	return total, nil
}
