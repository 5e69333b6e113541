// Package s3 implements the object-store contract on Amazon S3 or
// S3-compatible storage.
//
// Conditional writes use the If-None-Match and If-Match request headers,
// with the object ETag as the version token. Both are rejected by the
// service with HTTP 412 when the condition does not hold, which is exactly
// the lose-the-race signal the locking protocol needs.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/marmos91/coopfs/pkg/store"
)

// Store is an S3-backed implementation of store.Store.
//
// Thread Safety:
// The underlying S3 client is safe for concurrent use, and Store holds no
// mutable state of its own.
type Store struct {
	client *s3.Client
	bucket string
}

// Config contains configuration for the S3 store.
type Config struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string
}

// NewClient creates an S3 client from configuration parameters.
// This is a helper for building clients from YAML configuration; an empty
// endpoint uses the default AWS endpoints, and empty credentials fall back
// to the SDK credential chain.
func NewClient(
	ctx context.Context,
	endpoint,
	region,
	accessKeyID,
	secretAccessKey string,
	forcePathStyle bool,
) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKeyID != "" || secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"", // session token (empty for static credentials)
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = forcePathStyle
	})

	return client, nil
}

// New creates a new S3-backed store.
//
// The bucket must already exist; this function verifies access with a
// HeadBucket call and does not create it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *Store: Initialized store
//   - error: Returns error if bucket access fails or context is cancelled
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &Store{
		client: cfg.Client,
		bucket: cfg.Bucket,
	}, nil
}

// Name returns the bucket identity in URI form.
func (s *Store) Name() string {
	return store.BucketURI{Scheme: store.SchemeS3, Bucket: s.bucket}.String()
}

// Create writes a new object with If-None-Match: * so an existing object
// rejects the write.
func (s *Store) Create(ctx context.Context, key string, data []byte) (store.Version, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionError(err) {
			return store.NoVersion, store.NewAlreadyExistsError(key)
		}
		return store.NoVersion, store.NewIOError("put object failed", key, err)
	}

	return etagVersion(out.ETag), nil
}

// Read returns the full object content together with its ETag.
func (s *Store) Read(ctx context.Context, key string) ([]byte, store.Version, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, store.NoVersion, store.NewNotFoundError(key)
		}
		return nil, store.NoVersion, store.NewIOError("get object failed", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, store.NoVersion, store.NewIOError("read object body failed", key, err)
	}

	return data, etagVersion(out.ETag), nil
}

// Update rewrites an object with If-Match on the expected ETag.
func (s *Store) Update(ctx context.Context, key string, data []byte, expect store.Version) (store.Version, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(key),
		Body:    bytes.NewReader(data),
		IfMatch: aws.String(string(expect)),
	})
	if err != nil {
		if isPreconditionError(err) {
			return store.NoVersion, store.NewPreconditionFailedError(key, expect)
		}
		if isNotFoundError(err) {
			return store.NoVersion, store.NewNotFoundError(key)
		}
		return store.NoVersion, store.NewIOError("conditional put failed", key, err)
	}

	return etagVersion(out.ETag), nil
}

// Delete removes an object. S3 DeleteObject already succeeds for missing
// keys, matching the idempotency contract.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return store.NewIOError("delete object failed", key, err)
	}
	return nil
}

// Copy performs a server-side copy within the bucket.
func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(s.bucket + "/" + srcKey),
	})
	if err != nil {
		if isNotFoundError(err) {
			return store.NewNotFoundError(srcKey)
		}
		return store.NewIOError("copy object failed", srcKey, err)
	}
	return nil
}

// List returns all objects under prefix. ListObjectsV2 already yields keys
// in ascending lexical order, so no client-side sort is needed.
func (s *Store) List(ctx context.Context, prefix string) ([]store.ObjectInfo, error) {
	var infos []store.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, store.NewIOError("list objects failed", prefix, err)
		}

		for _, obj := range page.Contents {
			info := store.ObjectInfo{
				Key:     aws.ToString(obj.Key),
				Size:    aws.ToInt64(obj.Size),
				Version: etagVersion(obj.ETag),
			}
			if obj.LastModified != nil {
				info.Updated = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}

	return infos, nil
}

// Exists reports whether an object with the given key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, store.NewIOError("head object failed", key, err)
	}
	return true, nil
}

func etagVersion(etag *string) store.Version {
	if etag == nil {
		return store.NoVersion
	}
	return store.Version(*etag)
}

// isNotFoundError returns true if the error indicates the object doesn't exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check typed errors
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	// Check AWS API error code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NoSuchKey" || code == "NotFound" || code == "404" {
			return true
		}
	}

	// Check error message for 404 patterns
	errStr := err.Error()
	return strings.Contains(errStr, "StatusCode: 404") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "NoSuchKey")
}

// isPreconditionError returns true if the error indicates a failed
// conditional write (HTTP 412). Both If-None-Match and If-Match failures
// surface this way.
func isPreconditionError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "PreconditionFailed" || code == "ConditionalRequestConflict" {
			return true
		}
	}

	errStr := err.Error()
	return strings.Contains(errStr, "StatusCode: 412") ||
		strings.Contains(errStr, "PreconditionFailed")
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
