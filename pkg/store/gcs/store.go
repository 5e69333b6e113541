// Package gcs implements the object-store contract on Google Cloud Storage.
//
// Conditional writes use object generation preconditions: DoesNotExist for
// creates and GenerationMatch for updates. The generation number is the
// version token, rendered in decimal.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/marmos91/coopfs/pkg/store"
)

// Store is a GCS-backed implementation of store.Store.
//
// Thread Safety:
// The underlying storage client is safe for concurrent use, and Store holds
// no mutable state of its own.
type Store struct {
	client *storage.Client
	bucket string
}

// Config contains configuration for the GCS store.
type Config struct {
	// Client is the configured storage client
	Client *storage.Client

	// Bucket is the GCS bucket name
	Bucket string
}

// NewClient creates a storage client. An empty credentials file path falls
// back to Application Default Credentials.
func NewClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return client, nil
}

// New creates a new GCS-backed store.
//
// The bucket must already exist; this function verifies access by fetching
// bucket attributes and does not create it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: GCS configuration
//
// Returns:
//   - *Store: Initialized store
//   - error: Returns error if bucket access fails or context is cancelled
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.Bucket(cfg.Bucket).Attrs(ctx)
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
	return store.BucketURI{Scheme: store.SchemeGCS, Bucket: s.bucket}.String()
}

// Create writes a new object guarded by a DoesNotExist precondition.
func (s *Store) Create(ctx context.Context, key string, data []byte) (store.Version, error) {
	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return store.NoVersion, store.NewIOError("write object failed", key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionError(err) {
			return store.NoVersion, store.NewAlreadyExistsError(key)
		}
		return store.NoVersion, store.NewIOError("write object failed", key, err)
	}

	return generationVersion(w.Attrs().Generation), nil
}

// Read returns the full object content and the generation it was read at.
func (s *Store) Read(ctx context.Context, key string) ([]byte, store.Version, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, store.NoVersion, store.NewNotFoundError(key)
		}
		return nil, store.NoVersion, store.NewIOError("open object failed", key, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, store.NoVersion, store.NewIOError("read object failed", key, err)
	}

	return data, generationVersion(r.Attrs.Generation), nil
}

// Update rewrites an object guarded by a GenerationMatch precondition.
func (s *Store) Update(ctx context.Context, key string, data []byte, expect store.Version) (store.Version, error) {
	gen, err := parseGeneration(expect)
	if err != nil {
		return store.NoVersion, err
	}

	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{GenerationMatch: gen})

	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return store.NoVersion, store.NewIOError("write object failed", key, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionError(err) {
			return store.NoVersion, store.NewPreconditionFailedError(key, expect)
		}
		return store.NoVersion, store.NewIOError("conditional write failed", key, err)
	}

	return generationVersion(w.Attrs().Generation), nil
}

// Delete removes an object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return store.NewIOError("delete object failed", key, err)
	}
	return nil
}

// Copy performs a server-side copy within the bucket.
func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	bkt := s.client.Bucket(s.bucket)
	src := bkt.Object(srcKey)
	dst := bkt.Object(dstKey)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return store.NewNotFoundError(srcKey)
		}
		return store.NewIOError("copy object failed", srcKey, err)
	}
	return nil
}

// List returns all objects under prefix. The GCS API already yields objects
// in ascending lexical key order, so no client-side sort is needed.
func (s *Store) List(ctx context.Context, prefix string) ([]store.ObjectInfo, error) {
	var infos []store.ObjectInfo

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, store.NewIOError("list objects failed", prefix, err)
		}

		infos = append(infos, store.ObjectInfo{
			Key:     attrs.Name,
			Size:    attrs.Size,
			Version: generationVersion(attrs.Generation),
			Updated: attrs.Updated,
		})
	}

	return infos, nil
}

// Exists reports whether an object with the given key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, store.NewIOError("stat object failed", key, err)
	}
	return true, nil
}

func generationVersion(gen int64) store.Version {
	return store.Version(strconv.FormatInt(gen, 10))
}

func parseGeneration(v store.Version) (int64, error) {
	gen, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, store.NewInvalidArgumentError(fmt.Sprintf("invalid generation token %q", v))
	}
	return gen, nil
}

// isPreconditionError checks whether a GCS error indicates a failed
// generation precondition (HTTP 412).
func isPreconditionError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 412
	}
	return false
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
