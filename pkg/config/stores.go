package config

import (
	"context"
	"fmt"

	"github.com/marmos91/coopfs/pkg/store"
	"github.com/marmos91/coopfs/pkg/store/gcs"
	"github.com/marmos91/coopfs/pkg/store/memory"
	"github.com/marmos91/coopfs/pkg/store/s3"
)

// OpenStore opens the store backend selected by the bucket URI scheme.
//
// The URI picks the backend and the bucket; cfg supplies the client
// settings for that backend. Memory buckets need no settings and exist
// only for the lifetime of the process.
//
// Parameters:
//   - ctx: Context for client construction and access verification
//   - uri: Parsed bucket URI (gs://, s3:// or mem://)
//   - cfg: Backend client settings
//
// Returns:
//   - store.Store: Initialized store with verified bucket access
//   - error: Unknown scheme, client construction or access failure
func OpenStore(ctx context.Context, uri store.BucketURI, cfg StoreConfig) (store.Store, error) {
	switch uri.Scheme {
	case store.SchemeMemory:
		return memory.New(uri.Bucket), nil

	case store.SchemeS3:
		client, err := s3.NewClient(ctx,
			cfg.S3.Endpoint,
			cfg.S3.Region,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.ForcePathStyle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return s3.New(ctx, s3.Config{Client: client, Bucket: uri.Bucket})

	case store.SchemeGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return gcs.New(ctx, gcs.Config{Client: client, Bucket: uri.Bucket})

	default:
		return nil, fmt.Errorf("unknown bucket scheme: %q", uri.Scheme)
	}
}
