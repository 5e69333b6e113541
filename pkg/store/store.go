// Package store defines the object-store contract the cooperative locking
// protocol is built on, together with its URI-based backend selection.
//
// The protocol needs exactly six primitives from a bucket: conditional
// create, version-guarded update, read, idempotent delete, single-object
// server-side copy, and lexically ordered prefix listing. Everything else
// (retries, transport, authentication) belongs to the backend SDKs.
package store

import (
	"context"
	"time"
)

// Version is an opaque token identifying one written state of an object.
//
// Backends map it to whatever their native optimistic-concurrency primitive
// uses: a GCS generation number, an S3 ETag, a counter in the in-memory
// store. Callers must treat it as opaque and only pass it back to Update
// on the same backend that produced it.
type Version string

// NoVersion is the zero Version, returned when no version is applicable.
const NoVersion Version = ""

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	// Key is the object key, relative to the bucket root
	Key string

	// Size is the object size in bytes
	Size int64

	// Version is the object's current version token
	Version Version

	// Updated is the last modification time reported by the backend
	Updated time.Time
}

// ============================================================================
// Store Interface
// ============================================================================

// Store provides bucket-scoped object operations with optimistic concurrency.
//
// A Store is bound to a single bucket at construction; keys are always
// relative to the bucket root. Implementations must be safe for concurrent
// use by multiple goroutines and must respect context cancellation on every
// call.
//
// Error Contract:
// All operations return *StoreError values for domain failures so callers
// can branch with IsNotFound, IsAlreadyExists, and IsPreconditionFailed
// regardless of backend. Infrastructure failures (network, auth) are
// wrapped with ErrIO.
type Store interface {
	// Name returns the bucket identity for logs and reports, in URI form
	// (e.g. "s3://journals", "mem://test").
	Name() string

	// Create writes a new object. It fails with ErrAlreadyExists when an
	// object of that key already exists, without modifying it; this is the
	// conditional-create primitive that makes journal creation race-safe.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - key: Object key to create
	//   - data: Full object content
	//
	// Returns:
	//   - Version: Version token of the newly created object
	//   - error: ErrAlreadyExists if the key exists, or context/IO errors
	Create(ctx context.Context, key string, data []byte) (Version, error)

	// Read returns the full content of an object and its current version.
	//
	// Returns:
	//   - []byte: Object content
	//   - Version: Version token observed with the content
	//   - error: ErrNotFound if the key does not exist, or context/IO errors
	Read(ctx context.Context, key string) ([]byte, Version, error)

	// Update rewrites an existing object if and only if its current version
	// still equals expect. A mismatch fails with ErrPreconditionFailed and
	// leaves the object untouched; the caller re-reads and decides whether
	// to retry or treat the conflict as a lost race. This primitive
	// substitutes for a mutex across processes.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - key: Object key to rewrite
	//   - data: Full replacement content
	//   - expect: Version token from the most recent Read or Update
	//
	// Returns:
	//   - Version: Version token of the rewritten object
	//   - error: ErrPreconditionFailed on version mismatch, ErrNotFound if
	//     the object vanished, or context/IO errors
	Update(ctx context.Context, key string, data []byte, expect Version) (Version, error)

	// Delete removes an object. Deleting a missing object succeeds; every
	// destructive step in the protocol relies on this idempotency to be
	// safely re-runnable.
	Delete(ctx context.Context, key string) error

	// Copy performs a server-side copy of one object to a new key within
	// the bucket, overwriting any existing destination.
	//
	// Returns:
	//   - error: ErrNotFound if the source does not exist, or context/IO errors
	Copy(ctx context.Context, srcKey, dstKey string) error

	// List returns all objects whose key starts with prefix, in ascending
	// lexical key order. An empty result is not an error.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists reports whether an object with the given key exists.
	// A missing key is (false, nil), not an error.
	Exists(ctx context.Context, key string) (bool, error)
}
