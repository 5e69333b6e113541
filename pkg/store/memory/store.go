// Package memory provides an in-memory store implementation for testing.
//
// Versions are monotonic counters, so version-guarded updates behave exactly
// like GCS generation matches or S3 ETag matches. An optional fault hook lets
// tests abort an operation mid-flight to simulate a client crash.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/coopfs/pkg/store"
)

// Op identifies which store operation a fault hook is observing.
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpCopy   Op = "copy"
	OpList   Op = "list"
)

// Hook runs before a store operation touches state. Returning an error
// aborts the operation with that error; tests use this to cut an operation
// short at a chosen point. The hook must not call back into the store.
type Hook func(op Op, key string) error

type object struct {
	data    []byte
	version int64
	updated time.Time
}

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu          sync.RWMutex
	name        string
	objects     map[string]*object
	nextVersion int64
	hook        Hook
}

// New creates a new in-memory store for the given bucket name.
func New(bucket string) *Store {
	return &Store{
		name:    bucket,
		objects: make(map[string]*object),
	}
}

// SetHook installs a fault hook. Passing nil removes it.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

func (s *Store) runHook(op Op, key string) error {
	s.mu.RLock()
	h := s.hook
	s.mu.RUnlock()
	if h == nil {
		return nil
	}
	return h(op, key)
}

// Name returns the bucket identity in URI form.
func (s *Store) Name() string {
	return store.BucketURI{Scheme: store.SchemeMemory, Bucket: s.name}.String()
}

// Create writes a new object, failing if the key already exists.
func (s *Store) Create(ctx context.Context, key string, data []byte) (store.Version, error) {
	if err := ctx.Err(); err != nil {
		return store.NoVersion, err
	}
	if err := s.runHook(OpCreate, key); err != nil {
		return store.NoVersion, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; ok {
		return store.NoVersion, store.NewAlreadyExistsError(key)
	}

	s.nextVersion++
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[key] = &object{
		data:    copied,
		version: s.nextVersion,
		updated: time.Now(),
	}

	return versionToken(s.nextVersion), nil
}

// Read returns a copy of the object content and its current version.
func (s *Store) Read(ctx context.Context, key string) ([]byte, store.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NoVersion, err
	}
	if err := s.runHook(OpRead, key); err != nil {
		return nil, store.NoVersion, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, store.NoVersion, store.NewNotFoundError(key)
	}

	copied := make([]byte, len(obj.data))
	copy(copied, obj.data)
	return copied, versionToken(obj.version), nil
}

// Update rewrites an object if its current version still equals expect.
func (s *Store) Update(ctx context.Context, key string, data []byte, expect store.Version) (store.Version, error) {
	if err := ctx.Err(); err != nil {
		return store.NoVersion, err
	}
	if err := s.runHook(OpUpdate, key); err != nil {
		return store.NoVersion, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	if !ok {
		return store.NoVersion, store.NewNotFoundError(key)
	}
	if versionToken(obj.version) != expect {
		return store.NoVersion, store.NewPreconditionFailedError(key, expect)
	}

	s.nextVersion++
	copied := make([]byte, len(data))
	copy(copied, data)
	obj.data = copied
	obj.version = s.nextVersion
	obj.updated = time.Now()

	return versionToken(obj.version), nil
}

// Delete removes an object. Deleting a missing object succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.runHook(OpDelete, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

// Copy copies an object to a new key, overwriting any existing destination.
func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.runHook(OpCopy, srcKey); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.objects[srcKey]
	if !ok {
		return store.NewNotFoundError(srcKey)
	}

	s.nextVersion++
	copied := make([]byte, len(src.data))
	copy(copied, src.data)
	s.objects[dstKey] = &object{
		data:    copied,
		version: s.nextVersion,
		updated: time.Now(),
	}

	return nil
}

// List returns all objects under prefix in ascending lexical key order.
func (s *Store) List(ctx context.Context, prefix string) ([]store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.runHook(OpList, prefix); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []store.ObjectInfo
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, store.ObjectInfo{
				Key:     key,
				Size:    int64(len(obj.data)),
				Version: versionToken(obj.version),
				Updated: obj.updated,
			})
		}
	}

	// Sort for deterministic output
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Exists reports whether an object with the given key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[key]
	return ok, nil
}

// ObjectCount returns the number of objects stored (for testing).
func (s *Store) ObjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func versionToken(v int64) store.Version {
	return store.Version(strconv.FormatInt(v, 10))
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
