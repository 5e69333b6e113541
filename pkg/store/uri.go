package store

import (
	"fmt"
	"net/url"
	"strings"
)

// Supported URI schemes.
const (
	SchemeGCS    = "gs"
	SchemeS3     = "s3"
	SchemeMemory = "mem"
)

// BucketURI identifies a bucket on a specific backend.
type BucketURI struct {
	// Scheme selects the backend ("gs", "s3" or "mem")
	Scheme string

	// Bucket is the bucket name
	Bucket string
}

// String returns the canonical URI form.
func (u BucketURI) String() string {
	return fmt.Sprintf("%s://%s", u.Scheme, u.Bucket)
}

// ParseBucketURI parses a bucket URI of the form scheme://bucket.
//
// The URI must name a whole bucket: a key path after the bucket is rejected
// so a mistyped object URI cannot silently scope an operation to the wrong
// place. Prefix scoping is a separate, explicit parameter everywhere it is
// supported.
//
// Returns:
//   - BucketURI: Parsed scheme and bucket name
//   - error: ErrInvalidArgument describing what is malformed
func ParseBucketURI(raw string) (BucketURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return BucketURI{}, NewInvalidArgumentError(fmt.Sprintf("invalid bucket URI %q: %v", raw, err))
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case SchemeGCS, SchemeS3, SchemeMemory:
	case "":
		return BucketURI{}, NewInvalidArgumentError(fmt.Sprintf("bucket URI %q has no scheme (want gs://, s3:// or mem://)", raw))
	default:
		return BucketURI{}, NewInvalidArgumentError(fmt.Sprintf("unsupported scheme %q in bucket URI %q", u.Scheme, raw))
	}

	if u.Host == "" {
		return BucketURI{}, NewInvalidArgumentError(fmt.Sprintf("bucket URI %q has no bucket name", raw))
	}
	if u.Path != "" && u.Path != "/" {
		return BucketURI{}, NewInvalidArgumentError(fmt.Sprintf("bucket URI %q must not contain a key path", raw))
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return BucketURI{}, NewInvalidArgumentError(fmt.Sprintf("bucket URI %q must not contain a query or fragment", raw))
	}

	return BucketURI{Scheme: scheme, Bucket: u.Host}, nil
}
