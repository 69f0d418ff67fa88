package storage

import (
	"errors"
	"time"
)

// ErrObjectNotFound is returned by Get/Delete when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes one stored object as reported by a listing.
type ObjectInfo struct {
	// Key is the object path relative to the bucket.
	Key string

	// Size in bytes.
	Size int64

	// ETag is the store's opaque content tag, with surrounding quotes
	// stripped. Not a trustworthy content hash for multipart uploads.
	ETag string

	// LastModified is the store's modification timestamp.
	LastModified time.Time
}

// ObjectMetadata carries optional attributes attached when storing an object.
type ObjectMetadata struct {
	ContentType string
	Size        int64

	// ETag is the content tag assigned at write time. Carried for listings;
	// never a trusted content hash.
	ETag string
}

// Page is one page of a paginated listing. NextToken is empty on the final
// page.
type Page struct {
	Objects   []ObjectInfo
	NextToken string
}
