package storage

import (
	"context"
	"io"
)

// ObjectStore abstracts the object store the pipeline reads archives from.
// Implementations exist for S3-compatible stores and the local filesystem;
// the pipeline never depends on which one is behind the interface.
type ObjectStore interface {
	// ListPage returns one page of objects under prefix, resuming from
	// token. An empty NextToken on the returned page means the listing is
	// complete.
	ListPage(ctx context.Context, bucket, prefix, token string) (Page, error)

	// List drains all pages under prefix and returns the concatenation.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// Get opens the object for reading. The caller owns the ReadCloser.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Put stores an object under key.
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error

	// Exists checks whether key is present without fetching the body.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// Delete removes the object. Deleting an absent key is not an error.
	Delete(ctx context.Context, bucket, key string) error
}
