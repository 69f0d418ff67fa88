package archive

import (
	"fmt"
	"strings"
	"time"
)

// maxKeyLength mirrors the object store's key limit.
const maxKeyLength = 1024

// Descriptor describes one listed remote object. Immutable after listing;
// the set of descriptors produced by a run's listing is the universe every
// later count is reconciled against.
type Descriptor struct {
	// Key is the object's remote path, relative to the bucket.
	Key string

	// Size is the listed object size in bytes.
	Size int64

	// ContentTag is the store's opaque integrity hint (ETag). It is carried
	// for audit output only and never treated as a trusted content hash.
	ContentTag string

	// ModifiedAt is the store's last-modified timestamp.
	ModifiedAt time.Time
}

// ValidateKey rejects keys that are empty, oversized, traversing, absolute,
// or containing control characters. Listing drops invalid keys instead of
// carrying them into the download stage.
func ValidateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: leading slash", ErrUnsafeKey)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return fmt.Errorf("%w: parent traversal", ErrUnsafeKey)
		}
	}
	for _, r := range key {
		if r < 0x20 {
			return fmt.Errorf("%w: control character", ErrUnsafeKey)
		}
	}
	return nil
}

// Validate checks the descriptor's own fields.
func (d Descriptor) Validate() error {
	if err := ValidateKey(d.Key); err != nil {
		return err
	}
	if d.Size < 0 {
		return fmt.Errorf("negative size %d for key %s", d.Size, d.Key)
	}
	return nil
}
