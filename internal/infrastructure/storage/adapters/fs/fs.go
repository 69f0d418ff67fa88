package fs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/storage"
)

const metadataSuffix = ".meta.json"

// pageSize mirrors the S3 ListObjectsV2 page limit so paginated code paths
// behave the same against either backend.
const pageSize = 1000

// Storage implements the object store on the local filesystem. Buckets are
// directories under the base path and object metadata lives in sidecar
// files. It exists for local development and tests, where it stands in for
// S3 without any AWS dependency.
type Storage struct {
	basePath string
	logger   observability.Logger
	metrics  observability.Metrics
}

// New creates a filesystem-backed object store rooted at basePath.
func New(basePath string, logger observability.Logger, metrics observability.Metrics) (storage.ObjectStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error("Failed to create base path", "path", basePath, "error", err)
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", basePath)

	return &Storage{
		basePath: basePath,
		logger:   logger,
		metrics:  metrics.WithTags(map[string]string{"storage": "filesystem"}),
	}, nil
}

// ListPage returns one lexicographically ordered page of keys under the
// prefix. The continuation token is the last key of the previous page.
func (s *Storage) ListPage(ctx context.Context, bucket, prefix, token string) (storage.Page, error) {
	all, err := s.List(ctx, bucket, prefix)
	if err != nil {
		return storage.Page{}, err
	}

	start := 0
	if token != "" {
		start = sort.Search(len(all), func(i int) bool { return all[i].Key > token })
	}

	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	page := storage.Page{Objects: all[start:end]}
	if end < len(all) {
		page.NextToken = all[end-1].Key
	}
	return page, nil
}

// List returns all objects in a bucket under the prefix, sorted by key.
func (s *Storage) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	s.metrics.IncrementCounter("storage.list.attempts", map[string]string{"bucket": bucket})

	bucketPath := filepath.Join(s.basePath, bucket)

	var objects []storage.ObjectInfo

	err := filepath.WalkDir(bucketPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return nil
		}

		if d.IsDir() || strings.HasSuffix(path, metadataSuffix) {
			return nil
		}

		relPath, relErr := filepath.Rel(bucketPath, path)
		if relErr != nil {
			return nil
		}
		key := filepath.ToSlash(relPath)

		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}

		objects = append(objects, storage.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			ETag:         s.loadMetadata(path).ETag,
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to list objects", "bucket", bucket, "error", err)
		s.metrics.IncrementCounter("storage.list.errors", map[string]string{"bucket": bucket})
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	s.metrics.IncrementCounter("storage.list.success", map[string]string{"bucket": bucket})
	return objects, nil
}

// Get opens an object for reading. Missing keys map to
// storage.ErrObjectNotFound, matching the S3 adapter.
func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.metrics.IncrementCounter("storage.get.attempts", map[string]string{"bucket": bucket})

	objectPath := s.objectPath(bucket, key)

	file, err := os.Open(objectPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.metrics.IncrementCounter("storage.get.errors", map[string]string{"bucket": bucket, "error": "not_found"})
			return nil, storage.ErrObjectNotFound
		}
		s.logger.Error("Failed to open file", "path", objectPath, "error", err)
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"bucket": bucket, "error": "open"})
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s.metrics.IncrementCounter("storage.get.success", map[string]string{"bucket": bucket})
	return file, nil
}

// Put stores an object and its metadata sidecar.
func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata storage.ObjectMetadata) error {
	s.metrics.IncrementCounter("storage.put.attempts", map[string]string{"bucket": bucket})

	objectPath := s.objectPath(bucket, key)

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "mkdir"})
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	file, err := os.Create(objectPath)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "create"})
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// Single-part S3 ETags are the body's MD5; mirror that so listings
	// against either backend carry a content tag.
	hasher := md5.New()
	bytesWritten, err := io.Copy(io.MultiWriter(file, hasher), reader)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "write"})
		return fmt.Errorf("failed to write data: %w", err)
	}

	metadata.Size = bytesWritten
	metadata.ETag = hex.EncodeToString(hasher.Sum(nil))
	if err := s.saveMetadata(bucket, key, metadata); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "metadata"})
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	s.logger.Info("Object stored",
		"bucket", bucket,
		"key", key,
		"bytes", bytesWritten)
	s.metrics.IncrementCounter("storage.put.success", map[string]string{"bucket": bucket})

	return nil
}

// Exists checks whether an object exists.
func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := os.Stat(s.objectPath(bucket, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

// Delete removes an object and its metadata sidecar.
func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	objectPath := s.objectPath(bucket, key)

	if err := os.Remove(objectPath); err != nil && !os.IsNotExist(err) {
		s.metrics.IncrementCounter("storage.delete.errors", map[string]string{"bucket": bucket})
		return fmt.Errorf("failed to delete object: %w", err)
	}

	// Sidecar may not exist; that is fine.
	os.Remove(objectPath + metadataSuffix)

	s.metrics.IncrementCounter("storage.delete.success", map[string]string{"bucket": bucket})
	return nil
}

func (s *Storage) objectPath(bucket, key string) string {
	key = strings.TrimPrefix(key, "/")
	key = filepath.FromSlash(key)
	return filepath.Join(s.basePath, bucket, key)
}

func (s *Storage) saveMetadata(bucket, key string, metadata storage.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(s.objectPath(bucket, key)+metadataSuffix, data, 0o644)
}

// loadMetadata reads an object's sidecar. Objects placed on disk without a
// sidecar simply list with empty metadata.
func (s *Storage) loadMetadata(objectPath string) storage.ObjectMetadata {
	var metadata storage.ObjectMetadata
	data, err := os.ReadFile(objectPath + metadataSuffix)
	if err != nil {
		return metadata
	}
	_ = json.Unmarshal(data, &metadata)
	return metadata
}
