package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"trailingest/internal/config"
	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/pathsafe"
	"trailingest/internal/domain/storage"
)

// DownloadService persists one remote archive to the raw tree. Failures are
// reported on the returned outcome; transport errors never escape past this
// boundary. Every attempt is a full re-fetch: a partially written file is
// removed before the next try.
type DownloadService struct {
	store   storage.ObjectStore
	bucket  string
	rawRoot string
	retry   config.RetryConfig
	logger  observability.Logger
	metrics observability.Metrics
}

func NewDownloadService(store storage.ObjectStore, bucket, rawRoot string, retry config.RetryConfig, logger observability.Logger, metrics observability.Metrics) *DownloadService {
	return &DownloadService{
		store:   store,
		bucket:  bucket,
		rawRoot: rawRoot,
		retry:   retry,
		logger:  logger,
		metrics: metrics,
	}
}

// Download fetches the object to {rawRoot}/{key}. The destination path is
// containment-checked before any network or disk I/O.
func (s *DownloadService) Download(ctx context.Context, d archive.Descriptor) archive.DownloadOutcome {
	outcome := archive.DownloadOutcome{Descriptor: d}

	localPath, err := pathsafe.ResolveWithin(s.rawRoot, d.Key)
	if err != nil {
		s.logger.Error("Refusing download outside raw root",
			"key", pathsafe.SanitizeForLog(d.Key),
			"error", err)
		s.metrics.IncrementCounter("download.unsafe_path", nil)
		outcome.LastErr = fmt.Errorf("%w: %w", archive.ErrDownload, err)
		return outcome
	}
	outcome.LocalPath = localPath

	maxAttempts := s.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			outcome.LastErr = ctx.Err()
			return outcome
		}

		outcome.Attempts = attempt + 1

		digest, err := s.fetchOnce(ctx, d.Key, localPath)
		if err == nil {
			outcome.Succeeded = true
			outcome.SHA256 = digest
			s.metrics.IncrementCounter("download.success", nil)
			return outcome
		}

		lastErr = err
		s.logger.Warn("Download attempt failed",
			"key", pathsafe.SanitizeForLog(d.Key),
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"error", pathsafe.SanitizeForLog(err))
		s.metrics.IncrementCounter("download.attempt_failed", nil)

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				outcome.LastErr = ctx.Err()
				return outcome
			case <-time.After(s.backoff(attempt)):
			}
		}
	}

	outcome.LastErr = fmt.Errorf("%w after %d attempts: %w", archive.ErrDownload, maxAttempts, lastErr)
	s.metrics.IncrementCounter("download.exhausted", nil)
	return outcome
}

// fetchOnce streams the object to disk, hashing as it writes. On any error
// the partial file is removed so a later attempt starts clean.
func (s *DownloadService) fetchOnce(ctx context.Context, key, localPath string) (string, error) {
	reader, err := s.store.Get(ctx, s.bucket, key)
	if err != nil {
		return "", fmt.Errorf("fetching object: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("creating target directory: %w", err)
	}

	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("creating local file: %w", err)
	}

	hasher := sha256.New()
	_, copyErr := io.Copy(file, io.TeeReader(reader, hasher))
	closeErr := file.Close()

	if copyErr != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("writing local file: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("closing local file: %w", closeErr)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *DownloadService) backoff(attempt int) time.Duration {
	backoff := float64(s.retry.InitialBackoff) * math.Pow(s.retry.BackoffMultiplier, float64(attempt))
	if backoff > float64(s.retry.MaxBackoff) {
		backoff = float64(s.retry.MaxBackoff)
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}
