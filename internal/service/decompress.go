package service

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/pathsafe"
)

// DecompressService expands raw gzip archives into the processed tree. The
// processed name is the object key with the archive suffix stripped, so the
// transform has a clean inverse.
type DecompressService struct {
	processedRoot string
	suffix        string
	logger        observability.Logger
	metrics       observability.Metrics
}

func NewDecompressService(processedRoot, suffix string, logger observability.Logger, metrics observability.Metrics) *DecompressService {
	return &DecompressService{
		processedRoot: processedRoot,
		suffix:        suffix,
		logger:        logger,
		metrics:       metrics,
	}
}

// ProcessedName returns the relative processed path for an object key.
func (s *DecompressService) ProcessedName(key string) string {
	return strings.TrimSuffix(key, s.suffix)
}

// Decompress expands the raw file for key into the processed tree and
// returns the processed path. Re-running over an existing target overwrites
// it; decompressing the same archive twice yields the same file.
func (s *DecompressService) Decompress(ctx context.Context, rawPath, key string) (string, error) {
	targetPath, err := pathsafe.ResolveWithin(s.processedRoot, s.ProcessedName(key))
	if err != nil {
		s.metrics.IncrementCounter("decompress.unsafe_path", nil)
		return "", fmt.Errorf("%w: %w", archive.ErrDecompression, err)
	}

	raw, err := os.Open(rawPath)
	if err != nil {
		s.metrics.IncrementCounter("decompress.open_failed", nil)
		return "", fmt.Errorf("%w: opening raw file: %w", archive.ErrDecompression, err)
	}
	defer raw.Close()

	gz, err := gzip.NewReader(raw)
	if err != nil {
		s.logger.Error("Not a gzip stream",
			"key", pathsafe.SanitizeForLog(key),
			"error", err)
		s.metrics.IncrementCounter("decompress.bad_magic", nil)
		return "", fmt.Errorf("%w: %s: %w", archive.ErrDecompression, key, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: creating processed directory: %w", archive.ErrDecompression, err)
	}

	target, err := os.Create(targetPath)
	if err != nil {
		return "", fmt.Errorf("%w: creating processed file: %w", archive.ErrDecompression, err)
	}

	written, copyErr := io.Copy(target, gz)
	closeErr := target.Close()

	if copyErr != nil {
		// Truncated or corrupt stream. Remove the partial expansion so the
		// processed tree never holds half an archive.
		os.Remove(targetPath)
		s.metrics.IncrementCounter("decompress.corrupt", nil)
		return "", fmt.Errorf("%w: %s: %w", archive.ErrDecompression, key, copyErr)
	}
	if closeErr != nil {
		os.Remove(targetPath)
		return "", fmt.Errorf("%w: %s: %w", archive.ErrDecompression, key, closeErr)
	}

	s.logger.Debug("Archive decompressed",
		"key", pathsafe.SanitizeForLog(key),
		"bytes", written)
	s.metrics.IncrementCounter("decompress.success", nil)
	s.metrics.RecordHistogram("decompress.bytes", float64(written), nil)

	return targetPath, nil
}
