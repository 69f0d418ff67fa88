package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/pathsafe"
)

// VerifyService checks a downloaded archive before it is trusted: the local
// file must exist and its size must equal the listed size. The SHA-256
// digest is recorded for the audit trail but never compared with the store's
// content tag; that tag is an MD5 for single-part uploads and not a content
// hash at all for multipart ones.
type VerifyService struct {
	logger  observability.Logger
	metrics observability.Metrics
}

func NewVerifyService(logger observability.Logger, metrics observability.Metrics) *VerifyService {
	return &VerifyService{logger: logger, metrics: metrics}
}

// Verify validates the outcome's local copy against its descriptor. On
// failure the local copy is removed; an untrusted file must not remain where
// the decompression stage could pick it up.
func (s *VerifyService) Verify(ctx context.Context, out archive.DownloadOutcome) error {
	info, err := os.Stat(out.LocalPath)
	if err != nil {
		s.metrics.IncrementCounter("verify.missing", nil)
		return fmt.Errorf("%w: local copy not readable: %w", archive.ErrVerification, err)
	}

	if info.Size() != out.Descriptor.Size {
		s.logger.Error("Size mismatch",
			"key", pathsafe.SanitizeForLog(out.Descriptor.Key),
			"expected", out.Descriptor.Size,
			"actual", info.Size())
		s.metrics.IncrementCounter("verify.size_mismatch", nil)
		os.Remove(out.LocalPath)
		return fmt.Errorf("%w: size mismatch for %s: expected %d, got %d",
			archive.ErrVerification, out.Descriptor.Key, out.Descriptor.Size, info.Size())
	}

	digest := out.SHA256
	if digest == "" {
		// A digest normally arrives with the download; recompute when it
		// did not. Failing to compute one is a warning, not a failure;
		// the size check above is the integrity gate.
		digest, err = fileSHA256(out.LocalPath)
		if err != nil {
			s.logger.Warn("Could not compute digest",
				"key", pathsafe.SanitizeForLog(out.Descriptor.Key),
				"error", err)
			s.metrics.IncrementCounter("verify.digest_failed", nil)
		}
	}

	s.logger.Debug("Download verified",
		"key", pathsafe.SanitizeForLog(out.Descriptor.Key),
		"size", info.Size(),
		"sha256", digest)
	s.metrics.IncrementCounter("verify.success", nil)

	return nil
}

func fileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
