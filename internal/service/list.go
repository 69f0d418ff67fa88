// Package service holds the pipeline stage services: listing, download,
// verification, decompression, structural validation, reconciliation and
// report generation. Each service owns one stage, reports per-object
// failures as values, and never aborts a whole run on its own.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/pathsafe"
	"trailingest/internal/domain/storage"
)

// ListService enumerates archive objects for calendar dates. The listing it
// produces is the fixed universe every later reconciliation count is
// measured against.
type ListService struct {
	store   storage.ObjectStore
	bucket  string
	prefix  string
	suffix  string
	logger  observability.Logger
	metrics observability.Metrics
}

func NewListService(store storage.ObjectStore, bucket, prefix, suffix string, logger observability.Logger, metrics observability.Metrics) *ListService {
	return &ListService{
		store:   store,
		bucket:  bucket,
		prefix:  strings.TrimSuffix(prefix, "/"),
		suffix:  suffix,
		logger:  logger,
		metrics: metrics,
	}
}

// ListRange lists archives for every date in the range. A date whose listing
// fails contributes zero objects and the range continues; the error never
// escapes here.
func (s *ListService) ListRange(ctx context.Context, dr archive.DateRange) []archive.Descriptor {
	var all []archive.Descriptor

	for _, day := range dr.Dates() {
		descriptors, err := s.ListForDate(ctx, day)
		if err != nil {
			s.logger.Warn("Listing failed for date, skipping",
				"date", day.Format("2006-01-02"),
				"error", pathsafe.SanitizeForLog(err))
			s.metrics.IncrementCounter("list.dates.failed", nil)
			continue
		}
		all = append(all, descriptors...)
	}

	s.logger.Info("Listing complete",
		"days", dr.Days(),
		"objects", len(all))
	s.metrics.RecordHistogram("list.objects", float64(len(all)), nil)

	return all
}

// ListForDate lists the archives stored under the date's prefix, following
// pagination. Keys without the archive suffix and keys failing validation
// are dropped.
func (s *ListService) ListForDate(ctx context.Context, day time.Time) ([]archive.Descriptor, error) {
	prefix := s.datePrefix(day)

	var descriptors []archive.Descriptor
	token := ""
	pages := 0

	for {
		page, err := s.store.ListPage(ctx, s.bucket, prefix, token)
		if err != nil {
			return nil, fmt.Errorf("%w: prefix %s: %w", archive.ErrList, prefix, err)
		}
		pages++

		for _, obj := range page.Objects {
			if !strings.HasSuffix(obj.Key, s.suffix) {
				continue
			}
			if err := archive.ValidateKey(obj.Key); err != nil {
				s.logger.Warn("Dropping object with invalid key",
					"key", pathsafe.SanitizeForLog(obj.Key),
					"error", err)
				s.metrics.IncrementCounter("list.keys.rejected", nil)
				continue
			}
			descriptors = append(descriptors, archive.Descriptor{
				Key:        obj.Key,
				Size:       obj.Size,
				ContentTag: obj.ETag,
				ModifiedAt: obj.LastModified,
			})
		}

		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	s.logger.Debug("Listed date prefix",
		"prefix", prefix,
		"objects", len(descriptors),
		"pages", pages)

	return descriptors, nil
}

func (s *ListService) datePrefix(day time.Time) string {
	datePart := fmt.Sprintf("%04d/%02d/%02d/", day.Year(), int(day.Month()), day.Day())
	if s.prefix == "" {
		return datePart
	}
	return s.prefix + "/" + datePart
}
