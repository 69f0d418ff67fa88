package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
)

// AvailabilityStatus classifies one date's local data.
type AvailabilityStatus string

const (
	// AvailabilityProcessed means decompressed, validated data is present.
	AvailabilityProcessed AvailabilityStatus = "processed"
	// AvailabilityRawOnly means only compressed downloads exist; the date
	// needs another run before downstream consumers can read it.
	AvailabilityRawOnly AvailabilityStatus = "raw_only"
	// AvailabilityMissing means no local data at all.
	AvailabilityMissing AvailabilityStatus = "missing"
)

// DateAvailability is one date's verdict.
type DateAvailability struct {
	Date   string             `json:"date"`
	Status AvailabilityStatus `json:"status"`
	Files  int                `json:"files"`
}

// AvailabilityReport summarizes a window's local coverage. Downstream
// consumers treat AllAvailable as the gate before reading the processed
// tree.
type AvailabilityReport struct {
	Dates        []DateAvailability `json:"dates"`
	AllAvailable bool               `json:"all_available"`
	Available    int                `json:"available"`
	RawOnly      int                `json:"raw_only"`
	Missing      int                `json:"missing"`
}

// AvailabilityUseCase answers "which dates of this window are ready to
// read" by inspecting the local raw and processed trees.
type AvailabilityUseCase struct {
	rawRoot       string
	processedRoot string
	prefix        string

	logger  observability.Logger
	metrics observability.Metrics
}

func NewAvailabilityUseCase(rawRoot, processedRoot, prefix string, obs observability.Observability) (*AvailabilityUseCase, error) {
	logger, mx, err := obs.ComponentsScoped("usecase.availability")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	return &AvailabilityUseCase{
		rawRoot:       rawRoot,
		processedRoot: processedRoot,
		prefix:        prefix,
		logger:        logger,
		metrics:       mx,
	}, nil
}

// Check reports per-date availability for the window. Processed data wins;
// raw-only dates are flagged so the operator knows a rerun will finish the
// job without another download.
func (u *AvailabilityUseCase) Check(ctx context.Context, dr archive.DateRange) (*AvailabilityReport, error) {
	report := &AvailabilityReport{
		Dates: make([]DateAvailability, 0, dr.Days()),
	}

	for _, day := range dr.Dates() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := u.checkDate(day)
		report.Dates = append(report.Dates, entry)

		switch entry.Status {
		case AvailabilityProcessed:
			report.Available++
		case AvailabilityRawOnly:
			report.RawOnly++
			u.logger.Warn("Date has raw downloads but no processed data",
				"date", entry.Date)
		default:
			report.Missing++
		}
	}

	report.AllAvailable = report.Missing == 0 && report.RawOnly == 0

	u.logger.Info("Availability check complete",
		"window", dr.String(),
		"available", report.Available,
		"raw_only", report.RawOnly,
		"missing", report.Missing)
	u.metrics.IncrementCounter("availability.checks", nil)
	if !report.AllAvailable {
		u.metrics.IncrementCounter("availability.gaps", nil)
	}

	return report, nil
}

func (u *AvailabilityUseCase) checkDate(day time.Time) DateAvailability {
	date := day.Format("2006-01-02")
	dateDir := day.Format("2006/01/02")

	processed := countFiles(filepath.Join(u.processedRoot, filepath.FromSlash(u.prefix), filepath.FromSlash(dateDir)))
	if processed > 0 {
		return DateAvailability{Date: date, Status: AvailabilityProcessed, Files: processed}
	}

	raw := countFiles(filepath.Join(u.rawRoot, filepath.FromSlash(u.prefix), filepath.FromSlash(dateDir)))
	if raw > 0 {
		return DateAvailability{Date: date, Status: AvailabilityRawOnly, Files: raw}
	}

	return DateAvailability{Date: date, Status: AvailabilityMissing}
}

// PresentDates enumerates every date with processed data, in ascending
// order. It reads the {prefix}/YYYY/MM/DD layout the pipeline writes.
func (u *AvailabilityUseCase) PresentDates(ctx context.Context) ([]string, error) {
	base := filepath.Join(u.processedRoot, filepath.FromSlash(u.prefix))

	var dates []string
	years, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading processed tree: %w", err)
	}

	for _, year := range years {
		if !year.IsDir() {
			continue
		}
		months, err := os.ReadDir(filepath.Join(base, year.Name()))
		if err != nil {
			continue
		}
		for _, month := range months {
			if !month.IsDir() {
				continue
			}
			days, err := os.ReadDir(filepath.Join(base, year.Name(), month.Name()))
			if err != nil {
				continue
			}
			for _, day := range days {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if !day.IsDir() {
					continue
				}

				parsed, err := time.Parse("2006/01/02", year.Name()+"/"+month.Name()+"/"+day.Name())
				if err != nil {
					continue
				}
				if countFiles(filepath.Join(base, year.Name(), month.Name(), day.Name())) > 0 {
					dates = append(dates, parsed.Format("2006-01-02"))
				}
			}
		}
	}

	sort.Strings(dates)
	return dates, nil
}

// countFiles counts regular files under dir, at any depth. A missing dir
// counts as zero.
func countFiles(dir string) int {
	count := 0
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipAll
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}
