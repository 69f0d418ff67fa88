package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"trailingest/internal/domain/archive"
	"trailingest/internal/domain/observability"
	"trailingest/internal/domain/pathsafe"
)

// Validator checks one decompressed archive file. Implementations return nil
// for a valid file and a sentinel-wrapped error describing the defect
// otherwise; they never panic and never abort the run.
type Validator interface {
	Name() string
	Validate(ctx context.Context, path string) error
}

// StructuralValidator checks the envelope every audit archive must have: a
// JSON object whose Records field is an array.
type StructuralValidator struct {
	logger  observability.Logger
	metrics observability.Metrics
}

func NewStructuralValidator(logger observability.Logger, metrics observability.Metrics) *StructuralValidator {
	return &StructuralValidator{logger: logger, metrics: metrics}
}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		v.metrics.IncrementCounter("validate.read_failed", nil)
		return fmt.Errorf("%w: reading %s: %w", archive.ErrMalformedContent, path, err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		v.logger.Warn("Archive is not valid JSON",
			"path", pathsafe.SanitizeForLog(path),
			"error", pathsafe.SanitizeForLog(err))
		v.metrics.IncrementCounter("validate.malformed", nil)
		return fmt.Errorf("%w: %w", archive.ErrMalformedContent, err)
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		v.metrics.IncrementCounter("validate.unexpected_shape", nil)
		return fmt.Errorf("%w: top level is not an object", archive.ErrUnexpectedShape)
	}

	records, ok := obj["Records"]
	if !ok {
		v.metrics.IncrementCounter("validate.missing_records", nil)
		return fmt.Errorf("%w", archive.ErrMissingRecordsField)
	}

	if _, ok := records.([]interface{}); !ok {
		v.metrics.IncrementCounter("validate.records_not_sequence", nil)
		return fmt.Errorf("%w", archive.ErrRecordsNotSequence)
	}

	v.metrics.IncrementCounter("validate.success", nil)
	return nil
}

// sampleRecordFields are the fields every audit event carries; checking them
// on the first record is a cheap representative sanity check.
var sampleRecordFields = []string{"eventVersion", "eventTime", "eventSource", "eventName"}

// SampleRecordValidator inspects only the first record of an archive. An
// empty Records array passes; completeness checks over every record belong
// to the downstream analytical layer, not the ingest gate.
type SampleRecordValidator struct {
	logger  observability.Logger
	metrics observability.Metrics
}

func NewSampleRecordValidator(logger observability.Logger, metrics observability.Metrics) *SampleRecordValidator {
	return &SampleRecordValidator{logger: logger, metrics: metrics}
}

func (v *SampleRecordValidator) Name() string { return "sample_record" }

func (v *SampleRecordValidator) Validate(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", archive.ErrMalformedContent, path, err)
	}

	var doc struct {
		Records []map[string]interface{} `json:"Records"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", archive.ErrMalformedContent, err)
	}

	if len(doc.Records) == 0 {
		return nil
	}

	first := doc.Records[0]
	for _, field := range sampleRecordFields {
		value, ok := first[field]
		if !ok || value == nil || value == "" {
			v.logger.Warn("First record missing expected field",
				"path", pathsafe.SanitizeForLog(path),
				"field", field)
			v.metrics.IncrementCounter("validate.sample_field_missing", nil)
			return fmt.Errorf("%w: first record missing %q", archive.ErrUnexpectedShape, field)
		}
	}

	return nil
}
