package histlog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// LogError reports a rejected operation on a history log or its serialized form.
//
// LogError carries structured fields so callers can decide whether to abort a
// single replication or the whole ensemble. Nothing in this package recovers
// from a LogError.
type LogError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Metric names the affected series, if any.
	Metric string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes history log errors.
type ErrorCode string

const (
	// ErrCodeMissingMetric indicates a period snapshot lacks a tracked metric.
	ErrCodeMissingMetric ErrorCode = "MISSING_METRIC"

	// ErrCodeUnknownMetric indicates a metric name that the log does not track.
	ErrCodeUnknownMetric ErrorCode = "UNKNOWN_METRIC"

	// ErrCodeInvalidValue indicates a value of the wrong shape or type.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeRowCountMismatch indicates a per-firm sequence whose length
	// differs from the number of firms in the matrix.
	ErrCodeRowCountMismatch ErrorCode = "ROW_COUNT_MISMATCH"

	// ErrCodeStructuralMismatch indicates serialized content that cannot be
	// rebuilt into a log (missing metadata keys, orphan rows, ragged series).
	ErrCodeStructuralMismatch ErrorCode = "STRUCTURAL_MISMATCH"

	// ErrCodeUnknownRiskModelCount indicates a risk-model count with no file name.
	ErrCodeUnknownRiskModelCount ErrorCode = "UNKNOWN_RISK_MODEL_COUNT"

	// ErrCodeInvariantViolation indicates series lengths disagree with the
	// period counter after a mutation.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
)

// Error implements the error interface.
func (e *LogError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Metric != "" {
		fmt.Fprintf(&b, " (metric=%s)", e.Metric)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
		}
	}
	return b.String()
}

func hasCode(err error, code ErrorCode) bool {
	var le *LogError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// IsMissingMetric returns true if err reports a missing metric.
func IsMissingMetric(err error) bool { return hasCode(err, ErrCodeMissingMetric) }

// IsUnknownMetric returns true if err reports an unknown metric name.
func IsUnknownMetric(err error) bool { return hasCode(err, ErrCodeUnknownMetric) }

// IsRowCountMismatch returns true if err reports a per-firm length mismatch.
func IsRowCountMismatch(err error) bool { return hasCode(err, ErrCodeRowCountMismatch) }

// IsStructuralMismatch returns true if err reports unrebuildable serialized content.
func IsStructuralMismatch(err error) bool { return hasCode(err, ErrCodeStructuralMismatch) }

// IsUnknownRiskModelCount returns true if err reports a risk-model count without a file name.
func IsUnknownRiskModelCount(err error) bool { return hasCode(err, ErrCodeUnknownRiskModelCount) }

// NewMissingMetricError creates a LogError for a metric absent from a period snapshot.
func NewMissingMetricError(metric string) *LogError {
	return &LogError{
		Code:    ErrCodeMissingMetric,
		Message: "period snapshot has no value for tracked metric",
		Metric:  metric,
	}
}

// NewUnknownMetricError creates a LogError for an untracked metric name.
func NewUnknownMetricError(metric string) *LogError {
	return &LogError{
		Code:    ErrCodeUnknownMetric,
		Message: "metric is not tracked by the history log",
		Metric:  metric,
	}
}

// NewInvalidValueError creates a LogError for a value of the wrong type.
func NewInvalidValueError(metric string, v any) *LogError {
	return &LogError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("unsupported value type %T", v),
		Metric:  metric,
	}
}

// NewRowCountMismatchError creates a LogError for a per-firm sequence of the wrong length.
func NewRowCountMismatchError(metric string, got, rows int) *LogError {
	return &LogError{
		Code:    ErrCodeRowCountMismatch,
		Message: fmt.Sprintf("per-firm sequence has %d values for %d rows", got, rows),
		Metric:  metric,
		Details: map[string]string{
			"got":  fmt.Sprintf("%d", got),
			"rows": fmt.Sprintf("%d", rows),
		},
	}
}

// NewStructuralMismatchError creates a LogError for serialized content that
// cannot be rebuilt.
func NewStructuralMismatchError(metric, message string) *LogError {
	return &LogError{
		Code:    ErrCodeStructuralMismatch,
		Message: message,
		Metric:  metric,
	}
}

// NewUnknownRiskModelCountError creates a LogError for a risk-model count
// outside the known file-name table.
func NewUnknownRiskModelCountError(count int) *LogError {
	return &LogError{
		Code:    ErrCodeUnknownRiskModelCount,
		Message: fmt.Sprintf("no ensemble file name for %d risk models", count),
		Details: map[string]string{"risk_models": fmt.Sprintf("%d", count)},
	}
}

func newInvariantError(metric string, length, periods int) *LogError {
	return &LogError{
		Code:    ErrCodeInvariantViolation,
		Message: fmt.Sprintf("series has %d values after %d periods", length, periods),
		Metric:  metric,
	}
}
