package engine

import (
	"errors"

	"github.com/reportloom/reportloom/internal/export"
	"github.com/reportloom/reportloom/internal/report"
	"github.com/reportloom/reportloom/internal/store"
)

// ErrInvalidSession rejects commands carrying an unusable session id.
var ErrInvalidSession = errors.New("invalid session id")

// Class buckets operation failures for transport mapping. Clients use the
// class to decide between fixing the request, resyncing, and giving up.
type Class string

const (
	ClassValidation        Class = "validation"
	ClassNotFound          Class = "not_found"
	ClassConflict          Class = "conflict"
	ClassUnsupportedFormat Class = "unsupported_format"
	ClassInternal          Class = "internal"
)

var validationErrs = []error{
	ErrInvalidSession,
	report.ErrNotStarted,
	report.ErrReportCompleted,
	report.ErrNotGeneratable,
	report.ErrDependenciesUnmet,
	report.ErrNotReviewable,
	report.ErrFeedbackRequired,
	report.ErrRevisionsExhausted,
	report.ErrForceRequired,
	report.ErrNotFinalizable,
	report.ErrNotCompleted,
	report.ErrInvalidPlan,
}

var conflictErrs = []error{
	report.ErrGenerationInFlight,
	report.ErrFinalizeInFlight,
	store.ErrVersionConflict,
}

// Classify maps an operation error onto its class. Unknown errors are
// internal: the caller did nothing wrong and retrying may succeed.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, report.ErrSectionNotFound):
		return ClassNotFound
	case matchesAny(err, conflictErrs):
		return ClassConflict
	case errors.Is(err, export.ErrUnsupportedFormat):
		return ClassUnsupportedFormat
	case matchesAny(err, validationErrs):
		return ClassValidation
	default:
		return ClassInternal
	}
}

func matchesAny(err error, sentinels []error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
