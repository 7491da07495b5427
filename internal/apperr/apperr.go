package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for every failure the core can report. Services wrap
// these with fmt.Errorf("...: %w", ...) so handlers can classify with
// errors.Is while logs keep the full chain.
var (
	// Validation failures, detected before any mutation.
	ErrInvalidLabel        = errors.New("version label must match MAJOR.MINOR.PATCH")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrEmptyTemplate       = errors.New("template content contains no {{variable}} placeholders")
	ErrInvalidPromptType   = errors.New("prompt type must be system or user")
	ErrInvalidContentType  = errors.New("content type must be static or template")
	ErrInvalidTestScenario = errors.New("test scenario requires input and actual output")

	// Conflicts, detected at commit time.
	ErrDuplicateLabel = errors.New("version label already exists for this prompt")

	// Missing entities.
	ErrPromptNotFound     = errors.New("prompt not found")
	ErrVersionNotFound    = errors.New("version not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrFeedbackNotFound   = errors.New("feedback not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")

	// State violations.
	ErrNotATemplate       = errors.New("version is not a template")
	ErrNoFeedback         = errors.New("no feedback available to analyze")
	ErrSuggestionResolved = errors.New("suggestion already accepted or declined")
	ErrDanglingTag        = errors.New("tag points at a deleted version")

	// External collaborator failures, retryable by the caller.
	ErrGenerationUnavailable = errors.New("text generation unavailable")
)

// Status maps a classified error to an HTTP status code. Unclassified
// errors fall through to 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrInvalidLabel),
		errors.Is(err, ErrInvalidRating),
		errors.Is(err, ErrEmptyTemplate),
		errors.Is(err, ErrInvalidPromptType),
		errors.Is(err, ErrInvalidContentType),
		errors.Is(err, ErrInvalidTestScenario):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDuplicateLabel),
		errors.Is(err, ErrNotATemplate),
		errors.Is(err, ErrNoFeedback),
		errors.Is(err, ErrSuggestionResolved):
		return http.StatusConflict
	case errors.Is(err, ErrPromptNotFound),
		errors.Is(err, ErrVersionNotFound),
		errors.Is(err, ErrTagNotFound),
		errors.Is(err, ErrFeedbackNotFound),
		errors.Is(err, ErrSuggestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDanglingTag):
		return http.StatusGone
	case errors.Is(err, ErrGenerationUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
