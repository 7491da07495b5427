package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalidLabel, http.StatusUnprocessableEntity},
		{ErrInvalidRating, http.StatusUnprocessableEntity},
		{ErrEmptyTemplate, http.StatusUnprocessableEntity},
		{ErrInvalidTestScenario, http.StatusUnprocessableEntity},
		{ErrDuplicateLabel, http.StatusConflict},
		{ErrNotATemplate, http.StatusConflict},
		{ErrNoFeedback, http.StatusConflict},
		{ErrSuggestionResolved, http.StatusConflict},
		{ErrPromptNotFound, http.StatusNotFound},
		{ErrVersionNotFound, http.StatusNotFound},
		{ErrTagNotFound, http.StatusNotFound},
		{ErrDanglingTag, http.StatusGone},
		{ErrGenerationUnavailable, http.StatusBadGateway},
		{errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), tt.err.Error())
	}
}

func TestStatusUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("label %q: %w", "1.0.0", ErrDuplicateLabel)
	assert.Equal(t, http.StatusConflict, Status(wrapped))

	twice := fmt.Errorf("create version: %w", wrapped)
	assert.Equal(t, http.StatusConflict, Status(twice))
}
