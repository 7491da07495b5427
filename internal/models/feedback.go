package models

import (
	"time"

	"github.com/google/uuid"
)

// TestScenario captures an observed run of the prompt: what went in,
// what came out, and optionally what should have come out. Immutable
// once attached to a feedback entry.
type TestScenario struct {
	Input          string `json:"input"`
	ActualOutput   string `json:"actual_output"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

type Feedback struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	VersionID    uuid.UUID     `json:"version_id" db:"version_id"`
	Rating       int           `json:"rating" db:"rating"`
	Comment      string        `json:"comment,omitempty" db:"comment"`
	TestScenario *TestScenario `json:"test_scenario,omitempty" db:"test_scenario"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
