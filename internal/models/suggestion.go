package models

import (
	"time"

	"github.com/google/uuid"
)

// SuggestionStatus is a one-way state machine: pending is the only
// non-terminal state.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionDeclined SuggestionStatus = "declined"
)

// Suggestion is an AI-proposed replacement for a version's content.
// Only the analyze-feedback operation creates these.
type Suggestion struct {
	ID                 uuid.UUID        `json:"id" db:"id"`
	SourceVersionID    uuid.UUID        `json:"source_version_id" db:"source_version_id"`
	SuggestedContent   string           `json:"suggested_content" db:"suggested_content"`
	AIRationale        string           `json:"ai_rationale,omitempty" db:"ai_rationale"`
	Status             SuggestionStatus `json:"status" db:"status"`
	DeclineReason      string           `json:"decline_reason,omitempty" db:"decline_reason"`
	ResultingVersionID *uuid.UUID       `json:"resulting_version_id,omitempty" db:"resulting_version_id"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	ResolvedAt         *time.Time       `json:"resolved_at,omitempty" db:"resolved_at"`
}

func (s *Suggestion) Resolved() bool {
	return s.Status != SuggestionPending
}
