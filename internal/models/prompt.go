package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// PromptType is fixed at creation and never changes afterwards.
type PromptType string

const (
	PromptTypeSystem PromptType = "system"
	PromptTypeUser   PromptType = "user"
)

func (t PromptType) Valid() bool {
	return t == PromptTypeSystem || t == PromptTypeUser
}

// ContentType distinguishes plain snapshots from renderable templates.
type ContentType string

const (
	ContentTypeStatic   ContentType = "static"
	ContentTypeTemplate ContentType = "template"
)

func (t ContentType) Valid() bool {
	return t == ContentTypeStatic || t == ContentTypeTemplate
}

type Prompt struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OwnerID     uuid.UUID  `json:"owner_id" db:"owner_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	PromptType  PromptType `json:"prompt_type" db:"prompt_type"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Version is an immutable, labeled snapshot of a prompt's content.
// The cached feedback aggregate lives on the version row and is
// maintained transactionally with every feedback mutation.
type Version struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	PromptID      uuid.UUID   `json:"prompt_id" db:"prompt_id"`
	Label         string      `json:"label" db:"label"`
	Content       string      `json:"content" db:"content"`
	ContentType   ContentType `json:"content_type" db:"content_type"`
	Variables     []string    `json:"variables,omitempty" db:"variables"`
	Changelog     string      `json:"changelog,omitempty" db:"changelog"`
	Digest        string      `json:"digest" db:"digest"`
	FeedbackSum   int         `json:"-" db:"feedback_sum"`
	FeedbackCount int         `json:"feedback_count" db:"feedback_count"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// AverageRating is derived from the cached (sum, count) pair and is
// nil while the version has no feedback.
func (v *Version) AverageRating() *float64 {
	if v.FeedbackCount == 0 {
		return nil
	}
	avg := float64(v.FeedbackSum) / float64(v.FeedbackCount)
	return &avg
}

// MarshalJSON adds the derived average_rating field so API responses
// never expose the raw sum.
func (v Version) MarshalJSON() ([]byte, error) {
	type alias Version
	return json.Marshal(struct {
		alias
		AverageRating *float64 `json:"average_rating"`
	}{
		alias:         alias(v),
		AverageRating: v.AverageRating(),
	})
}

// UnmarshalJSON reconstructs the hidden sum from average_rating and
// feedback_count so a version survives a JSON round trip.
func (v *Version) UnmarshalJSON(data []byte) error {
	type alias Version
	aux := struct {
		*alias
		AverageRating *float64 `json:"average_rating"`
	}{alias: (*alias)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.AverageRating != nil && v.FeedbackCount > 0 {
		v.FeedbackSum = int(math.Round(*aux.AverageRating * float64(v.FeedbackCount)))
	}
	return nil
}
