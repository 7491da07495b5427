package models

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a mutable named pointer from a prompt to one of its versions.
// It holds the version by ID only; deleting the version leaves the tag
// dangling rather than removing it.
type Tag struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PromptID  uuid.UUID `json:"prompt_id" db:"prompt_id"`
	Name      string    `json:"name" db:"name"`
	VersionID uuid.UUID `json:"version_id" db:"version_id"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
