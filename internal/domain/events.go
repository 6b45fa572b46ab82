package domain

import (
	"time"

	"github.com/google/uuid"
)

// InteractionAction is the kind of interaction a user had with a paper.
type InteractionAction string

// Supported interaction actions.
const (
	ActionView     InteractionAction = "view"
	ActionSave     InteractionAction = "save"
	ActionDownload InteractionAction = "download"
)

// Weight returns the profile weight contributed by the action. Unknown
// actions contribute nothing.
func (a InteractionAction) Weight() float64 {
	switch a {
	case ActionView:
		return 1.0
	case ActionSave:
		return 2.0
	case ActionDownload:
		return 3.0
	default:
		return 0
	}
}

// IsValid reports whether the action is one of the supported values.
func (a InteractionAction) IsValid() bool {
	return a.Weight() > 0
}

// InteractionEvent records a single user interaction with a paper.
// Events are append-only.
type InteractionEvent struct {
	ID        uuid.UUID         `json:"id"`
	UserID    string            `json:"user_id"`
	PaperID   uuid.UUID         `json:"paper_id"`
	Action    InteractionAction `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
}
