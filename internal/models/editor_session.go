package models

import (
	"time"

	"dreamio/internal/timeline"
)

// EditorSession is an ephemeral, per-user timeline kept outside the database.
type EditorSession struct {
	ID        string          `json:"id"`
	OwnerID   uint            `json:"ownerId"`
	Version   int             `json:"version"`
	State     *timeline.State `json:"state"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}
