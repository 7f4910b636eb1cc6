package models

import (
	"time"
)

// ChatUser is the wire shape of a connected user's display identity
type ChatUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Presence is the persisted row mirroring an in-memory session. Rows are
// cleared at startup; anything left over belongs to a previous process.
type Presence struct {
	ConnectionID string    `json:"connectionId" gorm:"primaryKey"`
	UserID       string    `json:"userId" gorm:"index"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	JoinedAt     time.Time `json:"joinedAt"`
}
