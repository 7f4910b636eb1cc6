package models

import (
	"time"
)

// Message types
const (
	TypeUser   = "user"
	TypeSystem = "system"
)

// Message represents a chat message in the durable log.
// The id format is "<name>.<unix-millis>" assigned at accept time and
// immutable afterwards; only Content changes through the admin edit surface.
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"userId" gorm:"index"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Content   string    `json:"content"`
	UnixTime  int64     `json:"unixTime" gorm:"index"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"-"`
}
