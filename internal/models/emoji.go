package models

import (
	"time"

	"github.com/google/uuid"
)

// Emoji is a generated image owned by a user. URL always points at our own
// bucket, never at the provider's delivery host.
type Emoji struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Prompt    string    `json:"prompt" db:"prompt"`
	URL       string    `json:"url" db:"url"`
	LikesNum  int       `json:"likes_num" db:"likes_num"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
