package model

import "time"

// Folder groups images, optionally under a character. A nil CharacterID
// means the folder lives at the top level of the user's library.
type Folder struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CharacterID *int64    `json:"character_id,omitempty"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
