package model

import "time"

// Image is a generated artifact. FolderID and CharacterID are both optional;
// an image with neither is "unfiled" at the library root.
type Image struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CharacterID *int64    `json:"character_id,omitempty"`
	FolderID    *int64    `json:"folder_id,omitempty"`
	JobID       *int64    `json:"job_id,omitempty"`
	URL         string    `json:"url"`
	StorageKey  string    `json:"-"`
	Prompt      *string   `json:"prompt,omitempty"`
	Favorite    bool      `json:"favorite"`
	NSFW        bool      `json:"nsfw"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
