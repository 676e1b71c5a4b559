package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Channel is a logical topic, one per entity kind.
type Channel string

const (
	ChannelImages     Channel = "images"
	ChannelFolders    Channel = "folders"
	ChannelCharacters Channel = "characters"
	ChannelJobs       Channel = "jobs"
)

// Kind is the verb of a domain event. Consumers pattern-match on it
// exhaustively instead of probing optional payload fields.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindMoved   Kind = "moved"
	KindDeleted Kind = "deleted"
	KindFailed  Kind = "failed" // jobs channel only
)

// EventName is the wire-level event identifier, `<noun>_<verb>`.
type EventName string

const (
	ImageCreated EventName = "image_created"
	ImageUpdated EventName = "image_updated"
	ImageMoved   EventName = "image_moved"
	ImageDeleted EventName = "image_deleted"

	FolderCreated EventName = "folder_created"
	FolderUpdated EventName = "folder_updated"
	FolderDeleted EventName = "folder_deleted"

	CharacterCreated EventName = "character_created"
	CharacterUpdated EventName = "character_updated"
	CharacterDeleted EventName = "character_deleted"

	JobCompleted EventName = "job_completed"
	JobFailed    EventName = "job_failed"
)

// Kind extracts the verb from the event name.
func (n EventName) Kind() Kind {
	s := string(n)
	idx := strings.LastIndexByte(s, '_')
	if idx < 0 {
		return Kind(s)
	}
	return Kind(s[idx+1:])
}

// ImagePayload carries the image id plus every field membership can be
// re-derived from, so consumers apply the view filter without a round trip.
type ImagePayload struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	CharacterID *int64 `json:"character_id,omitempty"`
	FolderID    *int64 `json:"folder_id,omitempty"`
	Favorite    bool   `json:"favorite"`
	NSFW        bool   `json:"nsfw"`
}

type FolderPayload struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	CharacterID *int64 `json:"character_id,omitempty"`
	Name        string `json:"name,omitempty"`
}

type CharacterPayload struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name,omitempty"`
	NSFW   bool   `json:"nsfw"`
}

type JobPayload struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	Status        string  `json:"status"`
	ResultImageID *int64  `json:"result_image_id,omitempty"`
	Error         *string `json:"error,omitempty"`
}

// ImageEvent is the decoded form of a message on the images channel.
type ImageEvent struct {
	Kind      Kind
	Image     ImagePayload
	Timestamp time.Time
}

// ParseImageEvent decodes an images-channel message into its tagged form.
// Unknown names are an error so consumers can log and drop them explicitly.
func ParseImageEvent(name EventName, data []byte, ts time.Time) (*ImageEvent, error) {
	switch name {
	case ImageCreated, ImageUpdated, ImageMoved, ImageDeleted:
	default:
		return nil, fmt.Errorf("unknown image event %q", name)
	}

	var payload ImagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", name, err)
	}
	if payload.ID == 0 {
		return nil, fmt.Errorf("%s payload missing id", name)
	}

	return &ImageEvent{
		Kind:      name.Kind(),
		Image:     payload,
		Timestamp: ts,
	}, nil
}
