package dto

import (
	"time"

	"avatarlab.app/studio/internal/model"
)

type ImageResponse struct {
	ID          int64     `json:"id,string"`
	CharacterID *int64    `json:"character_id,string,omitempty"`
	FolderID    *int64    `json:"folder_id,string,omitempty"`
	JobID       *int64    `json:"job_id,string,omitempty"`
	URL         string    `json:"url"`
	Prompt      *string   `json:"prompt,omitempty"`
	Favorite    bool      `json:"favorite"`
	NSFW        bool      `json:"nsfw"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListImagesResponse struct {
	Images     []ImageResponse `json:"images"`
	TotalCount int64           `json:"total_count"`
}

type SetFavoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// MoveImageRequest moves an image into a folder, or to unfiled when
// FolderID is null.
type MoveImageRequest struct {
	FolderID *int64 `json:"folder_id,string"`
}

func ToImageResponse(img *model.Image) *ImageResponse {
	return &ImageResponse{
		ID:          img.ID,
		CharacterID: img.CharacterID,
		FolderID:    img.FolderID,
		JobID:       img.JobID,
		URL:         img.URL,
		Prompt:      img.Prompt,
		Favorite:    img.Favorite,
		NSFW:        img.NSFW,
		CreatedAt:   img.CreatedAt,
	}
}

func ToListImagesResponse(images []model.Image, totalCount int64) *ListImagesResponse {
	out := make([]ImageResponse, 0, len(images))
	for i := range images {
		out = append(out, *ToImageResponse(&images[i]))
	}
	return &ListImagesResponse{Images: out, TotalCount: totalCount}
}
