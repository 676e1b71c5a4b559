package dto

import (
	"time"

	"avatarlab.app/studio/internal/model"
)

type CreateFolderRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	CharacterID *int64 `json:"character_id,string,omitempty"`
}

type RenameFolderRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

type FolderResponse struct {
	ID          int64     `json:"id,string"`
	CharacterID *int64    `json:"character_id,string,omitempty"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToFolderResponse(folder *model.Folder) *FolderResponse {
	return &FolderResponse{
		ID:          folder.ID,
		CharacterID: folder.CharacterID,
		Name:        folder.Name,
		CreatedAt:   folder.CreatedAt,
		UpdatedAt:   folder.UpdatedAt,
	}
}

func ToFolderResponses(folders []model.Folder) []FolderResponse {
	out := make([]FolderResponse, 0, len(folders))
	for i := range folders {
		out = append(out, *ToFolderResponse(&folders[i]))
	}
	return out
}
