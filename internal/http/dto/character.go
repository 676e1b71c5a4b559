package dto

import (
	"time"

	"avatarlab.app/studio/internal/model"
)

type CreateCharacterRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	NSFW        bool    `json:"nsfw"`
}

type UpdateCharacterRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	NSFW        *bool   `json:"nsfw,omitempty"`
}

type CharacterResponse struct {
	ID          int64     `json:"id,string"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	NSFW        bool      `json:"nsfw"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToCharacterResponse(character *model.Character) *CharacterResponse {
	return &CharacterResponse{
		ID:          character.ID,
		Name:        character.Name,
		Description: character.Description,
		AvatarURL:   character.AvatarURL,
		NSFW:        character.NSFW,
		CreatedAt:   character.CreatedAt,
		UpdatedAt:   character.UpdatedAt,
	}
}

func ToCharacterResponses(characters []model.Character) []CharacterResponse {
	out := make([]CharacterResponse, 0, len(characters))
	for i := range characters {
		out = append(out, *ToCharacterResponse(&characters[i]))
	}
	return out
}
