package dto

type GenerateRequest struct {
	Prompt      string `json:"prompt" binding:"required,min=1"`
	Width       int    `json:"width,omitempty" binding:"omitempty,min=64,max=2048"`
	Height      int    `json:"height,omitempty" binding:"omitempty,min=64,max=2048"`
	Seed        *int64 `json:"seed,omitempty"`
	CharacterID *int64 `json:"character_id,string,omitempty"`
	FolderID    *int64 `json:"folder_id,string,omitempty"`
	NSFW        bool   `json:"nsfw"`
}
