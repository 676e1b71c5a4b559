package handler_test

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/middleware"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/service"
	"avatarlab.app/studio/internal/view"
)

// authAs injects a fixed principal, standing in for the session middleware.
func authAs(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(middleware.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

type mockJobService struct {
	createFn           func(ctx context.Context, userID int64, payload json.RawMessage) (*model.Job, error)
	attachExternalIDFn func(ctx context.Context, userID int64, token, externalID string) error
	getFn              func(ctx context.Context, userID, jobID int64) (*model.Job, error)
	listFn             func(ctx context.Context, userID int64, limit int32) ([]model.Job, error)
}

func (m *mockJobService) Create(ctx context.Context, userID int64, payload json.RawMessage) (*model.Job, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, payload)
	}
	return &model.Job{ID: 1, UserID: userID, Status: model.JobStatusPending, WebhookToken: "tok"}, nil
}

func (m *mockJobService) AttachExternalID(ctx context.Context, userID int64, token, externalID string) error {
	if m.attachExternalIDFn != nil {
		return m.attachExternalIDFn(ctx, userID, token, externalID)
	}
	return nil
}

func (m *mockJobService) Get(ctx context.Context, userID, jobID int64) (*model.Job, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, jobID)
	}
	return nil, service.ErrJobNotFound
}

func (m *mockJobService) List(ctx context.Context, userID int64, limit int32) ([]model.Job, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return nil, nil
}

type mockImageService struct {
	getFn         func(ctx context.Context, userID, imageID int64) (*model.Image, error)
	listFn        func(ctx context.Context, userID int64, filter view.Filter, limit, offset int32) ([]model.Image, int64, error)
	setFavoriteFn func(ctx context.Context, userID, imageID int64, favorite bool) (*model.Image, error)
	moveFn        func(ctx context.Context, userID, imageID int64, folderID *int64) (*model.Image, error)
	deleteFn      func(ctx context.Context, userID, imageID int64) error
}

func (m *mockImageService) Get(ctx context.Context, userID, imageID int64) (*model.Image, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, imageID)
	}
	return nil, service.ErrImageNotFound
}

func (m *mockImageService) List(ctx context.Context, userID int64, filter view.Filter, limit, offset int32) ([]model.Image, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockImageService) SetFavorite(ctx context.Context, userID, imageID int64, favorite bool) (*model.Image, error) {
	if m.setFavoriteFn != nil {
		return m.setFavoriteFn(ctx, userID, imageID, favorite)
	}
	return nil, service.ErrImageNotFound
}

func (m *mockImageService) Move(ctx context.Context, userID, imageID int64, folderID *int64) (*model.Image, error) {
	if m.moveFn != nil {
		return m.moveFn(ctx, userID, imageID, folderID)
	}
	return nil, service.ErrImageNotFound
}

func (m *mockImageService) Delete(ctx context.Context, userID, imageID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, imageID)
	}
	return nil
}

type mockFolderService struct {
	createFn func(ctx context.Context, userID int64, name string, characterID *int64) (*model.Folder, error)
	renameFn func(ctx context.Context, userID, folderID int64, name string) (*model.Folder, error)
	deleteFn func(ctx context.Context, userID, folderID int64) error
	listFn   func(ctx context.Context, userID int64) ([]model.Folder, error)
}

func (m *mockFolderService) Create(ctx context.Context, userID int64, name string, characterID *int64) (*model.Folder, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, name, characterID)
	}
	return &model.Folder{ID: 1, UserID: userID, Name: name}, nil
}

func (m *mockFolderService) Rename(ctx context.Context, userID, folderID int64, name string) (*model.Folder, error) {
	if m.renameFn != nil {
		return m.renameFn(ctx, userID, folderID, name)
	}
	return nil, service.ErrFolderNotFound
}

func (m *mockFolderService) Delete(ctx context.Context, userID, folderID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, folderID)
	}
	return nil
}

func (m *mockFolderService) List(ctx context.Context, userID int64) ([]model.Folder, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

type mockCharacterService struct {
	createFn func(ctx context.Context, userID int64, name string, description *string, nsfw bool) (*model.Character, error)
	getFn    func(ctx context.Context, userID, characterID int64) (*model.Character, error)
	updateFn func(ctx context.Context, userID, characterID int64, update service.CharacterUpdate) (*model.Character, error)
	deleteFn func(ctx context.Context, userID, characterID int64) error
	listFn   func(ctx context.Context, userID int64) ([]model.Character, error)
}

func (m *mockCharacterService) Create(ctx context.Context, userID int64, name string, description *string, nsfw bool) (*model.Character, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, name, description, nsfw)
	}
	return &model.Character{ID: 1, UserID: userID, Name: name}, nil
}

func (m *mockCharacterService) Get(ctx context.Context, userID, characterID int64) (*model.Character, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, characterID)
	}
	return nil, service.ErrCharacterNotFound
}

func (m *mockCharacterService) Update(ctx context.Context, userID, characterID int64, update service.CharacterUpdate) (*model.Character, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, characterID, update)
	}
	return nil, service.ErrCharacterNotFound
}

func (m *mockCharacterService) Delete(ctx context.Context, userID, characterID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, characterID)
	}
	return nil
}

func (m *mockCharacterService) List(ctx context.Context, userID int64) ([]model.Character, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

type mockGenerationService struct {
	generateFn func(ctx context.Context, userID int64, params service.GenerationParams) (*model.Job, error)
}

func (m *mockGenerationService) Generate(ctx context.Context, userID int64, params service.GenerationParams) (*model.Job, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, userID, params)
	}
	return &model.Job{ID: 1, UserID: userID, Status: model.JobStatusPending}, nil
}
