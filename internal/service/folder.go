package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"avatarlab.app/studio/common/id"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/store"
)

var (
	ErrFolderNotFound = errors.New("folder not found")
	ErrEmptyName      = errors.New("name is required")
)

type FolderService interface {
	Create(ctx context.Context, userID int64, name string, characterID *int64) (*model.Folder, error)
	Rename(ctx context.Context, userID, folderID int64, name string) (*model.Folder, error)
	Delete(ctx context.Context, userID, folderID int64) error
	List(ctx context.Context, userID int64) ([]model.Folder, error)
}

type folderService struct {
	folders    store.FolderStore
	characters store.CharacterStore
	bus        bus.Client
}

func NewFolderService(folders store.FolderStore, characters store.CharacterStore, busClient bus.Client) FolderService {
	return &folderService{
		folders:    folders,
		characters: characters,
		bus:        busClient,
	}
}

func (s *folderService) Create(ctx context.Context, userID int64, name string, characterID *int64) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	if characterID != nil {
		if _, err := s.characters.GetOwned(ctx, userID, *characterID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrCharacterNotFound
			}
			return nil, fmt.Errorf("checking character: %w", err)
		}
	}

	folder := &model.Folder{
		ID:          id.New(),
		UserID:      userID,
		CharacterID: characterID,
		Name:        name,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelFolders, bus.FolderCreated, folderPayload(folder))
	return folder, nil
}

func (s *folderService) Rename(ctx context.Context, userID, folderID int64, name string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	folder, err := s.folders.Rename(ctx, userID, folderID, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("renaming folder: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelFolders, bus.FolderUpdated, folderPayload(folder))
	return folder, nil
}

func (s *folderService) Delete(ctx context.Context, userID, folderID int64) error {
	folder, err := s.folders.GetOwned(ctx, userID, folderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFolderNotFound
		}
		return fmt.Errorf("getting folder: %w", err)
	}

	// Images in the folder become unfiled via the schema's ON DELETE SET
	// NULL; clients refetch on folder_deleted and self-heal.
	if err := s.folders.Delete(ctx, userID, folderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFolderNotFound
		}
		return fmt.Errorf("deleting folder: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelFolders, bus.FolderDeleted, folderPayload(folder))
	return nil
}

func (s *folderService) List(ctx context.Context, userID int64) ([]model.Folder, error) {
	folders, err := s.folders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

func folderPayload(folder *model.Folder) bus.FolderPayload {
	return bus.FolderPayload{
		ID:          folder.ID,
		UserID:      folder.UserID,
		CharacterID: folder.CharacterID,
		Name:        folder.Name,
	}
}
