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

var ErrCharacterNotFound = errors.New("character not found")

// CharacterUpdate carries the mutable fields of a character; nil means
// "leave unchanged".
type CharacterUpdate struct {
	Name        *string
	Description *string
	AvatarURL   *string
	NSFW        *bool
}

type CharacterService interface {
	Create(ctx context.Context, userID int64, name string, description *string, nsfw bool) (*model.Character, error)
	Get(ctx context.Context, userID, characterID int64) (*model.Character, error)
	Update(ctx context.Context, userID, characterID int64, update CharacterUpdate) (*model.Character, error)
	Delete(ctx context.Context, userID, characterID int64) error
	List(ctx context.Context, userID int64) ([]model.Character, error)
}

type characterService struct {
	characters store.CharacterStore
	bus        bus.Client
}

func NewCharacterService(characters store.CharacterStore, busClient bus.Client) CharacterService {
	return &characterService{characters: characters, bus: busClient}
}

func (s *characterService) Create(ctx context.Context, userID int64, name string, description *string, nsfw bool) (*model.Character, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	character := &model.Character{
		ID:          id.New(),
		UserID:      userID,
		Name:        name,
		Description: description,
		NSFW:        nsfw,
	}
	if err := s.characters.Create(ctx, character); err != nil {
		return nil, fmt.Errorf("creating character: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelCharacters, bus.CharacterCreated, characterPayload(character))
	return character, nil
}

func (s *characterService) Get(ctx context.Context, userID, characterID int64) (*model.Character, error) {
	character, err := s.characters.GetOwned(ctx, userID, characterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("getting character: %w", err)
	}
	return character, nil
}

func (s *characterService) Update(ctx context.Context, userID, characterID int64, update CharacterUpdate) (*model.Character, error) {
	character, err := s.characters.GetOwned(ctx, userID, characterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("getting character: %w", err)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		character.Name = name
	}
	if update.Description != nil {
		character.Description = update.Description
	}
	if update.AvatarURL != nil {
		character.AvatarURL = update.AvatarURL
	}
	if update.NSFW != nil {
		character.NSFW = *update.NSFW
	}

	if err := s.characters.Update(ctx, character); err != nil {
		return nil, fmt.Errorf("updating character: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelCharacters, bus.CharacterUpdated, characterPayload(character))
	return character, nil
}

func (s *characterService) Delete(ctx context.Context, userID, characterID int64) error {
	character, err := s.characters.GetOwned(ctx, userID, characterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCharacterNotFound
		}
		return fmt.Errorf("getting character: %w", err)
	}

	if err := s.characters.Delete(ctx, userID, characterID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCharacterNotFound
		}
		return fmt.Errorf("deleting character: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelCharacters, bus.CharacterDeleted, characterPayload(character))
	return nil
}

func (s *characterService) List(ctx context.Context, userID int64) ([]model.Character, error) {
	characters, err := s.characters.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	return characters, nil
}

func characterPayload(character *model.Character) bus.CharacterPayload {
	return bus.CharacterPayload{
		ID:     character.ID,
		UserID: character.UserID,
		Name:   character.Name,
		NSFW:   character.NSFW,
	}
}
