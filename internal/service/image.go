package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/storage"
	"avatarlab.app/studio/internal/store"
	"avatarlab.app/studio/internal/view"
)

var ErrImageNotFound = errors.New("image not found")

// ImageService exposes the image library. Every mutation publishes one
// domain event after it is persisted; the event payload carries the fields
// the view filter needs so consumers reconcile without a round trip.
type ImageService interface {
	Get(ctx context.Context, userID, imageID int64) (*model.Image, error)
	List(ctx context.Context, userID int64, filter view.Filter, limit, offset int32) ([]model.Image, int64, error)
	SetFavorite(ctx context.Context, userID, imageID int64, favorite bool) (*model.Image, error)
	Move(ctx context.Context, userID, imageID int64, folderID *int64) (*model.Image, error)
	Delete(ctx context.Context, userID, imageID int64) error
}

type imageService struct {
	images  store.ImageStore
	folders store.FolderStore
	objects storage.ObjectStore
	bus     bus.Client
}

func NewImageService(images store.ImageStore, folders store.FolderStore, objects storage.ObjectStore, busClient bus.Client) ImageService {
	return &imageService{
		images:  images,
		folders: folders,
		objects: objects,
		bus:     busClient,
	}
}

func (s *imageService) Get(ctx context.Context, userID, imageID int64) (*model.Image, error) {
	image, err := s.images.GetOwned(ctx, userID, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("getting image: %w", err)
	}
	return image, nil
}

func (s *imageService) List(ctx context.Context, userID int64, filter view.Filter, limit, offset int32) ([]model.Image, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	images, total, err := s.images.List(ctx, userID, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing images: %w", err)
	}
	return images, total, nil
}

func (s *imageService) SetFavorite(ctx context.Context, userID, imageID int64, favorite bool) (*model.Image, error) {
	image, err := s.images.SetFavorite(ctx, userID, imageID, favorite)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("updating favorite: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelImages, bus.ImageUpdated, imagePayload(image))
	return image, nil
}

func (s *imageService) Move(ctx context.Context, userID, imageID int64, folderID *int64) (*model.Image, error) {
	if folderID != nil {
		if _, err := s.folders.GetOwned(ctx, userID, *folderID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrFolderNotFound
			}
			return nil, fmt.Errorf("checking target folder: %w", err)
		}
	}

	image, err := s.images.Move(ctx, userID, imageID, folderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("moving image: %w", err)
	}

	s.bus.Publish(ctx, bus.ChannelImages, bus.ImageMoved, imagePayload(image))
	return image, nil
}

func (s *imageService) Delete(ctx context.Context, userID, imageID int64) error {
	image, err := s.images.GetOwned(ctx, userID, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("getting image: %w", err)
	}

	if err := s.images.Delete(ctx, userID, imageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("deleting image: %w", err)
	}

	if image.StorageKey != "" {
		if err := s.objects.Delete(ctx, image.StorageKey); err != nil {
			slog.WarnContext(ctx, "failed to delete image artifact", "error", err, "image_id", imageID)
		}
	}

	s.bus.Publish(ctx, bus.ChannelImages, bus.ImageDeleted, imagePayload(image))
	return nil
}
