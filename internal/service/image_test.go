package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/service"
	"avatarlab.app/studio/internal/store"
)

var _ = Describe("ImageService", func() {
	const userID = int64(42)

	var (
		svc      service.ImageService
		images   *mockImageStore
		folders  *mockFolderStore
		objects  *mockObjectStore
		eventBus *recordingBus
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		images = &mockImageStore{}
		folders = &mockFolderStore{}
		objects = newMockObjectStore()
		eventBus = &recordingBus{}
		svc = service.NewImageService(images, folders, objects, eventBus)
	})

	Describe("SetFavorite", func() {
		It("should publish image_updated with the new flags", func() {
			images.setFavoriteFn = func(_ context.Context, _, id int64, favorite bool) (*model.Image, error) {
				return &model.Image{ID: id, UserID: userID, Favorite: favorite}, nil
			}

			img, err := svc.SetFavorite(ctx, userID, 1, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Favorite).To(BeTrue())

			updated := eventBus.published(bus.ImageUpdated)
			Expect(updated).To(HaveLen(1))
			payload, ok := updated[0].payload.(bus.ImagePayload)
			Expect(ok).To(BeTrue())
			Expect(payload.Favorite).To(BeTrue())
		})
	})

	Describe("Move", func() {
		It("should reject a target folder the caller does not own", func() {
			folderID := int64(7)
			folders.getOwnedFn = func(_ context.Context, _, _ int64) (*model.Folder, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.Move(ctx, userID, 1, &folderID)
			Expect(err).To(MatchError(service.ErrFolderNotFound))
			Expect(eventBus.events).To(BeEmpty())
		})

		It("should publish image_moved carrying the new folder id", func() {
			folderID := int64(7)
			folders.getOwnedFn = func(_ context.Context, _, id int64) (*model.Folder, error) {
				return &model.Folder{ID: id, UserID: userID}, nil
			}
			images.moveFn = func(_ context.Context, _, id int64, fid *int64) (*model.Image, error) {
				return &model.Image{ID: id, UserID: userID, FolderID: fid}, nil
			}

			img, err := svc.Move(ctx, userID, 1, &folderID)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.FolderID).To(HaveValue(Equal(folderID)))

			moved := eventBus.published(bus.ImageMoved)
			Expect(moved).To(HaveLen(1))
			payload, ok := moved[0].payload.(bus.ImagePayload)
			Expect(ok).To(BeTrue())
			Expect(payload.FolderID).To(HaveValue(Equal(folderID)))
		})

		It("should allow moving to unfiled without a folder check", func() {
			images.moveFn = func(_ context.Context, _, id int64, fid *int64) (*model.Image, error) {
				Expect(fid).To(BeNil())
				return &model.Image{ID: id, UserID: userID}, nil
			}

			_, err := svc.Move(ctx, userID, 1, nil)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("should remove the stored artifact and publish image_deleted", func() {
			_, err := objects.Put(ctx, "images/1.png", []byte("png"))
			Expect(err).NotTo(HaveOccurred())

			images.getOwnedFn = func(_ context.Context, _, id int64) (*model.Image, error) {
				return &model.Image{ID: id, UserID: userID, StorageKey: "images/1.png"}, nil
			}

			Expect(svc.Delete(ctx, userID, 1)).To(Succeed())
			Expect(objects.objects).To(BeEmpty())
			Expect(eventBus.published(bus.ImageDeleted)).To(HaveLen(1))
		})

		It("should map a missing image to ErrImageNotFound", func() {
			Expect(svc.Delete(ctx, userID, 1)).To(MatchError(service.ErrImageNotFound))
		})
	})
})
