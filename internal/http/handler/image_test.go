package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"avatarlab.app/studio/internal/http/handler"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/service"
	"avatarlab.app/studio/internal/view"
)

var _ = Describe("ImageHandler", func() {
	var (
		router *gin.Engine
		svc    *mockImageService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(authAs(&model.User{ID: 42}))
		svc = &mockImageService{}
		h := handler.NewImageHandler(svc)
		router.GET("/images", h.List)
		router.PATCH("/images/:id/favorite", h.SetFavorite)
		router.PATCH("/images/:id/folder", h.Move)
		router.DELETE("/images/:id", h.Delete)
	})

	Describe("List", func() {
		It("translates query parameters into the view filter", func() {
			var gotFilter view.Filter
			svc.listFn = func(_ context.Context, userID int64, filter view.Filter, limit, offset int32) ([]model.Image, int64, error) {
				Expect(userID).To(Equal(int64(42)))
				gotFilter = filter
				return []model.Image{{ID: 1, UserID: 42}}, 12, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/images?character_id=9&folder=unfiled&favorites=true", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotFilter.CharacterID).To(HaveValue(Equal(int64(9))))
			Expect(gotFilter.Folder.Unfiled).To(BeTrue())
			Expect(gotFilter.FavoritesOnly).To(BeTrue())

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["total_count"]).To(BeEquivalentTo(12))
		})

		It("parses a specific folder id", func() {
			var gotFilter view.Filter
			svc.listFn = func(_ context.Context, _ int64, filter view.Filter, _, _ int32) ([]model.Image, int64, error) {
				gotFilter = filter
				return nil, 0, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/images?folder=77", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotFilter.Folder.ID).To(HaveValue(Equal(int64(77))))
		})

		It("rejects a malformed folder id", func() {
			req := httptest.NewRequest(http.MethodGet, "/images?folder=not-a-number", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("SetFavorite", func() {
		It("requires an explicit favorite flag", func() {
			req := httptest.NewRequest(http.MethodPatch, "/images/1/favorite", bytes.NewBufferString(`{}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Move", func() {
		It("accepts a null folder id to unfile the image", func() {
			svc.moveFn = func(_ context.Context, _, imageID int64, folderID *int64) (*model.Image, error) {
				Expect(folderID).To(BeNil())
				return &model.Image{ID: imageID, UserID: 42}, nil
			}

			req := httptest.NewRequest(http.MethodPatch, "/images/1/folder", bytes.NewBufferString(`{"folder_id":null}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 404 when the target folder is not owned", func() {
			svc.moveFn = func(_ context.Context, _, _ int64, _ *int64) (*model.Image, error) {
				return nil, service.ErrFolderNotFound
			}

			req := httptest.NewRequest(http.MethodPatch, "/images/1/folder", bytes.NewBufferString(`{"folder_id":"9"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Delete", func() {
		It("returns 404 for an image that is absent or not owned", func() {
			svc.deleteFn = func(_ context.Context, _, _ int64) error {
				return service.ErrImageNotFound
			}

			req := httptest.NewRequest(http.MethodDelete, "/images/1", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
