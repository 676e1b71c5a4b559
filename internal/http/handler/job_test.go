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
)

var _ = Describe("JobHandler", func() {
	var (
		router *gin.Engine
		svc    *mockJobService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(authAs(&model.User{ID: 42, Name: "Avery"}))
		svc = &mockJobService{}
		h := handler.NewJobHandler(svc)
		router.POST("/jobs", h.Create)
		router.PATCH("/jobs/external-id", h.AttachExternalID)
		router.GET("/jobs/:id", h.Get)
	})

	Describe("Create", func() {
		It("returns 201 with the id and the one-time webhook token", func() {
			svc.createFn = func(_ context.Context, userID int64, payload json.RawMessage) (*model.Job, error) {
				Expect(userID).To(Equal(int64(42)))
				return &model.Job{ID: 7, UserID: userID, WebhookToken: "tok-abc", Status: model.JobStatusPending}, nil
			}

			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(`{"payload":{"prompt":"a knight"}}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["webhook_token"]).To(Equal("tok-abc"))
			Expect(resp["status"]).To(Equal("pending"))
		})
	})

	Describe("AttachExternalID", func() {
		attach := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPatch, "/jobs/external-id", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		It("returns 200 ok on success", func() {
			var gotToken string
			svc.attachExternalIDFn = func(_ context.Context, userID int64, token, externalID string) error {
				Expect(userID).To(Equal(int64(42)))
				gotToken = token
				return nil
			}

			w := attach(`{"token":"tok","external_id":"ext-1"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotToken).To(Equal("tok"))
		})

		It("returns 400 when fields are missing", func() {
			Expect(attach(`{"token":"tok"}`).Code).To(Equal(http.StatusBadRequest))
			Expect(attach(`{"external_id":"ext-1"}`).Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when the token is unknown for this owner", func() {
			svc.attachExternalIDFn = func(_ context.Context, _ int64, _, _ string) error {
				return service.ErrJobNotFound
			}
			Expect(attach(`{"token":"other","external_id":"ext-1"}`).Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Get", func() {
		It("never echoes the webhook token back", func() {
			svc.getFn = func(_ context.Context, _, jobID int64) (*model.Job, error) {
				return &model.Job{ID: jobID, UserID: 42, WebhookToken: "secret", Status: model.JobStatusCompleted}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/jobs/7", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).NotTo(ContainSubstring("secret"))
		})
	})
})
