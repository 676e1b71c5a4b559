package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"avatarlab.app/studio/common/id"
	"avatarlab.app/studio/core/config"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/provider/diffusion"
	"avatarlab.app/studio/internal/service"
	"avatarlab.app/studio/internal/store"
)

var _ = Describe("GenerationService", func() {
	const userID = int64(42)

	var (
		svc        service.GenerationService
		jobs       *mockJobStore
		characters *mockCharacterStore
		folders    *mockFolderStore
		dispatcher *mockDispatcher
		eventBus   *recordingBus
		ctx        context.Context

		createdJobs []*model.Job
	)

	newService := func() service.GenerationService {
		jobSvc := service.NewJobService(jobs)
		return service.NewGenerationService(
			jobSvc,
			jobs,
			characters,
			folders,
			service.NewDisabledEnhancer(),
			dispatcher,
			eventBus,
			config.GeneratorConfig{
				BaseURL:        "http://worker.internal",
				WebhookBaseURL: "https://studio.example",
			},
		)
	}

	BeforeEach(func() {
		ctx = context.Background()
		eventBus = &recordingBus{}
		dispatcher = &mockDispatcher{}
		characters = &mockCharacterStore{}
		folders = &mockFolderStore{}
		createdJobs = nil

		jobs = &mockJobStore{
			createFn: func(_ context.Context, job *model.Job) error {
				createdJobs = append(createdJobs, job)
				return nil
			},
		}
		svc = newService()

		err := id.Init(1)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject an empty prompt", func() {
		_, err := svc.Generate(ctx, userID, service.GenerationParams{Prompt: "   "})
		Expect(err).To(MatchError(service.ErrEmptyPrompt))
	})

	It("should hand the worker the webhook URL and the job's token", func() {
		var submitted diffusion.Request
		dispatcher.submitFn = func(_ context.Context, req diffusion.Request) (*diffusion.Submission, error) {
			submitted = req
			return &diffusion.Submission{ExternalID: "ext-1"}, nil
		}

		var attachedToken, attachedExternal string
		jobs.attachExternalIDFn = func(_ context.Context, gotUserID int64, token, externalID string) error {
			Expect(gotUserID).To(Equal(userID))
			attachedToken = token
			attachedExternal = externalID
			return nil
		}

		job, err := svc.Generate(ctx, userID, service.GenerationParams{Prompt: "a knight"})
		Expect(err).NotTo(HaveOccurred())

		Expect(submitted.WebhookURL).To(Equal("https://studio.example/webhooks/generation"))
		Expect(submitted.WebhookToken).To(Equal(job.WebhookToken))
		Expect(attachedToken).To(Equal(job.WebhookToken))
		Expect(attachedExternal).To(Equal("ext-1"))
		Expect(job.ExternalID).To(HaveValue(Equal("ext-1")))
	})

	It("should carry the enhancer's rewrite and negative prompt to the worker", func() {
		enhancer := &mockEnhancer{
			enhanceFn: func(_ context.Context, prompt string) (service.EnhancedPrompt, error) {
				Expect(prompt).To(Equal("a knight"))
				return service.EnhancedPrompt{
					Prompt:         "a knight in ornate plate armor, golden hour",
					NegativePrompt: "blurry, extra limbs",
				}, nil
			},
		}
		svc = service.NewGenerationService(
			service.NewJobService(jobs),
			jobs,
			characters,
			folders,
			enhancer,
			dispatcher,
			eventBus,
			config.GeneratorConfig{WebhookBaseURL: "https://studio.example"},
		)

		var submitted diffusion.Request
		dispatcher.submitFn = func(_ context.Context, req diffusion.Request) (*diffusion.Submission, error) {
			submitted = req
			return &diffusion.Submission{ExternalID: "ext-1"}, nil
		}

		_, err := svc.Generate(ctx, userID, service.GenerationParams{Prompt: "a knight"})
		Expect(err).NotTo(HaveOccurred())

		Expect(submitted.Prompt).To(Equal("a knight in ornate plate armor, golden hour"))
		Expect(submitted.NegativePrompt).To(Equal("blurry, extra limbs"))

		Expect(createdJobs).To(HaveLen(1))
		var payload service.GenerationPayload
		Expect(json.Unmarshal(createdJobs[0].Payload, &payload)).To(Succeed())
		Expect(payload.NegativePrompt).To(Equal("blurry, extra limbs"))
	})

	It("should persist the placement targets in the job payload", func() {
		characterID := int64(9)
		folderID := int64(7)
		characters.getOwnedFn = func(_ context.Context, _, id int64) (*model.Character, error) {
			return &model.Character{ID: id, UserID: userID}, nil
		}
		folders.getOwnedFn = func(_ context.Context, _, id int64) (*model.Folder, error) {
			return &model.Folder{ID: id, UserID: userID}, nil
		}

		_, err := svc.Generate(ctx, userID, service.GenerationParams{
			Prompt:      "a knight",
			CharacterID: &characterID,
			FolderID:    &folderID,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(createdJobs).To(HaveLen(1))
		var payload service.GenerationPayload
		Expect(json.Unmarshal(createdJobs[0].Payload, &payload)).To(Succeed())
		Expect(payload.CharacterID).To(HaveValue(Equal(characterID)))
		Expect(payload.FolderID).To(HaveValue(Equal(folderID)))
	})

	It("should reject placement under a character the caller does not own", func() {
		characterID := int64(9)
		characters.getOwnedFn = func(_ context.Context, _, _ int64) (*model.Character, error) {
			return nil, store.ErrNotFound
		}

		_, err := svc.Generate(ctx, userID, service.GenerationParams{
			Prompt:      "a knight",
			CharacterID: &characterID,
		})
		Expect(err).To(MatchError(service.ErrCharacterNotFound))
		Expect(createdJobs).To(BeEmpty())
	})

	It("should fail the job when the worker refuses the submission", func() {
		dispatcher.submitFn = func(_ context.Context, _ diffusion.Request) (*diffusion.Submission, error) {
			return nil, fmt.Errorf("worker queue full")
		}

		var failedToken string
		jobs.failPendingFn = func(_ context.Context, token, _, errMsg string, _ time.Time) (*model.Job, error) {
			failedToken = token
			Expect(strings.Contains(errMsg, "dispatch failed")).To(BeTrue())
			reason := errMsg
			return &model.Job{ID: 100, UserID: userID, Status: model.JobStatusFailed, Error: &reason}, nil
		}

		_, err := svc.Generate(ctx, userID, service.GenerationParams{Prompt: "a knight"})
		Expect(err).To(HaveOccurred())

		Expect(createdJobs).To(HaveLen(1))
		Expect(failedToken).To(Equal(createdJobs[0].WebhookToken))
		Expect(eventBus.published(bus.JobFailed)).To(HaveLen(1))
	})
})
