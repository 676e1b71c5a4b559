package service_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"avatarlab.app/studio/common/id"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/service"
	"avatarlab.app/studio/internal/store"
)

// fakeJobTable mimics the store's conditional claim semantics in memory so
// idempotency can be exercised across repeated callbacks.
type fakeJobTable struct {
	byToken map[string]*model.Job
}

func newFakeJobTable(jobs ...*model.Job) *fakeJobTable {
	t := &fakeJobTable{byToken: make(map[string]*model.Job)}
	for _, job := range jobs {
		t.byToken[job.WebhookToken] = job
	}
	return t
}

func (t *fakeJobTable) claimable(token, externalID string) *model.Job {
	job, ok := t.byToken[token]
	if !ok || job.Status != model.JobStatusPending {
		return nil
	}
	if job.ExternalID != nil && externalID != *job.ExternalID {
		return nil
	}
	return job
}

func (t *fakeJobTable) attachExternalID(_ context.Context, userID int64, token, externalID string) error {
	job, ok := t.byToken[token]
	if !ok || job.UserID != userID || job.Status != model.JobStatusPending {
		return store.ErrNotFound
	}
	job.ExternalID = &externalID
	return nil
}

func (t *fakeJobTable) completePending(_ context.Context, token, externalID string, resultImageID int64, completedAt time.Time) (*model.Job, error) {
	job := t.claimable(token, externalID)
	if job == nil {
		return nil, store.ErrNotFound
	}
	job.Status = model.JobStatusCompleted
	job.ResultImageID = &resultImageID
	job.CompletedAt = &completedAt
	out := *job
	return &out, nil
}

func (t *fakeJobTable) failPending(_ context.Context, token, externalID, errMsg string, completedAt time.Time) (*model.Job, error) {
	job := t.claimable(token, externalID)
	if job == nil {
		return nil, store.ErrNotFound
	}
	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	job.CompletedAt = &completedAt
	out := *job
	return &out, nil
}

var _ = Describe("CompletionService", func() {
	const (
		userID = int64(42)
		token  = "tok-1"
		extID  = "ext-1"
	)

	var (
		svc          service.CompletionService
		jobs         *mockJobStore
		images       *mockImageStore
		table        *fakeJobTable
		eventBus     *recordingBus
		objects      *mockObjectStore
		ctx          context.Context
		createdImage *model.Image
	)

	artifact := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	pendingJob := func() *model.Job {
		ext := extID
		payload, _ := json.Marshal(service.GenerationPayload{Prompt: "a knight", NSFW: false})
		return &model.Job{
			ID:           100,
			UserID:       userID,
			WebhookToken: token,
			ExternalID:   &ext,
			Status:       model.JobStatusPending,
			Payload:      payload,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		eventBus = &recordingBus{}
		objects = newMockObjectStore()
		createdImage = nil

		table = newFakeJobTable(pendingJob())
		jobs = &mockJobStore{
			completePendingFn: table.completePending,
			failPendingFn:     table.failPending,
		}
		images = &mockImageStore{
			createFn: func(_ context.Context, image *model.Image) error {
				createdImage = image
				return nil
			},
		}

		runner := &mockTxRunner{provider: &mockStoreProvider{jobs: jobs, images: images}}
		svc = service.NewCompletionService(runner, objects, eventBus)

		err := id.Init(1)
		Expect(err).NotTo(HaveOccurred())
	})

	complete := func(status string, imgs []string) error {
		return svc.Complete(ctx, service.CompletionPayload{
			Token:      token,
			ExternalID: extID,
			Status:     status,
			Images:     imgs,
		})
	}

	Describe("successful completion", func() {
		It("should claim the job, persist the artifact, and publish one event per channel", func() {
			Expect(complete("succeeded", []string{artifact})).To(Succeed())

			job := table.byToken[token]
			Expect(job.Status).To(Equal(model.JobStatusCompleted))
			Expect(job.ResultImageID).NotTo(BeNil())

			Expect(createdImage).NotTo(BeNil())
			Expect(createdImage.UserID).To(Equal(userID))
			Expect(createdImage.JobID).To(HaveValue(Equal(int64(100))))
			Expect(createdImage.Prompt).To(HaveValue(Equal("a knight")))
			Expect(createdImage.URL).NotTo(BeEmpty())

			Expect(objects.objects).To(HaveLen(1))

			created := eventBus.published(bus.ImageCreated)
			Expect(created).To(HaveLen(1))
			payload, ok := created[0].payload.(bus.ImagePayload)
			Expect(ok).To(BeTrue())
			Expect(payload.ID).To(Equal(createdImage.ID))
			Expect(payload.UserID).To(Equal(userID))

			Expect(eventBus.published(bus.JobCompleted)).To(HaveLen(1))
		})

		It("should be idempotent: a duplicate callback neither re-transitions nor re-publishes", func() {
			Expect(complete("succeeded", []string{artifact})).To(Succeed())
			firstImageID := createdImage.ID

			Expect(complete("succeeded", []string{artifact})).To(Succeed())

			Expect(table.byToken[token].Status).To(Equal(model.JobStatusCompleted))
			Expect(table.byToken[token].ResultImageID).To(HaveValue(Equal(firstImageID)))
			Expect(eventBus.published(bus.ImageCreated)).To(HaveLen(1))
			Expect(eventBus.published(bus.JobCompleted)).To(HaveLen(1))
			// The duplicate's orphaned artifact is cleaned up.
			Expect(objects.objects).To(HaveLen(1))
		})

		It("should file the image under the folder and character from the job payload", func() {
			folderID := int64(7)
			characterID := int64(9)
			payload, err := json.Marshal(service.GenerationPayload{
				Prompt:      "portrait",
				FolderID:    &folderID,
				CharacterID: &characterID,
			})
			Expect(err).NotTo(HaveOccurred())
			table.byToken[token].Payload = payload

			Expect(complete("succeeded", []string{artifact})).To(Succeed())

			Expect(createdImage.FolderID).To(HaveValue(Equal(folderID)))
			Expect(createdImage.CharacterID).To(HaveValue(Equal(characterID)))
		})
	})

	Describe("failure classification", func() {
		It("should fail the job when the worker reports an error status", func() {
			err := svc.Complete(ctx, service.CompletionPayload{
				Token:      token,
				ExternalID: extID,
				Status:     "failed",
				Error:      "NSFW rejected by worker",
			})
			Expect(err).NotTo(HaveOccurred())

			job := table.byToken[token]
			Expect(job.Status).To(Equal(model.JobStatusFailed))
			Expect(job.Error).To(HaveValue(Equal("NSFW rejected by worker")))
			Expect(eventBus.published(bus.JobFailed)).To(HaveLen(1))
			Expect(eventBus.published(bus.ImageCreated)).To(BeEmpty())
		})

		It("should treat a success status without artifacts as a failure", func() {
			Expect(complete("succeeded", nil)).To(Succeed())
			Expect(table.byToken[token].Status).To(Equal(model.JobStatusFailed))
		})

		It("should treat an undecodable artifact as a failure, not an ingress error", func() {
			Expect(complete("succeeded", []string{"%%not-base64%%"})).To(Succeed())
			Expect(table.byToken[token].Status).To(Equal(model.JobStatusFailed))
			Expect(eventBus.published(bus.JobFailed)).To(HaveLen(1))
		})
	})

	Describe("unknown tokens", func() {
		It("should acknowledge silently and leave no trace", func() {
			err := svc.Complete(ctx, service.CompletionPayload{
				Token:      "never-issued",
				ExternalID: extID,
				Status:     "succeeded",
				Images:     []string{artifact},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(eventBus.events).To(BeEmpty())
			Expect(objects.objects).To(BeEmpty())
			Expect(createdImage).To(BeNil())
		})

		It("should ignore a callback whose external id mismatches the attached one", func() {
			err := svc.Complete(ctx, service.CompletionPayload{
				Token:      token,
				ExternalID: "ext-other",
				Status:     "succeeded",
				Images:     []string{artifact},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(table.byToken[token].Status).To(Equal(model.JobStatusPending))
			Expect(eventBus.events).To(BeEmpty())
		})
	})
})
