package service_test

import (
	"context"
	"encoding/base64"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"avatarlab.app/studio/common/id"
	"avatarlab.app/studio/core/config"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/service"
)

// End-to-end job lifecycle over the registry and the webhook ingress:
// create, attach the worker's id, complete once, verify the duplicate
// callback is a no-op.
var _ = Describe("job lifecycle", func() {
	const userID = int64(42)

	It("should complete exactly once across duplicate callbacks", func() {
		ctx := context.Background()
		Expect(id.Init(1)).To(Succeed())

		table := newFakeJobTable()
		jobs := &mockJobStore{
			createFn: func(_ context.Context, job *model.Job) error {
				copied := *job
				table.byToken[job.WebhookToken] = &copied
				return nil
			},
			attachExternalIDFn: table.attachExternalID,
			completePendingFn:  table.completePending,
			failPendingFn:      table.failPending,
		}

		var createdImages []*model.Image
		images := &mockImageStore{
			createFn: func(_ context.Context, image *model.Image) error {
				createdImages = append(createdImages, image)
				return nil
			},
		}

		eventBus := &recordingBus{}
		objects := newMockObjectStore()
		registry := service.NewJobService(jobs)
		ingress := service.NewCompletionService(
			&mockTxRunner{provider: &mockStoreProvider{jobs: jobs, images: images}},
			objects,
			eventBus,
		)

		job, err := registry.Create(ctx, userID, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(job.WebhookToken).NotTo(BeEmpty())

		Expect(registry.AttachExternalID(ctx, userID, job.WebhookToken, "ext-1")).To(Succeed())

		callback := service.CompletionPayload{
			Token:      job.WebhookToken,
			ExternalID: "ext-1",
			Status:     "succeeded",
			Images:     []string{base64.StdEncoding.EncodeToString([]byte("png"))},
		}

		Expect(ingress.Complete(ctx, callback)).To(Succeed())

		stored := table.byToken[job.WebhookToken]
		Expect(stored.Status).To(Equal(model.JobStatusCompleted))
		Expect(stored.CompletedAt).NotTo(BeNil())
		Expect(createdImages).To(HaveLen(1))

		created := eventBus.published(bus.ImageCreated)
		Expect(created).To(HaveLen(1))
		payload, ok := created[0].payload.(bus.ImagePayload)
		Expect(ok).To(BeTrue())
		Expect(payload.ID).To(Equal(createdImages[0].ID))

		// The worker retries; nothing may change.
		Expect(ingress.Complete(ctx, callback)).To(Succeed())

		Expect(table.byToken[job.WebhookToken].Status).To(Equal(model.JobStatusCompleted))
		Expect(createdImages).To(HaveLen(1))
		Expect(eventBus.published(bus.ImageCreated)).To(HaveLen(1))
		Expect(eventBus.published(bus.JobCompleted)).To(HaveLen(1))

		// Terminated jobs are immutable; a late attach looks like an
		// unknown token.
		err = registry.AttachExternalID(ctx, userID, job.WebhookToken, "ext-2")
		Expect(err).To(MatchError(service.ErrJobNotFound))
		Expect(*table.byToken[job.WebhookToken].ExternalID).To(Equal("ext-1"))
	})
})

var _ = Describe("JobReaper", func() {
	It("should fail expired jobs and publish one event each", func() {
		ctx := context.Background()
		eventBus := &recordingBus{}

		var gotCutoff time.Time
		errMsg := "generation timed out"
		jobs := &mockJobStore{
			failExpiredFn: func(_ context.Context, cutoff time.Time, reason string) ([]model.Job, error) {
				gotCutoff = cutoff
				Expect(reason).To(Equal(errMsg))
				return []model.Job{
					{ID: 1, UserID: 42, Status: model.JobStatusFailed, Error: &errMsg},
					{ID: 2, UserID: 43, Status: model.JobStatusFailed, Error: &errMsg},
				}, nil
			},
		}

		reaper := service.NewJobReaper(jobs, eventBus, config.JobsConfig{
			PendingTTL:    10 * time.Minute,
			SweepInterval: time.Minute,
		})
		reaper.Sweep(ctx)

		Expect(gotCutoff).To(BeTemporally("~", time.Now().UTC().Add(-10*time.Minute), time.Minute))
		Expect(eventBus.published(bus.JobFailed)).To(HaveLen(2))
	})
})
