package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"avatarlab.app/studio/common/id"
	"avatarlab.app/studio/common/logger"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/storage"
	"avatarlab.app/studio/internal/store"
)

// CompletionPayload is the decoded body of a worker callback. The token is
// the only credential; ExternalID is a secondary match once attached.
type CompletionPayload struct {
	Token      string   `json:"token"`
	ExternalID string   `json:"external_id"`
	Status     string   `json:"status"`
	Images     []string `json:"images,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// CompletionService applies an untrusted worker callback to exactly one
// pending job, exactly once. Complete returns an error only for internal
// failures; an unrecognized or already-terminated token is a silent no-op so
// the transport layer can acknowledge without leaking whether the token ever
// existed.
type CompletionService interface {
	Complete(ctx context.Context, payload CompletionPayload) error
}

type completionService struct {
	txRunner TxRunner
	objects  storage.ObjectStore
	bus      bus.Client
}

func NewCompletionService(txRunner TxRunner, objects storage.ObjectStore, busClient bus.Client) CompletionService {
	return &completionService{
		txRunner: txRunner,
		objects:  objects,
		bus:      busClient,
	}
}

func (s *completionService) Complete(ctx context.Context, payload CompletionPayload) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "studio.completion"})

	if !statusIndicatesSuccess(payload.Status) {
		reason := payload.Error
		if reason == "" {
			reason = "worker reported status " + payload.Status
		}
		return s.fail(ctx, payload, reason)
	}
	if len(payload.Images) == 0 {
		return s.fail(ctx, payload, "completion carried no artifact")
	}

	data, err := base64.StdEncoding.DecodeString(payload.Images[0])
	if err != nil || len(data) == 0 {
		// The worker claims success but the artifact is unusable. This is a
		// job failure, not an ingress error.
		return s.fail(ctx, payload, "artifact is not valid base64")
	}

	return s.complete(ctx, payload, data)
}

// errNotPending marks the claim losing: the token never existed, the
// external id mismatched, or another callback already terminated the job.
var errNotPending = errors.New("no pending job matched")

func (s *completionService) complete(ctx context.Context, payload CompletionPayload, artifact []byte) error {
	imageID := id.New()
	storageKey := fmt.Sprintf("images/%d.png", imageID)

	// Artifact bytes land before the claim; storage is not transactional,
	// and an orphan file from a lost claim is removed below.
	url, err := s.objects.Put(ctx, storageKey, artifact)
	if err != nil {
		return fmt.Errorf("persisting artifact: %w", err)
	}

	now := time.Now().UTC()
	var (
		job   *model.Job
		image *model.Image
	)

	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		// The conditional update claims the job atomically: a concurrent
		// duplicate callback for the same token loses this race and sees
		// ErrNotFound, so only one callback ever inserts and publishes.
		claimed, err := stores.Jobs().CompletePending(ctx, payload.Token, payload.ExternalID, imageID, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotPending
			}
			return fmt.Errorf("claiming job: %w", err)
		}
		job = claimed

		var params GenerationPayload
		if len(job.Payload) > 0 {
			if err := json.Unmarshal(job.Payload, &params); err != nil {
				slog.WarnContext(ctx, "job payload is not decodable, storing image without placement", "error", err, "job_id", job.ID)
			}
		}

		image = &model.Image{
			ID:          imageID,
			UserID:      job.UserID,
			CharacterID: params.CharacterID,
			FolderID:    params.FolderID,
			JobID:       &job.ID,
			URL:         url,
			StorageKey:  storageKey,
			NSFW:        params.NSFW,
		}
		if params.Prompt != "" {
			image.Prompt = &params.Prompt
		}
		if err := stores.Images().Create(ctx, image); err != nil {
			return fmt.Errorf("creating image: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errNotPending) {
			if delErr := s.objects.Delete(ctx, storageKey); delErr != nil {
				slog.WarnContext(ctx, "failed to remove orphaned artifact", "error", delErr)
			}
			slog.InfoContext(ctx, "ignoring callback for non-pending job")
			return nil
		}
		return err
	}

	slog.InfoContext(ctx, "job completed",
		"job_id", job.ID,
		"user_id", job.UserID,
		"image_id", image.ID,
	)

	// Publish only after the commit, exactly once per channel. The image
	// event carries every field the view filter needs.
	s.bus.Publish(ctx, bus.ChannelImages, bus.ImageCreated, imagePayload(image))
	s.bus.Publish(ctx, bus.ChannelJobs, bus.JobCompleted, jobPayload(job))
	return nil
}

func (s *completionService) fail(ctx context.Context, payload CompletionPayload, reason string) error {
	var job *model.Job
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		failed, err := stores.Jobs().FailPending(ctx, payload.Token, payload.ExternalID, reason, time.Now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errNotPending
			}
			return fmt.Errorf("failing job: %w", err)
		}
		job = failed
		return nil
	})
	if err != nil {
		if errors.Is(err, errNotPending) {
			slog.InfoContext(ctx, "ignoring failure callback for non-pending job")
			return nil
		}
		return err
	}

	slog.InfoContext(ctx, "job failed", "job_id", job.ID, "user_id", job.UserID, "reason", logger.Truncate(reason, 200))

	s.bus.Publish(ctx, bus.ChannelJobs, bus.JobFailed, jobPayload(job))
	return nil
}

func statusIndicatesSuccess(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded", "success", "completed", "complete", "done":
		return true
	default:
		return false
	}
}

func imagePayload(img *model.Image) bus.ImagePayload {
	return bus.ImagePayload{
		ID:          img.ID,
		UserID:      img.UserID,
		CharacterID: img.CharacterID,
		FolderID:    img.FolderID,
		Favorite:    img.Favorite,
		NSFW:        img.NSFW,
	}
}

func jobPayload(job *model.Job) bus.JobPayload {
	return bus.JobPayload{
		ID:            job.ID,
		UserID:        job.UserID,
		Status:        string(job.Status),
		ResultImageID: job.ResultImageID,
		Error:         job.Error,
	}
}
