package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"avatarlab.app/studio/core/config"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/provider/diffusion"
	"avatarlab.app/studio/internal/store"
)

var (
	ErrEmptyPrompt          = errors.New("prompt is required")
	ErrGeneratorUnavailable = errors.New("generation worker is not configured")
)

// GenerationPayload is persisted as the job's opaque payload and read back
// when the completion callback materializes the image.
type GenerationPayload struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
	CharacterID    *int64 `json:"character_id,omitempty"`
	FolderID       *int64 `json:"folder_id,omitempty"`
	NSFW           bool   `json:"nsfw,omitempty"`
}

// GenerationParams are the caller-supplied inputs for one generation.
type GenerationParams struct {
	Prompt      string
	Width       int
	Height      int
	Seed        *int64
	CharacterID *int64
	FolderID    *int64
	NSFW        bool
}

// Dispatcher is the submit half of the diffusion worker client.
type Dispatcher interface {
	Submit(ctx context.Context, req diffusion.Request) (*diffusion.Submission, error)
}

// GenerationService orchestrates one generation end to end: enhance the
// prompt, mint a job with its webhook token, hand both to the worker, and
// record the worker's external id. The image itself arrives later over the
// completion webhook.
type GenerationService interface {
	Generate(ctx context.Context, userID int64, params GenerationParams) (*model.Job, error)
}

type generationService struct {
	jobs       JobService
	jobStore   store.JobStore
	characters store.CharacterStore
	folders    store.FolderStore
	enhancer   PromptEnhancer
	dispatcher Dispatcher
	bus        bus.Client
	cfg        config.GeneratorConfig
}

func NewGenerationService(
	jobs JobService,
	jobStore store.JobStore,
	characters store.CharacterStore,
	folders store.FolderStore,
	enhancer PromptEnhancer,
	dispatcher Dispatcher,
	busClient bus.Client,
	cfg config.GeneratorConfig,
) GenerationService {
	return &generationService{
		jobs:       jobs,
		jobStore:   jobStore,
		characters: characters,
		folders:    folders,
		enhancer:   enhancer,
		dispatcher: dispatcher,
		bus:        busClient,
		cfg:        cfg,
	}
}

func (s *generationService) Generate(ctx context.Context, userID int64, params GenerationParams) (*model.Job, error) {
	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.dispatcher == nil {
		return nil, ErrGeneratorUnavailable
	}

	// Placement targets are validated up front so a completion months of
	// queue later does not try to file the image under someone else's
	// folder or character.
	if params.CharacterID != nil {
		if _, err := s.characters.GetOwned(ctx, userID, *params.CharacterID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrCharacterNotFound
			}
			return nil, fmt.Errorf("checking character: %w", err)
		}
	}
	if params.FolderID != nil {
		if _, err := s.folders.GetOwned(ctx, userID, *params.FolderID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrFolderNotFound
			}
			return nil, fmt.Errorf("checking folder: %w", err)
		}
	}

	enhanced, err := s.enhancer.Enhance(ctx, prompt)
	if err != nil || strings.TrimSpace(enhanced.Prompt) == "" {
		enhanced = EnhancedPrompt{Prompt: prompt}
	}

	payload := GenerationPayload{
		Prompt:         enhanced.Prompt,
		NegativePrompt: enhanced.NegativePrompt,
		Width:          params.Width,
		Height:         params.Height,
		Seed:           params.Seed,
		CharacterID:    params.CharacterID,
		FolderID:       params.FolderID,
		NSFW:           params.NSFW,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding generation payload: %w", err)
	}

	job, err := s.jobs.Create(ctx, userID, raw)
	if err != nil {
		return nil, err
	}

	submission, err := s.dispatcher.Submit(ctx, diffusion.Request{
		Prompt:         enhanced.Prompt,
		NegativePrompt: enhanced.NegativePrompt,
		Width:          params.Width,
		Height:         params.Height,
		Seed:           params.Seed,
		WebhookURL:     strings.TrimRight(s.cfg.WebhookBaseURL, "/") + "/webhooks/generation",
		WebhookToken:   job.WebhookToken,
	})
	if err != nil {
		// The worker never accepted the job, so no callback will arrive.
		// Terminate it now instead of waiting for the expiry sweep.
		s.failDispatch(ctx, job, err)
		return nil, fmt.Errorf("submitting generation: %w", err)
	}

	if err := s.jobStore.AttachExternalID(ctx, userID, job.WebhookToken, submission.ExternalID); err != nil {
		// Advisory only. The webhook token still matches the callback.
		slog.WarnContext(ctx, "failed to attach external id", "error", err, "job_id", job.ID)
	} else {
		job.ExternalID = &submission.ExternalID
	}

	slog.InfoContext(ctx, "generation dispatched",
		"job_id", job.ID,
		"user_id", userID,
		"external_id", submission.ExternalID,
	)
	return job, nil
}

func (s *generationService) failDispatch(ctx context.Context, job *model.Job, cause error) {
	failed, err := s.jobStore.FailPending(ctx, job.WebhookToken, "", "dispatch failed: "+cause.Error(), time.Now().UTC())
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark job as dispatch-failed", "error", err, "job_id", job.ID)
		return
	}
	s.bus.Publish(ctx, bus.ChannelJobs, bus.JobFailed, jobPayload(failed))
}
