package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"avatarlab.app/studio/common/id"
	"avatarlab.app/studio/internal/model"
	"avatarlab.app/studio/internal/store"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrMissingField = errors.New("missing required field")
)

// JobService owns job records and their state machine. The webhook token
// minted at creation is the capability the completion webhook trusts; it is
// returned to the creator exactly once and never logged.
type JobService interface {
	Create(ctx context.Context, userID int64, payload json.RawMessage) (*model.Job, error)
	AttachExternalID(ctx context.Context, userID int64, token, externalID string) error
	Get(ctx context.Context, userID, jobID int64) (*model.Job, error)
	List(ctx context.Context, userID int64, limit int32) ([]model.Job, error)
}

type jobService struct {
	jobStore store.JobStore
}

func NewJobService(jobStore store.JobStore) JobService {
	return &jobService{jobStore: jobStore}
}

func (s *jobService) Create(ctx context.Context, userID int64, payload json.RawMessage) (*model.Job, error) {
	token, err := newWebhookToken()
	if err != nil {
		return nil, fmt.Errorf("generating webhook token: %w", err)
	}

	job := &model.Job{
		ID:           id.New(),
		UserID:       userID,
		WebhookToken: token,
		Status:       model.JobStatusPending,
		Payload:      payload,
	}

	if err := s.jobStore.Create(ctx, job); err != nil {
		slog.ErrorContext(ctx, "failed to create job", "error", err, "user_id", userID)
		return nil, fmt.Errorf("creating job: %w", err)
	}

	slog.InfoContext(ctx, "job created", "job_id", job.ID, "user_id", userID)
	return job, nil
}

func (s *jobService) AttachExternalID(ctx context.Context, userID int64, token, externalID string) error {
	token = strings.TrimSpace(token)
	externalID = strings.TrimSpace(externalID)
	if token == "" || externalID == "" {
		return ErrMissingField
	}

	if err := s.jobStore.AttachExternalID(ctx, userID, token, externalID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("attaching external id: %w", err)
	}

	slog.InfoContext(ctx, "external id attached", "user_id", userID, "external_id", externalID)
	return nil
}

func (s *jobService) Get(ctx context.Context, userID, jobID int64) (*model.Job, error) {
	job, err := s.jobStore.GetOwned(ctx, userID, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

func (s *jobService) List(ctx context.Context, userID int64, limit int32) ([]model.Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	jobs, err := s.jobStore.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// newWebhookToken mints an unguessable capability string. 32 random bytes
// hex encoded; unguessable, not merely unique.
func newWebhookToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
