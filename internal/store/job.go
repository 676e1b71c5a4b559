package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"avatarlab.app/studio/core/db"
	"avatarlab.app/studio/internal/model"
)

type jobStore struct {
	q db.Querier
}

const jobColumns = `id, user_id, webhook_token, external_id, status, payload, result_image_id, error, created_at, completed_at`

func (s *jobStore) Create(ctx context.Context, job *model.Job) error {
	row := s.q.QueryRow(ctx, `
		INSERT INTO jobs (id, user_id, webhook_token, status, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+jobColumns,
		job.ID, job.UserID, job.WebhookToken, job.Status, job.Payload)

	created, err := scanJob(row)
	if err != nil {
		return err
	}
	*job = *created
	return nil
}

func (s *jobStore) GetOwned(ctx context.Context, userID, id int64) (*model.Job, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1 AND user_id = $2`, id, userID)
	return scanJob(row)
}

func (s *jobStore) ListByUser(ctx context.Context, userID int64, limit int32) ([]model.Job, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *job)
	}
	return result, rows.Err()
}

func (s *jobStore) AttachExternalID(ctx context.Context, userID int64, token, externalID string) error {
	// Jobs are mutable only while pending; an attach after termination is
	// indistinguishable from an unknown token.
	tag, err := s.q.Exec(ctx, `
		UPDATE jobs
		SET external_id = $3
		WHERE webhook_token = $1 AND user_id = $2 AND status = $4`,
		token, userID, externalID, model.JobStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// The status guard makes concurrent duplicate callbacks race on a single
// conditional update: exactly one transitions the row, the rest see no match.
// The external id is a secondary check once attached; a job whose worker
// never acknowledged (external_id still NULL) can still be completed by
// token alone.
func (s *jobStore) CompletePending(ctx context.Context, token, externalID string, resultImageID int64, completedAt time.Time) (*model.Job, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE jobs
		SET status = $3, result_image_id = $4, completed_at = $5
		WHERE webhook_token = $1
		  AND (external_id IS NULL OR external_id = $2)
		  AND status = $6
		RETURNING `+jobColumns,
		token, externalID, model.JobStatusCompleted, resultImageID, completedAt, model.JobStatusPending)
	return scanJob(row)
}

func (s *jobStore) FailPending(ctx context.Context, token, externalID, errMsg string, completedAt time.Time) (*model.Job, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE jobs
		SET status = $3, error = $4, completed_at = $5
		WHERE webhook_token = $1
		  AND (external_id IS NULL OR external_id = $2)
		  AND status = $6
		RETURNING `+jobColumns,
		token, externalID, model.JobStatusFailed, errMsg, completedAt, model.JobStatusPending)
	return scanJob(row)
}

func (s *jobStore) FailExpired(ctx context.Context, cutoff time.Time, reason string) ([]model.Job, error) {
	rows, err := s.q.Query(ctx, `
		UPDATE jobs
		SET status = $1, error = $2, completed_at = now()
		WHERE status = $3 AND created_at < $4
		RETURNING `+jobColumns,
		model.JobStatusFailed, reason, model.JobStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *job)
	}
	return result, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	err := row.Scan(&j.ID, &j.UserID, &j.WebhookToken, &j.ExternalID, &j.Status,
		&j.Payload, &j.ResultImageID, &j.Error, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}
