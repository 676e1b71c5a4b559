package dto

import (
	"encoding/json"
	"time"

	"avatarlab.app/studio/internal/model"
)

type CreateJobRequest struct {
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CreateJobResponse is the only place the webhook token ever crosses the
// wire: the creator receives it once, to hand to the worker of its choice.
type CreateJobResponse struct {
	ID           int64  `json:"id,string"`
	WebhookToken string `json:"webhook_token"`
	Status       string `json:"status"`
}

type AttachExternalIDRequest struct {
	Token      string `json:"token" binding:"required"`
	ExternalID string `json:"external_id" binding:"required"`
}

type JobResponse struct {
	ID            int64      `json:"id,string"`
	Status        string     `json:"status"`
	ExternalID    *string    `json:"external_id,omitempty"`
	ResultImageID *int64     `json:"result_image_id,string,omitempty"`
	Error         *string    `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func ToJobResponse(job *model.Job) *JobResponse {
	return &JobResponse{
		ID:            job.ID,
		Status:        string(job.Status),
		ExternalID:    job.ExternalID,
		ResultImageID: job.ResultImageID,
		Error:         job.Error,
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}
}

func ToJobResponses(jobs []model.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, *ToJobResponse(&jobs[i]))
	}
	return out
}
