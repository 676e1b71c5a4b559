package model

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks a unit of work delegated to the external generation worker.
// WebhookToken is the only credential the completion webhook trusts; it is
// returned once at creation and never echoed back afterwards. ExternalID is
// the worker's own identifier, attached after the worker accepts the job,
// and is advisory only.
//
// A job is mutable only while pending. It is terminated exactly once, to
// completed (with ResultImageID) or failed (with Error).
type Job struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	WebhookToken  string          `json:"-"`
	ExternalID    *string         `json:"external_id,omitempty"`
	Status        JobStatus       `json:"status"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ResultImageID *int64          `json:"result_image_id,omitempty"`
	Error         *string         `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
