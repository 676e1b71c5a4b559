package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment, so business context
// (job_id, image_id, etc.) shows up in every log statement without being
// passed around explicitly.
type LogFields struct {
	UserID      *int64  // Owning user ID
	JobID       *int64  // Generation job ID
	ImageID     *int64  // Image ID
	CharacterID *int64  // Character ID
	Channel     *string // Realtime channel (e.g. "images")
	EventName   *string // Domain event name (e.g. "image_created")
	Component   string  // Component name (OTel semantic convention style, e.g. "studio.view.reconciler")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, incoming LogFields) LogFields {
	result := existing

	if incoming.UserID != nil {
		result.UserID = incoming.UserID
	}
	if incoming.JobID != nil {
		result.JobID = incoming.JobID
	}
	if incoming.ImageID != nil {
		result.ImageID = incoming.ImageID
	}
	if incoming.CharacterID != nil {
		result.CharacterID = incoming.CharacterID
	}
	if incoming.Channel != nil {
		result.Channel = incoming.Channel
	}
	if incoming.EventName != nil {
		result.EventName = incoming.EventName
	}
	if incoming.Component != "" {
		result.Component = incoming.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{JobID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like prompts or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
