package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/service"
)

const webhookKeyHeader = "x-webhook-key"

// GenerationWebhookHandler receives completion callbacks from the external
// diffusion worker. The caller is untrusted: the response reveals nothing
// beyond "received". A recognized-or-not token always gets 200; only a body
// that is not JSON gets 400.
type GenerationWebhookHandler struct {
	completionService service.CompletionService
}

func NewGenerationWebhookHandler(completionService service.CompletionService) *GenerationWebhookHandler {
	return &GenerationWebhookHandler{completionService: completionService}
}

func (h *GenerationWebhookHandler) HandleCompletion(c *gin.Context) {
	ctx := c.Request.Context()

	if c.GetHeader(webhookKeyHeader) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing webhook key"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var payload service.CompletionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.completionService.Complete(ctx, payload); err != nil {
		// Internal failure. The worker will retry and the completion is
		// idempotent, so acknowledging here would lose the retry; this is
		// the one case that should surface as a 5xx.
		slog.ErrorContext(ctx, "failed to apply completion callback", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
