package service

import (
	"context"
	"log/slog"
	"strings"

	"avatarlab.app/studio/common/llm"
)

// PromptEnhancer rewrites a user's terse prompt into a detailed diffusion
// prompt. When no LLM is configured, Enhance is a pass-through; generation
// never depends on the enhancer being available.
type PromptEnhancer interface {
	Enhance(ctx context.Context, prompt string) (EnhancedPrompt, error)
}

// EnhancedPrompt is the enhancer's rewrite. NegativePrompt is empty when the
// model offered none or the enhancer is disabled.
type EnhancedPrompt struct {
	Prompt         string
	NegativePrompt string
}

type enhancedPrompt struct {
	Prompt         string `json:"prompt" jsonschema_description:"The rewritten, richly detailed image generation prompt"`
	NegativePrompt string `json:"negative_prompt" jsonschema_description:"Artifacts and qualities to avoid"`
}

const enhancerSystemPrompt = `You rewrite short character image prompts into detailed prompts for a diffusion model.
Keep the subject and any named attributes exactly as given. Add composition, lighting, and style detail.
Keep the rewritten prompt under 150 words.`

type promptEnhancer struct {
	client    llm.Client
	maxTokens int
}

func NewPromptEnhancer(client llm.Client, maxTokens int) PromptEnhancer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &promptEnhancer{client: client, maxTokens: maxTokens}
}

// NewDisabledEnhancer returns a pass-through enhancer.
func NewDisabledEnhancer() PromptEnhancer {
	return disabledEnhancer{}
}

type disabledEnhancer struct{}

func (disabledEnhancer) Enhance(_ context.Context, prompt string) (EnhancedPrompt, error) {
	return EnhancedPrompt{Prompt: prompt}, nil
}

func (e *promptEnhancer) Enhance(ctx context.Context, prompt string) (EnhancedPrompt, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return EnhancedPrompt{}, nil
	}

	var result enhancedPrompt
	_, err := e.client.Chat(ctx, llm.Request{
		SystemPrompt: enhancerSystemPrompt,
		UserPrompt:   prompt,
		SchemaName:   "enhanced_prompt",
		Schema:       llm.GenerateSchema[enhancedPrompt](),
		MaxTokens:    e.maxTokens,
		Temperature:  llm.Temp(0.7),
	}, &result)
	if err != nil {
		// Enhancement is best effort. Fall back to the raw prompt rather
		// than blocking generation on the LLM.
		slog.WarnContext(ctx, "prompt enhancement failed, using raw prompt", "error", err)
		return EnhancedPrompt{Prompt: prompt}, nil
	}

	if strings.TrimSpace(result.Prompt) == "" {
		return EnhancedPrompt{Prompt: prompt}, nil
	}
	return EnhancedPrompt{
		Prompt:         result.Prompt,
		NegativePrompt: strings.TrimSpace(result.NegativePrompt),
	}, nil
}
