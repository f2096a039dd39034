// Package ai provides the language-model invocation layer: submitting repair
// prompts, reporting token counts, and pricing completed calls.
package ai

import (
	"context"
	"errors"
)

// ErrModelInvocation indicates the model provider failed to produce a
// completion (network error, timeout, provider error). Per-finding,
// recovered by the orchestrator.
var ErrModelInvocation = errors.New("model invocation failed")

// Completion is one model response with the provider-reported token counts.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client submits a prompt and returns the completion. Implementations make
// exactly one provider call per Complete invocation; retry policy lives in
// the caller.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	Model() string
}

// systemPrompt frames every repair request.
const systemPrompt = "You are an expert software engineer specializing in code quality improvements. Fix code smells while maintaining functionality."
