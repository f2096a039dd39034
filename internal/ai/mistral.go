package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultMistralURL is the public Mistral API endpoint.
const DefaultMistralURL = "https://api.mistral.ai/v1"

// MistralClient talks to a Mistral-compatible chat-completions API.
type MistralClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewMistralClient creates a client for the given model. baseURL may be empty
// to use the public endpoint; a custom URL supports self-hosted gateways.
func NewMistralClient(apiKey, model, baseURL string) *MistralClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultMistralURL
	}
	return &MistralClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Model returns the configured model name.
func (c *MistralClient) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the prompt and returns the model's completion with the
// provider-reported token counts.
func (c *MistralClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %v: %w", err, ErrModelInvocation)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completion: status %d: %w", resp.StatusCode, ErrModelInvocation)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode chat response: %v: %w", err, ErrModelInvocation)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices: %w", ErrModelInvocation)
	}

	return &Completion{
		Text:             cr.Choices[0].Message.Content,
		PromptTokens:     cr.Usage.PromptTokens,
		CompletionTokens: cr.Usage.CompletionTokens,
	}, nil
}
