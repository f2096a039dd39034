package ai

import (
	"context"
	"strings"
)

// MockModel is the model name used when no API key is configured.
const MockModel = "mock"

// MockClient returns canned fixes without calling any provider. Used when no
// API key is configured, so the rest of the pipeline can be exercised at
// zero cost.
type MockClient struct{}

// NewMockClient creates a MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Model returns the mock model name, which is priced at zero.
func (c *MockClient) Model() string {
	return MockModel
}

// Complete echoes back the code block from the prompt with a marker comment,
// reporting zero token usage.
func (c *MockClient) Complete(_ context.Context, prompt string) (*Completion, error) {
	code, ok := ExtractCode(prompt)
	if !ok {
		code = prompt
	}
	var b strings.Builder
	b.WriteString("```\n")
	b.WriteString("// sonarfix mock remediation\n")
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return &Completion{Text: b.String()}, nil
}
