package ai

import (
	"errors"
	"fmt"
)

// ErrUnknownModel indicates a model name with no entry in the rate table.
// Cost is never silently defaulted; misreported spend is worse than a
// per-finding failure.
var ErrUnknownModel = errors.New("unknown model")

// Rate is the price per 1K tokens for one model.
type Rate struct {
	InputPer1K  float64
	OutputPer1K float64
}

// rates is the static per-model price table (USD per 1K tokens).
var rates = map[string]Rate{
	"mistral-tiny":     {InputPer1K: 0.00025, OutputPer1K: 0.00025},
	"mistral-small":    {InputPer1K: 0.002, OutputPer1K: 0.006},
	"mistral-medium":   {InputPer1K: 0.0027, OutputPer1K: 0.0081},
	"mistral-large":    {InputPer1K: 0.008, OutputPer1K: 0.024},
	"gemini-1.5-pro":   {InputPer1K: 0.00125, OutputPer1K: 0.005},
	"gemini-1.5-flash": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	"gemini-2.0-flash": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	MockModel:          {},
}

// Cost computes the USD cost of one invocation from the rate table.
func Cost(model string, promptTokens, completionTokens int) (float64, error) {
	rate, ok := rates[model]
	if !ok {
		return 0, fmt.Errorf("model %q has no rate entry: %w", model, ErrUnknownModel)
	}
	input := float64(promptTokens) / 1000 * rate.InputPer1K
	output := float64(completionTokens) / 1000 * rate.OutputPer1K
	return input + output, nil
}

// KnownModel reports whether a model has a rate entry.
func KnownModel(model string) bool {
	_, ok := rates[model]
	return ok
}
