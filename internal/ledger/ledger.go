// Package ledger tracks token usage and spend for one pipeline run.
//
// A Ledger is owned by a single run; repeated or concurrent runs each get
// their own instance so totals never cross-contaminate.
package ledger

// TokenUsage is one model invocation's accounting record. It is created once
// per invocation and never mutated after being recorded.
type TokenUsage struct {
	FindingKey       string  `json:"finding_key"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// TotalTokens returns prompt plus completion tokens.
func (u TokenUsage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// Totals aggregates every entry recorded so far.
type Totals struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	Entries          int     `json:"entries"`
}

// Ledger is an append-only record of token usage.
type Ledger struct {
	entries []TokenUsage
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{}
}

// Record appends one usage entry. It never rejects input.
func (l *Ledger) Record(u TokenUsage) {
	l.entries = append(l.entries, u)
}

// Totals folds over all recorded entries. It is computed on demand rather
// than cached so it is always consistent with the current entry set.
func (l *Ledger) Totals() Totals {
	var t Totals
	for _, u := range l.entries {
		t.PromptTokens += u.PromptTokens
		t.CompletionTokens += u.CompletionTokens
		t.TotalTokens += u.TotalTokens()
		t.CostUSD += u.CostUSD
		t.Entries++
	}
	return t
}

// Entries returns a copy of the recorded entries in insertion order.
func (l *Ledger) Entries() []TokenUsage {
	out := make([]TokenUsage, len(l.entries))
	copy(out, l.entries)
	return out
}
