package sonar

import (
	"strconv"
	"strings"
)

// Finding is one static-analysis issue reported by SonarQube.
// Findings are immutable once fetched; a run owns the findings it fetched
// and discards them when it ends.
type Finding struct {
	Key           string `json:"key"`
	Rule          string `json:"rule"`
	Severity      string `json:"severity"`
	Message       string `json:"message"`
	Component     string `json:"component"`
	FilePath      string `json:"file_path"`
	Line          int    `json:"line"`
	EffortMinutes int    `json:"effort_minutes"`
}

// rawIssue mirrors one entry of the /api/issues/search response.
type rawIssue struct {
	Key       string `json:"key"`
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Line      int    `json:"line"`
	Debt      string `json:"debt"`
}

// findingFromIssue converts a raw API issue into a Finding.
func findingFromIssue(issue rawIssue) Finding {
	f := Finding{
		Key:           issue.Key,
		Rule:          issue.Rule,
		Severity:      issue.Severity,
		Message:       issue.Message,
		Component:     issue.Component,
		FilePath:      filePathFromComponent(issue.Component),
		Line:          issue.Line,
		EffortMinutes: ParseEffort(issue.Debt),
	}
	if f.Severity == "" {
		f.Severity = "MINOR"
	}
	if f.Line == 0 {
		f.Line = 1
	}
	return f
}

// filePathFromComponent strips the project prefix from a component key.
// Components look like "my-project:src/main/App.java".
func filePathFromComponent(component string) string {
	if idx := strings.Index(component, ":"); idx >= 0 {
		return component[idx+1:]
	}
	return component
}

// ParseEffort converts a SonarQube effort string ("5min", "1h", "1h30min")
// into minutes. Unparseable values fall back to 5 minutes, matching the
// server's smallest common remediation estimate.
func ParseEffort(debt string) int {
	if debt == "" {
		return 0
	}

	minutes := 0
	rest := debt
	if idx := strings.Index(rest, "h"); idx >= 0 {
		h, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return 5
		}
		minutes += h * 60
		rest = rest[idx+1:]
	}
	if rest != "" {
		if !strings.HasSuffix(rest, "min") {
			return 5
		}
		m, err := strconv.Atoi(strings.TrimSuffix(rest, "min"))
		if err != nil {
			return 5
		}
		minutes += m
	}
	return minutes
}
