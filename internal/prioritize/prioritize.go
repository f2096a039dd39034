// Package prioritize orders findings for processing.
package prioritize

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jfenske/sonarfix/internal/sonar"
)

// ErrInvalidArgument indicates a caller contract violation. It is fatal and
// surfaced immediately rather than producing a quietly-empty result.
var ErrInvalidArgument = errors.New("invalid argument")

// Order returns findings sorted by descending remediation effort, truncated
// to limit. The sort is stable: equal-effort findings keep their fetch order,
// which keeps runs reproducible.
func Order(findings []sonar.Finding, limit int) ([]sonar.Finding, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d must be positive: %w", limit, ErrInvalidArgument)
	}

	ordered := make([]sonar.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EffortMinutes > ordered[j].EffortMinutes
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}
