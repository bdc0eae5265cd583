// pkg/browser/types.go
package browser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatch is returned when every selector in a candidate list failed to
// locate a visible element within the step timeout. Callers branch on this
// to decide whether a step degrades or aborts the run.
var ErrNoMatch = errors.New("no candidate selector matched")

// NoMatchError wraps ErrNoMatch with the candidate list that missed, so the
// run log shows exactly which heuristics were tried.
func NoMatchError(what string, candidates []string) error {
	return fmt.Errorf("%s: %w (tried: %s)", what, ErrNoMatch, strings.Join(candidates, ", "))
}
