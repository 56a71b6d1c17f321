package xcode

import (
	"fmt"
	"strings"
)

// Status is the IDE's reported state for a scheme action.
type Status int

const (
	StatusUnknown Status = iota
	StatusSucceeded
	StatusFailed
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// ParseStatus maps the IDE's free-text status to the enum. Unrecognized
// text maps to StatusUnknown; the raw text is preserved on the Outcome.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded":
		return StatusSucceeded
	case "failed", "errored":
		return StatusFailed
	case "running", "not yet started":
		return StatusRunning
	default:
		return StatusUnknown
	}
}

// Outcome is the typed result of invoking a scheme action. It is constructed
// exactly once, at the scripting boundary, and replaces the delimited
// "true|status" string tags the scripts return.
type Outcome struct {
	Completed bool
	Status    Status
	Raw       string
}

// ParseOutcome parses the "<completed>|<status>" reply emitted by the run
// and test scripts.
func ParseOutcome(reply string) (Outcome, error) {
	parts := strings.SplitN(reply, "|", 2)
	if len(parts) != 2 {
		return Outcome{}, fmt.Errorf("unexpected action reply format: %q", reply)
	}
	raw := strings.TrimSpace(parts[1])
	return Outcome{
		Completed: strings.EqualFold(strings.TrimSpace(parts[0]), "true"),
		Status:    ParseStatus(raw),
		Raw:       raw,
	}, nil
}
