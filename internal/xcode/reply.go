package xcode

import (
	"strconv"
	"strings"
)

// ScriptFailure is one failure record reported directly by the IDE's
// test-failures collection.
type ScriptFailure struct {
	Message string
	File    string
	Line    int
}

// TestReply is the parsed form of the scripted test run's reply.
type TestReply struct {
	Outcome      Outcome
	FailureCount int
	Failures     []ScriptFailure
	// ParseFromLog is set when the failures collection was empty or
	// unreadable despite a failing status; details live in Log.
	ParseFromLog bool
	Log          string
}

// ParseTestReply parses the Status/Completed/FailureCount/Failures sections
// and the trailing log body. Parsing is tolerant: missing or malformed
// sections degrade to zero values rather than errors, since partial
// information outranks no information here.
func ParseTestReply(reply string) TestReply {
	var tr TestReply

	body := reply
	if idx := strings.Index(reply, TestReplyLogSeparator); idx >= 0 {
		body = reply[:idx]
		tr.Log = strings.TrimLeft(reply[idx+len(TestReplyLogSeparator):], "\n")
	}

	var cur *ScriptFailure
	inFailures := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Status: "):
			raw := strings.TrimPrefix(trimmed, "Status: ")
			tr.Outcome.Status = ParseStatus(raw)
			tr.Outcome.Raw = raw
		case strings.HasPrefix(trimmed, "Completed: "):
			tr.Outcome.Completed = strings.EqualFold(strings.TrimPrefix(trimmed, "Completed: "), "true")
		case strings.HasPrefix(trimmed, "FailureCount: "):
			if n, err := strconv.Atoi(strings.TrimPrefix(trimmed, "FailureCount: ")); err == nil {
				tr.FailureCount = n
			}
		case trimmed == "Failures:":
			inFailures = true
		case inFailures && trimmed == ParseFromLogMarker:
			tr.ParseFromLog = true
		case inFailures && strings.HasPrefix(trimmed, "FAILURE: "):
			tr.Failures = append(tr.Failures, ScriptFailure{Message: strings.TrimPrefix(trimmed, "FAILURE: ")})
			cur = &tr.Failures[len(tr.Failures)-1]
		case inFailures && strings.HasPrefix(trimmed, "FILE: ") && cur != nil:
			cur.File = strings.TrimPrefix(trimmed, "FILE: ")
		case inFailures && strings.HasPrefix(trimmed, "LINE: ") && cur != nil:
			if n, err := strconv.Atoi(strings.TrimPrefix(trimmed, "LINE: ")); err == nil {
				cur.Line = n
			}
		case inFailures && trimmed == "---":
			cur = nil
		}
	}

	return tr
}
