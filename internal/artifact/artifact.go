// Package artifact locates and extracts Xcode result bundles. Result bundles
// are written asynchronously by the IDE under the per-user derived-data tree
// (<root>/<ProjectName>-<hash>/Logs/{Launch,Test}/*.xcresult); this package
// treats that layout as a discovered contract and never writes to it.
package artifact

import "time"

// Kind selects which log location an operation's bundle lives in.
type Kind int

const (
	// KindLaunch covers build-and-run console bundles (Logs/Launch).
	KindLaunch Kind = iota
	// KindTest covers test-action bundles (Logs/Test).
	KindTest
)

// subdir returns the path segments beneath a derived-data project directory.
func (k Kind) subdir() []string {
	if k == KindTest {
		return []string{"Logs", "Test"}
	}
	return []string{"Logs", "Launch"}
}

func (k Kind) String() string {
	if k == KindTest {
		return "test"
	}
	return "launch"
}

// Artifact is one result bundle on disk. Read-only to this system.
type Artifact struct {
	Path     string
	Created  time.Time
	Modified time.Time
	Kind     Kind
}

// FreshAt reports whether the bundle belongs to an operation started at t.
// Both timestamps must be at or after t: a bundle can be modified
// (finalized) long after creation, and either timestamp alone is an
// insufficient guard against picking up a previous run's output.
func (a *Artifact) FreshAt(t time.Time) bool {
	return !a.Created.Before(t) && !a.Modified.Before(t)
}
