package bridge

import (
	"context"

	"xcodebridge/internal/spotlight"
)

// Hierarchy renders the file tree of the project's directory.
func (b *Bridge) Hierarchy(ctx context.Context, projectPath string) (string, error) {
	ref, _, err := b.validate(projectPath, "Getting hierarchy for")
	if err != nil {
		return "", err
	}
	return spotlight.Hierarchy(ref.Path)
}
