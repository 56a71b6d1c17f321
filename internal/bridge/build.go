package bridge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"xcodebridge/internal/logparse"
	"xcodebridge/internal/xcode"
)

// buildSuccessReply is the terminal response for a clean build. The hint
// lines steer the caller toward the natural next operations.
const buildSuccessReply = "Build succeeded with 0 errors.\n\n" +
	"Use `run_project` to launch the app, or `run_project_tests` to run tests."

// Build builds the project and reports a classified error/warning summary.
// includeWarnings is the per-call override; nil defers to configuration.
func (b *Bridge) Build(ctx context.Context, projectPath, scheme string, includeWarnings *bool) (string, error) {
	ref, opID, err := b.validate(projectPath, "Building")
	if err != nil {
		return "", err
	}

	b.logger.Info("Build started",
		zap.String("op_id", opID),
		zap.String("project", ref.Base()),
		zap.String("scheme", scheme))

	ok, output := b.runner.Run(ctx, xcode.BuildScript(ref.Path, scheme))
	if !ok {
		b.notifier.NotifyError(opID, fmt.Sprintf("Build failed to start for %s", ref.Base()), output)
		return "", fmt.Errorf("build failed to start for project %s: %s", projectPath, output)
	}

	if output == xcode.BuildSucceededMarker {
		b.notifier.NotifyResult(opID, fmt.Sprintf("Build succeeded for %s", ref.Base()))
		return buildSuccessReply, nil
	}

	c := logparse.Classify(output, b.cfg.IncludeWarnings(includeWarnings))
	b.logger.Info("Build finished with diagnostics",
		zap.String("op_id", opID),
		zap.Int("errors", c.TotalErrors),
		zap.Int("warnings", c.TotalWarnings))

	if c.TotalErrors > 0 {
		b.notifier.NotifyError(opID, fmt.Sprintf("Build failed for %s", ref.Base()),
			fmt.Sprintf("%d error(s)", c.TotalErrors))
	} else {
		b.notifier.NotifyResult(opID, fmt.Sprintf("Build completed for %s", ref.Base()))
	}
	return c.FormatReport(), nil
}

// BuildErrors reports the classified diagnostics of the most recent build
// without triggering a new one.
func (b *Bridge) BuildErrors(ctx context.Context, projectPath string, includeWarnings *bool) (string, error) {
	ref, opID, err := b.validate(projectPath, "Getting build errors for")
	if err != nil {
		return "", err
	}

	ok, output := b.runner.Run(ctx, xcode.LastBuildLogScript(ref.Path))
	if !ok {
		return "", fmt.Errorf("failed to retrieve build errors: %s", output)
	}
	if output == "" {
		return "No build has been performed yet for this project.", nil
	}

	c := logparse.Classify(output, b.cfg.IncludeWarnings(includeWarnings))
	b.logger.Debug("Retrieved last build log",
		zap.String("op_id", opID),
		zap.Int("errors", c.TotalErrors),
		zap.Int("warnings", c.TotalWarnings))
	if c.TotalErrors == 0 && c.TotalWarnings == 0 {
		return "Last build completed with no errors or warnings.", nil
	}
	return c.FormatReport(), nil
}
