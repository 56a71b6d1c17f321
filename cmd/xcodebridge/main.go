package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xcodebridge/internal/artifact"
	"xcodebridge/internal/bridge"
	"xcodebridge/internal/config"
	"xcodebridge/internal/mcpserver"
	"xcodebridge/internal/notify"
	"xcodebridge/internal/screenshot"
	"xcodebridge/internal/simctl"
	"xcodebridge/internal/spotlight"
	"xcodebridge/internal/tools"
	"xcodebridge/internal/tools/xcodetools"
	"xcodebridge/internal/version"
	"xcodebridge/internal/xcode"
)

var (
	// Global flags
	verbose           bool
	configFile        string
	allowedFolders    []string
	showNotifications bool
	hideNotifications bool
	noWarnings        bool
	alwaysWarnings    bool

	// Logger
	logger *zap.Logger
)

const serverInstructions = `Automates Xcode: build, run, and test projects, then read the ` +
	`results. Start with get_xcode_projects to find projects, get_project_schemes to see ` +
	`build schemes, then build_project / run_project / run_project_tests. All project paths ` +
	`must fall inside the folders this server was granted access to.`

// rootCmd starts the stdio server; the protocol runs on stdout, so all
// logging goes to stderr.
var rootCmd = &cobra.Command{
	Use:     "xcodebridge",
	Short:   "Xcode automation bridge over stdio",
	Version: version.Version,
	Long: `xcodebridge exposes Xcode automation as JSON-RPC tools over stdio:
building, running, and testing projects, extracting build errors and console
output from result bundles, and inspecting projects and simulators.

Access is restricted to an allowlist of folders, configured via the
` + config.EnvAllowedFolders + ` environment variable, the --allowed flag, or a
YAML config file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Build(config.Options{
		ConfigFile:        configFile,
		AllowedFolders:    allowedFolders,
		ShowNotifications: showNotifications,
		HideNotifications: hideNotifications,
		NoWarnings:        noWarnings,
		AlwaysWarnings:    alwaysWarnings,
		Verbose:           verbose,
	}, logger)
	if err != nil {
		return err
	}

	runner := xcode.NewOSAScriptRunner(logger)
	notifier := notify.New(runner, cfg.NotificationsEnabled, logger)
	locator := artifact.NewLocator(cfg.DerivedDataDir, logger)
	extractor := artifact.NewExtractor(logger)
	br := bridge.New(cfg, runner, locator, extractor, notifier, logger)

	registry := tools.NewRegistry(logger)
	xcodetools.RegisterAll(registry, xcodetools.Deps{
		Bridge:   br,
		Searcher: spotlight.NewSearcher(cfg, logger),
		Simctl:   simctl.NewClient(cfg, logger),
		Capturer: screenshot.NewCapturer(cfg, runner, logger),
		Notifier: notifier,
	})

	logger.Info("Server starting",
		zap.String("version", version.Version),
		zap.Int("tools", registry.Count()),
		zap.Strings("allowed_folders", cfg.AllowedFolders))

	srv := mcpserver.New(registry, mcpserver.Info{
		Name:         "xcodebridge",
		Version:      version.Version,
		Instructions: serverInstructions,
	}, os.Stdin, os.Stdout, logger)
	return srv.Serve(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&configFile, "config", "", "path to YAML config file")
	pf.StringArrayVar(&allowedFolders, "allowed", nil, "allowed folder (repeatable)")
	pf.BoolVar(&showNotifications, "show-notifications", false, "show macOS notifications for tool activity")
	pf.BoolVar(&hideNotifications, "hide-notifications", false, "never show macOS notifications")
	pf.BoolVar(&noWarnings, "no-build-warnings", false, "never include warnings in build reports")
	pf.BoolVar(&alwaysWarnings, "always-include-build-warnings", false, "always include warnings in build reports")
}
