// Package xcodetools registers the Xcode automation tools against the
// shared registry, translating wire arguments into bridge calls.
package xcodetools

import (
	"context"
	"fmt"

	"xcodebridge/internal/bridge"
	"xcodebridge/internal/notify"
	"xcodebridge/internal/screenshot"
	"xcodebridge/internal/simctl"
	"xcodebridge/internal/spotlight"
	"xcodebridge/internal/tools"
	"xcodebridge/internal/version"
)

// Deps bundles the collaborators the tools execute against.
type Deps struct {
	Bridge   *bridge.Bridge
	Searcher *spotlight.Searcher
	Simctl   *simctl.Client
	Capturer *screenshot.Capturer
	Notifier *notify.Notifier
}

func projectPathProp() tools.Property {
	return tools.Property{
		Type:        "string",
		Description: "Path to an Xcode project (.xcodeproj) or workspace (.xcworkspace) directory. Must exist and fall inside an allowed folder.",
	}
}

// RegisterAll registers every tool. Panics on duplicate registration, which
// can only be a programming error.
func RegisterAll(reg *tools.Registry, d Deps) {
	reg.MustRegister(&tools.Tool{
		Name:        "version",
		Description: "Get the version of this Xcode automation server.",
		Category:    tools.CategoryDebug,
		Schema:      tools.Schema{Properties: map[string]tools.Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("Xcode Bridge version %s", version.Version), nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "build_project",
		Description: "Build the specified Xcode project or workspace and report errors (and optionally warnings). " +
			"Returns a classified summary; counts always reflect the full log even when the listing is truncated.",
		Category: tools.CategoryBuild,
		Schema: tools.Schema{
			Required: []string{"project_path"},
			Properties: map[string]tools.Property{
				"project_path": projectPathProp(),
				"scheme": {
					Type:        "string",
					Description: "Scheme to build. Uses the active scheme when omitted.",
				},
				"include_warnings": {
					Type:        "boolean",
					Description: "Include warnings in the report for this call. Overrides the server default unless the operator forced a policy.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			warnings, err := boolPtrArg(args, "include_warnings")
			if err != nil {
				return "", err
			}
			return d.Bridge.Build(ctx, stringArg(args, "project_path"), stringArg(args, "scheme"), warnings)
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "run_project",
		Description: "Run the specified Xcode project or workspace and return its console output if it exits within " +
			"wait_seconds. Set wait_seconds to 0 to launch and return immediately, then use get_runtime_output later.",
		Category: tools.CategoryRun,
		Schema: tools.Schema{
			Required: []string{"project_path", "wait_seconds"},
			Properties: map[string]tools.Property{
				"project_path": projectPathProp(),
				"wait_seconds": {
					Type:        "integer",
					Description: "Maximum seconds to wait for the run to complete. 0 launches without waiting.",
				},
				"scheme": {
					Type:        "string",
					Description: "Scheme to run. Uses the active scheme when omitted.",
				},
				"regex_filter": {
					Type:        "string",
					Description: "Optional regex; only matching console lines are returned.",
				},
				"max_lines": {
					Type:        "integer",
					Description: "Maximum console lines to return (default 20).",
					Default:     20,
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			wait, err := intArg(args, "wait_seconds", 0)
			if err != nil {
				return "", err
			}
			maxLines, err := intArg(args, "max_lines", 20)
			if err != nil {
				return "", err
			}
			return d.Bridge.Run(ctx, stringArg(args, "project_path"), wait,
				stringArg(args, "scheme"), stringArg(args, "regex_filter"), maxLines)
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "get_build_errors",
		Description: "Get errors (and optionally warnings) from the most recent build of the project without " +
			"triggering a new build.",
		Category: tools.CategoryBuild,
		Schema: tools.Schema{
			Required: []string{"project_path"},
			Properties: map[string]tools.Property{
				"project_path": projectPathProp(),
				"include_warnings": {
					Type:        "boolean",
					Description: "Include warnings in the report for this call.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			warnings, err := boolPtrArg(args, "include_warnings")
			if err != nil {
				return "", err
			}
			return d.Bridge.BuildErrors(ctx, stringArg(args, "project_path"), warnings)
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "get_runtime_output",
		Description: "Get console output from the most recent run of the project. Output becomes available a " +
			"couple of seconds after the process terminates.",
		Category: tools.CategoryRun,
		Schema: tools.Schema{
			Required: []string{"project_path"},
			Properties: map[string]tools.Property{
				"project_path": projectPathProp(),
				"max_lines": {
					Type:        "integer",
					Description: "Maximum lines to retrieve, counted from the end (default 25).",
					Default:     25,
				},
				"regex_filter": {
					Type:        "string",
					Description: "Optional regex; only matching console lines are returned.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			maxLines, err := intArg(args, "max_lines", 25)
			if err != nil {
				return "", err
			}
			return d.Bridge.RuntimeOutput(ctx, stringArg(args, "project_path"), maxLines, stringArg(args, "regex_filter"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "run_project_tests",
		Description: "Run the project's tests, optionally restricted to specific identifiers " +
			"(\"TestBundle/TestClass/testMethod\" form). Set max_wait_seconds to 0 to start the tests and return " +
			"immediately; use get_latest_test_results to collect the outcome later.",
		Category: tools.CategoryTest,
		Schema: tools.Schema{
			Required: []string{"project_path"},
			Properties: map[string]tools.Property{
				"project_path": projectPathProp(),
				"tests_to_run": {
					Type:        "array",
					Description: "Optional list of test identifiers to run. Runs all tests when omitted.",
					Items:       &tools.PropertyItems{Type: "string"},
				},
				"scheme": {
					Type:        "string",
					Description: "Scheme to test. Uses the active scheme when omitted.",
				},
				"max_wait_seconds": {
					Type:        "integer",
					Description: "Maximum seconds to wait for completion (default 300). 0 starts without waiting.",
					Default:     300,
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			testsToRun, err := testListArg(args, "tests_to_run")
			if err != nil {
				return "", err
			}
			maxWait, err := intArg(args, "max_wait_seconds", 300)
			if err != nil {
				return "", err
			}
			return d.Bridge.Test(ctx, stringArg(args, "project_path"), testsToRun, stringArg(args, "scheme"), maxWait)
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_latest_test_results",
		Description: "Get the results of the most recent test run without running tests again.",
		Category:    tools.CategoryTest,
		Schema: tools.Schema{
			Required:   []string{"project_path"},
			Properties: map[string]tools.Property{"project_path": projectPathProp()},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Bridge.LatestTestResults(ctx, stringArg(args, "project_path"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        "clean_project",
		Description: "Clean the build artifacts of the specified Xcode project or workspace.",
		Category:    tools.CategoryBuild,
		Schema: tools.Schema{
			Required:   []string{"project_path"},
			Properties: map[string]tools.Property{"project_path": projectPathProp()},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Bridge.Clean(ctx, stringArg(args, "project_path"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "stop_project",
		Description: "Stop the currently running build or run operation. Fails rather than opening the project " +
			"if it is not already open in Xcode.",
		Category: tools.CategoryRun,
		Schema: tools.Schema{
			Required:   []string{"project_path"},
			Properties: map[string]tools.Property{"project_path": projectPathProp()},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Bridge.Stop(ctx, stringArg(args, "project_path"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "get_project_schemes",
		Description: "Get the available build schemes of the project, one per line, with the active scheme first " +
			"and annotated \"(active)\".",
		Category: tools.CategoryInspect,
		Schema: tools.Schema{
			Required:   []string{"project_path"},
			Properties: map[string]tools.Property{"project_path": projectPathProp()},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Bridge.Schemes(ctx, stringArg(args, "project_path"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        "get_project_hierarchy",
		Description: "Get the file hierarchy of the project's directory as a tree listing. Build products and hidden files are omitted.",
		Category:    tools.CategoryInspect,
		Schema: tools.Schema{
			Required:   []string{"project_path"},
			Properties: map[string]tools.Property{"project_path": projectPathProp()},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Bridge.Hierarchy(ctx, stringArg(args, "project_path"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "get_xcode_projects",
		Description: "Search for .xcodeproj and .xcworkspace paths via Spotlight. With an empty search_path every " +
			"allowed folder is searched. Only indexed bundles are found.",
		Category: tools.CategoryInspect,
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"search_path": {
					Type:        "string",
					Description: "Path to search. Searches all allowed folders when empty.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			paths, err := d.Searcher.Search(ctx, stringArg(args, "search_path"))
			if err != nil {
				return "", err
			}
			if len(paths) == 0 {
				d.Notifier.NotifyResult("", "No projects found")
				return "", nil
			}
			d.Notifier.NotifyResult("", fmt.Sprintf("Found %d project(s)\n%s", len(paths), spotlight.SampleNames(paths)))
			return spotlight.FormatResults(paths), nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        "list_booted_simulators",
		Description: "List all currently booted iOS/watchOS/tvOS simulators with their names, runtimes, and UDIDs.",
		Category:    tools.CategorySimulator,
		Schema:      tools.Schema{Properties: map[string]tools.Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			devices, err := d.Simctl.ListBooted(ctx)
			if err != nil {
				return "", err
			}
			return simctl.FormatDevices(devices), nil
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        "take_simulator_screenshot",
		Description: "Capture a booted simulator's screen to a PNG file. The output path must fall inside an allowed folder.",
		Category:    tools.CategorySimulator,
		Schema: tools.Schema{
			Required: []string{"output_path"},
			Properties: map[string]tools.Property{
				"output_path": {
					Type:        "string",
					Description: "Destination PNG path inside an allowed folder.",
				},
				"udid": {
					Type:        "string",
					Description: "Simulator UDID. Targets the sole booted device when omitted.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Simctl.Screenshot(ctx, stringArg(args, "udid"), stringArg(args, "output_path"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name: "take_window_screenshot",
		Description: "Capture the frontmost window of a running application to a PNG file. Use an empty app_name " +
			"first to list visible windows.",
		Category: tools.CategorySimulator,
		Schema: tools.Schema{
			Required: []string{"output_path"},
			Properties: map[string]tools.Property{
				"app_name": {
					Type:        "string",
					Description: "Application name as shown in the window list. Lists visible windows when empty.",
				},
				"output_path": {
					Type:        "string",
					Description: "Destination PNG path inside an allowed folder.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			app := stringArg(args, "app_name")
			if app == "" {
				return d.Capturer.ListWindows(ctx)
			}
			return d.Capturer.CaptureWindow(ctx, app, stringArg(args, "output_path"))
		},
	})

	reg.MustRegister(&tools.Tool{
		Name:        "debug_list_notification_history",
		Description: "List every notification this server has shown (or suppressed) this session, for debugging.",
		Category:    tools.CategoryDebug,
		Schema:      tools.Schema{Properties: map[string]tools.Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return d.Notifier.FormatHistory(), nil
		},
	})
}
