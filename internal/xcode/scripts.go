package xcode

import (
	"fmt"
	"strings"
)

// Script templates for driving Xcode. The completion poll is embedded in the
// action scripts so that completion detection happens inside a single IDE
// round-trip; the caller's wait budget bounds the loop.

// loadPreamble opens the project and waits up to ~30 seconds for the
// workspace document to load.
func loadPreamble(escapedPath string) string {
	return fmt.Sprintf(`    open "%[1]s"

    set workspaceDoc to first workspace document whose path is "%[1]s"

    -- Wait for it to load
    repeat 60 times
        if loaded of workspaceDoc is true then exit repeat
        delay 0.5
    end repeat

    if loaded of workspaceDoc is false then
        error "Xcode workspace did not load in time."
    end if
`, escapedPath)
}

func setSchemeLine(scheme string) string {
	if scheme == "" {
		return ""
	}
	return fmt.Sprintf(`
    set active scheme of workspaceDoc to (first scheme of workspaceDoc whose name is "%s")
`, EscapeString(scheme))
}

// BuildScript builds the workspace and waits for completion. On success it
// returns the marker "Build succeeded."; on failure it returns the raw build
// log for classification.
func BuildScript(projectPath, scheme string) string {
	return fmt.Sprintf(`tell application "Xcode"
%s%s
    set actionResult to build workspaceDoc

    repeat
        if completed of actionResult is true then exit repeat
        delay 0.5
    end repeat

    set buildStatus to status of actionResult
    if buildStatus is succeeded then
        return "Build succeeded."
    else
        return build log of actionResult
    end if
end tell`, loadPreamble(EscapeString(projectPath)), setSchemeLine(scheme))
}

// BuildSucceededMarker is the reply the build script emits on success.
const BuildSucceededMarker = "Build succeeded."

// RunScript launches the workspace and polls for completion up to
// waitSeconds. The reply is "<completed>|<status>" for ParseOutcome.
func RunScript(projectPath, scheme string, waitSeconds int) string {
	return fmt.Sprintf(`tell application "Xcode"
%s%s
    set actionResult to run workspaceDoc

    repeat %d times
        if completed of actionResult is true then
            exit repeat
        end if
        delay 1
    end repeat

    if completed of actionResult is true then
        return "true|" & (status of actionResult as text)
    else
        return "false|" & (status of actionResult as text)
    end if
end tell`, loadPreamble(EscapeString(projectPath)), setSchemeLine(scheme), waitSeconds)
}

// TestReplyLogSeparator splits the scripted test reply from the build log.
const TestReplyLogSeparator = "---LOG---"

// ParseFromLogMarker signals that the failures collection was empty even
// though the status indicates failure; details must be mined from the log.
const ParseFromLogMarker = "PARSE_FROM_LOG"

// TestStartedReply is returned when tests are launched without waiting.
const TestStartedReply = "Tests started successfully"

// TestScript runs tests, optionally restricted to specific identifiers via
// -only-testing arguments. With maxWaitSeconds == 0 the script starts the
// tests and returns immediately.
func TestScript(projectPath, scheme string, testArgs []string, maxWaitSeconds int) string {
	testCommand := "test workspaceDoc"
	if len(testArgs) > 0 {
		quoted := make([]string, len(testArgs))
		for i, arg := range testArgs {
			quoted[i] = `"` + EscapeString(arg) + `"`
		}
		testCommand = fmt.Sprintf("test workspaceDoc with command line arguments {%s}", strings.Join(quoted, ", "))
	}

	waitSection := `return "` + TestStartedReply + `"`
	if maxWaitSeconds > 0 {
		waitSection = fmt.Sprintf(`set waitTime to 0
    repeat while waitTime < %d
        if completed of testResult is true then
            exit repeat
        end if
        delay 1
        set waitTime to waitTime + 1
    end repeat

    set testStatus to status of testResult as string
    set testCompleted to completed of testResult

    set failureMessages to ""
    set failureCount to 0
    try
        set failures to test failures of testResult
        set failureCount to count of failures
        if failureCount > 0 then
            repeat with failure in failures
                set failureMsg to ""
                set failurePath to ""
                set failureLine to ""

                try
                    set failureMsg to message of failure
                on error
                    set failureMsg to "Unknown test failure"
                end try

                try
                    set failurePath to file path of failure
                end try

                try
                    set failureLine to starting line number of failure as string
                end try

                set failureMessages to failureMessages & "FAILURE: " & failureMsg & "\n"
                if failurePath is not "" and failurePath is not missing value then
                    set failureMessages to failureMessages & "FILE: " & failurePath & "\n"
                end if
                if failureLine is not "" and failureLine is not "missing value" then
                    set failureMessages to failureMessages & "LINE: " & failureLine & "\n"
                end if
                set failureMessages to failureMessages & "---\n"
            end repeat
        else
            if testStatus is "failed" or testStatus contains "fail" then
                set failureMessages to "%s" & "\n"
            end if
        end if
    on error errMsg
        if testStatus is "failed" or testStatus contains "fail" then
            set failureMessages to "%s" & "\n"
        end if
    end try

    set buildLog to ""
    try
        set buildLog to build log of testResult
    end try

    return "Status: " & testStatus & "\n" & ¬
           "Completed: " & testCompleted & "\n" & ¬
           "FailureCount: " & (failureCount as string) & "\n" & ¬
           "Failures:\n" & failureMessages & "\n" & ¬
           "%s\n" & buildLog`, maxWaitSeconds, ParseFromLogMarker, ParseFromLogMarker, TestReplyLogSeparator)
	}

	return fmt.Sprintf(`tell application "Xcode"
    delay 0.5

%s%s
    set testResult to %s

    %s
end tell`, loadPreamble(EscapeString(projectPath)), setSchemeLine(scheme), testCommand, waitSection)
}

// CleanScript cleans the workspace.
func CleanScript(projectPath string) string {
	return fmt.Sprintf(`tell application "Xcode"
%s
    clean workspaceDoc

    return "Clean completed successfully"
end tell`, loadPreamble(EscapeString(projectPath)))
}

// StopScript stops the current build or run. It only targets an already-open
// workspace so that stop never launches the application as a side effect.
func StopScript(projectPath string) string {
	escaped := EscapeString(projectPath)
	return fmt.Sprintf(`tell application "Xcode"
    try
        set workspaceDoc to first workspace document whose path is "%[1]s"
    on error
        return "ERROR: No open workspace found for path: %[1]s"
    end try

    try
        stop workspaceDoc
        return "Successfully stopped the current build/run operation"
    on error errMsg
        return "ERROR: " & errMsg
    end try
end tell`, escaped)
}

// SchemesScript lists scheme names with the active scheme first, annotated
// "(active)". If the active scheme cannot be read (Xcode busy) the plain
// list is returned.
func SchemesScript(projectPath string) string {
	return fmt.Sprintf(`tell application "Xcode"
%s
    set activeScheme to ""
    try
        set activeScheme to name of active scheme of workspaceDoc
    on error
    end try

    set schemeNames to {}
    repeat with aScheme in schemes of workspaceDoc
        set end of schemeNames to name of aScheme
    end repeat

    set output to ""
    if activeScheme is not "" then
        set output to activeScheme & " (active)"
        repeat with schemeName in schemeNames
            if schemeName as string is not equal to activeScheme then
                set output to output & "\n" & schemeName
            end if
        end repeat
    else
        set AppleScript's text item delimiters to "\n"
        set output to schemeNames as string
        set AppleScript's text item delimiters to ""
    end if

    return output
end tell`, loadPreamble(EscapeString(projectPath)))
}

// LastBuildLogScript fetches the log of the most recent build action, or an
// empty string when no build has been performed yet.
func LastBuildLogScript(projectPath string) string {
	return fmt.Sprintf(`tell application "Xcode"
%s
    try
        set lastBuildResult to last build action result of workspaceDoc

        return build log of lastBuildResult
    on error
        return ""
    end try
end tell`, loadPreamble(EscapeString(projectPath)))
}

// LastTestResultScript asks an already-open workspace for its last scheme
// action result, reporting status and failure messages when it was a test.
func LastTestResultScript(projectPath string) string {
	escaped := EscapeString(projectPath)
	return fmt.Sprintf(`tell application "Xcode"
    try
        set workspaceDoc to first workspace document whose path is "%s"

        set lastResult to last scheme action result of workspaceDoc

        set resultStatus to status of lastResult as string
        set resultCompleted to completed of lastResult

        set isTestResult to false
        set failureMessages to ""
        try
            set failures to test failures of lastResult
            set isTestResult to true
            repeat with failure in failures
                set failureMessages to failureMessages & (message of failure) & "\n"
            end repeat
        end try

        if isTestResult then
            return "Last test status: " & resultStatus & "\n" & ¬
                   "Completed: " & resultCompleted & "\n" & ¬
                   "Test failures:\n" & failureMessages
        else
            return "No test results available (last action was not a test)"
        end if
    on error
        return "No test results available"
    end try
end tell`, escaped)
}
