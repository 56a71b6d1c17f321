// Package version holds the module version, overridable at link time.
package version

// Version is the release version reported by the version tool and the
// --version flag.
var Version = "1.2.1"
