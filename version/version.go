// Package version exposes build metadata for the chromeperf binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version is the application version, set via ldflags.
	Version string
	// Branch is the git branch, set via ldflags.
	Branch string
	// BuildUser is the user who built the binary, set via ldflags.
	BuildUser string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string

	// Revision is the git commit revision.
	Revision = getRevision()
	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
	// GoOS is the operating system target.
	GoOS = runtime.GOOS
	// GoArch is the architecture target.
	GoArch = runtime.GOARCH
)

// Info returns a multi-line summary of the build, as printed by
// "chromeperf version". Values not set at build time read "unknown".
func Info() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "chromeperf %s (branch: %s, revision: %s)\n",
		orUnknown(Version), orUnknown(Branch), Revision)
	fmt.Fprintf(&sb, "  build user: %s\n", orUnknown(BuildUser))
	fmt.Fprintf(&sb, "  build date: %s\n", orUnknown(BuildDate))
	fmt.Fprintf(&sb, "  go version: %s\n", GoVersion)
	fmt.Fprintf(&sb, "  platform:   %s/%s\n", GoOS, GoArch)

	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			if v.Value == "true" {
				modified = true
			}
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
