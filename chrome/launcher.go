package chrome

import (
	"io"
	"os/exec"
	"slices"
	"strings"

	"go.jacobcolvin.com/chromeperf/childproc"
)

// BaseFlags returns the browser flags every profiling session uses.
func BaseFlags() []string {
	return []string{
		"--no-sandbox",
		"--incognito",
		"--enable-benchmarking",
		"--no-first-run",
		"--no-default-browser-check",
		"--ignore-certificate-errors",
	}
}

// BaseJSFlags returns the V8 flags needed for perf to resolve JavaScript
// frames: emit perf map/jitdump data, keep JIT code readable, and give
// interpreted frames a native stack frame.
func BaseJSFlags() []string {
	return []string{
		"--perf-prof",
		"--no-write-protect-code-memory",
		"--interpreted-frames-native-stack",
	}
}

// JSFlags returns the comma-joined union of [BaseJSFlags] and extra. Each
// flag appears once; blank entries are dropped.
func JSFlags(extra []string) string {
	flags := BaseJSFlags()

	for _, f := range extra {
		f = strings.TrimSpace(f)
		if f == "" || slices.Contains(flags, f) {
			continue
		}

		flags = append(flags, f)
	}

	return strings.Join(flags, ",")
}

// Launcher starts the browser.
//
// Create instances with [Config.NewLauncher].
type Launcher struct {
	binary  string
	jsFlags string
	options []string
	url     []string
}

// Binary returns the resolved browser executable.
func (l *Launcher) Binary() string {
	return l.binary
}

// Args returns the full browser command line, binary first.
func (l *Launcher) Args() []string {
	args := []string{l.binary}
	args = append(args, BaseFlags()...)

	for _, opt := range l.options {
		if opt != "" {
			args = append(args, opt)
		}
	}

	args = append(args, "--js-flags="+l.jsFlags)
	args = append(args, l.url...)

	return args
}

// Start launches the browser in its own process group. Its stdout goes to
// stdout; its stderr is discarded.
func (l *Launcher) Start(stdout io.Writer) (*childproc.Process, error) {
	args := l.Args()

	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // Browser command comes from CLI flags.
	cmd.Stdout = stdout

	return childproc.Start(cmd)
}
