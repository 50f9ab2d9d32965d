package perf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// ErrBinaryNotFound indicates an explicitly configured perf binary does
	// not exist.
	ErrBinaryNotFound = errors.New("perf binary does not exist")
	// ErrNotDirectory indicates the output directory path is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// DefaultBinary is the perf executable used when none is configured. It is
// looked up on $PATH.
const DefaultBinary = "perf"

// Flags holds CLI flag names for profiler configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Perf    string
	Dir     string
	Freq    string
	Options string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds profiler configuration for a session: which perf to run,
// where captures go, and how samples are taken. A zero-value Config records
// with perf from $PATH into the working directory.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewRecorder] to resolve the values
// and create a [Recorder].
type Config struct {
	Flags Flags

	// Binary is the perf executable. Empty selects [DefaultBinary].
	Binary string
	// Dir is the output directory. Empty means the working directory.
	Dir string
	// Freq is passed to perf record --freq.
	Freq string

	// Options are extra perf record arguments, appended after the target.
	Options []string
}

// NewConfig creates a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		Perf:    "perf",
		Dir:     "perf-dir",
		Freq:    "freq",
		Options: "perf-options",
	}

	return f.NewConfig()
}

// RegisterFlags adds profiler flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Binary, c.Flags.Perf, "",
		"path to perf binary (default perf from $PATH)")
	flags.StringVar(&c.Dir, c.Flags.Dir, "",
		"directory the reports are saved to (default working directory)")
	flags.StringVar(&c.Freq, c.Flags.Freq, "max",
		"profile at this frequency")
	flags.StringSliceVar(&c.Options, c.Flags.Options, nil,
		"additional perf record options as comma separated list")
}

// RegisterCompletions registers shell completions for profiler flags on cmd.
// The binary flag keeps default file completion; the directory flag only
// completes directories.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Dir,
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		})
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Dir, err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Freq,
		cobra.FixedCompletions([]string{"max"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Freq, err)
	}

	err = cmd.RegisterFlagCompletionFunc(c.Flags.Options,
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveNoFileComp
		})
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Options, err)
	}

	return nil
}

// NewRecorder resolves c and creates a [Recorder]. An explicit binary must
// exist. An explicit output directory is made absolute and created with its
// parents if missing.
func (c *Config) NewRecorder() (*Recorder, error) {
	binary := DefaultBinary

	if c.Binary != "" {
		abs, err := filepath.Abs(c.Binary)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", c.Binary, err)
		}

		_, err = os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, abs, err)
		}

		binary = abs
	}

	var dir string

	if c.Dir != "" {
		var err error

		dir, err = ResolveDir(c.Dir)
		if err != nil {
			return nil, err
		}
	}

	freq := c.Freq
	if freq == "" {
		freq = "max"
	}

	return &Recorder{
		binary:  binary,
		dir:     dir,
		freq:    freq,
		options: c.Options,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}, nil
}

// ResolveDir makes dir absolute and creates it with its parents if missing.
// It fails with [ErrNotDirectory] if something other than a directory is
// already there.
func ResolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	}

	mkdirErr := os.MkdirAll(abs, 0o755)

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", abs, errors.Join(mkdirErr, err))
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	return abs, nil
}
