package chrome

import (
	"errors"
	"fmt"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// ErrMissingURL indicates no URL was given.
	ErrMissingURL = errors.New("missing URL")
	// ErrInvalidURL indicates the URL argument could not be tokenized.
	ErrInvalidURL = errors.New("invalid URL argument")
)

// DefaultOSRelease is the file read to pick the default browser binary.
const DefaultOSRelease = "/etc/os-release"

// Flags holds CLI flag names for browser configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Chrome  string
	Options string
	JSFlags string
	URL     string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags:     f,
		OSRelease: DefaultOSRelease,
	}
}

// Config holds browser configuration values.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewLauncher] to validate the values
// and create a [Launcher].
type Config struct {
	Flags Flags

	// Binary is the browser executable. Empty selects a distribution default.
	Binary string
	// URL is shell-tokenized and appended after all flags.
	URL string
	// OSRelease is read to pick the default binary.
	OSRelease string

	// Options are extra browser flags, appended verbatim.
	Options []string
	// JSFlags are extra V8 flags, merged with [BaseJSFlags].
	JSFlags []string
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		Chrome:  "chrome",
		Options: "chrome-options",
		JSFlags: "js-flags",
		URL:     "url",
	}

	return f.NewConfig()
}

// RegisterFlags adds browser flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.URL, c.Flags.URL, "",
		"URL to visit when chrome started (required)")
	flags.StringVar(&c.Binary, c.Flags.Chrome, "",
		"path to chrome binary (default chromium or chromium-browser, by distribution)")
	flags.StringSliceVar(&c.Options, c.Flags.Options, nil,
		"additional chrome options as comma separated list")
	flags.StringSliceVar(&c.JSFlags, c.Flags.JSFlags, nil,
		"additional js flags as comma separated list")
}

// RegisterCompletions registers shell completions for browser flags on cmd.
// The binary flag keeps default file completion.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{c.Flags.URL, c.Flags.Options} {
		err := cmd.RegisterFlagCompletionFunc(flag, noFileComp)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	err := cmd.RegisterFlagCompletionFunc(c.Flags.JSFlags,
		cobra.FixedCompletions(BaseJSFlags(), cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.JSFlags, err)
	}

	return nil
}

// NewLauncher validates c and creates a [Launcher]. The URL is required; an
// explicit binary must exist.
func (c *Config) NewLauncher() (*Launcher, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("%w: set --%s", ErrMissingURL, c.Flags.URL)
	}

	url, err := shlex.Split(c.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, c.URL, err)
	}

	binary := c.Binary
	if binary == "" {
		binary = DefaultBinary(c.OSRelease)
	} else {
		binary, err = ResolveBinary(binary)
		if err != nil {
			return nil, err
		}
	}

	return &Launcher{
		binary:  binary,
		options: c.Options,
		jsFlags: JSFlags(c.JSFlags),
		url:     url,
	}, nil
}
