// Command chromeperf profiles a Chromium renderer with linux perf.
//
// It launches Chromium with V8 flags that make JIT code visible to perf,
// finds the renderer process showing the page, records it with perf record,
// and runs perf inject --jit so that reports resolve JavaScript frames.
//
// # Usage
//
//	chromeperf --url=URL [flags]
//
// Recording stops when the browser is closed or chromeperf is interrupted
// with Ctrl+C. The capture is written to perf.data and, after injection,
// perf.data.jitted in the --perf-dir directory. The perf commands to analyze
// it are printed at the end.
//
// # Config File
//
// Flags can also be read from a YAML file given with --config. Keys are flag
// names; flags on the command line take precedence. Run
// "chromeperf config-schema" for the file's JSON Schema.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/chromeperf/chrome"
	"go.jacobcolvin.com/chromeperf/config"
	"go.jacobcolvin.com/chromeperf/log"
	"go.jacobcolvin.com/chromeperf/perf"
	"go.jacobcolvin.com/chromeperf/prompt"
	"go.jacobcolvin.com/chromeperf/renderer"
	"go.jacobcolvin.com/chromeperf/session"
	"go.jacobcolvin.com/chromeperf/version"
)

func main() {
	os.Exit(run0())
}

func run0() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)

	return exitCode(os.Stderr, err)
}

// exitCode reports err on w and maps it to the process exit status. An
// operator interrupt is a normal way to end a session.
func exitCode(w io.Writer, err error) int {
	if err == nil || errors.Is(err, session.ErrInterrupted) {
		return 0
	}

	fmt.Fprintf(w, "Error: %v\n", err)

	return 1
}

type options struct {
	log    *log.Config
	chrome *chrome.Config
	perf   *perf.Config

	configFile    string
	settle        time.Duration
	locateTimeout time.Duration
	wait          bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{
		log:    log.NewConfig(),
		chrome: chrome.NewConfig(),
		perf:   perf.NewConfig(),
	}

	rootCmd := &cobra.Command{
		Use:   "chromeperf --url=URL [flags]",
		Short: "Profile a Chromium renderer with linux perf",
		Long: `chromeperf launches Chromium, attaches perf record to the renderer showing
the given URL, and injects V8 JIT symbols into the capture so that perf
report resolves JavaScript functions.

Recording stops when Chrome is closed or on Ctrl+C.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := applyConfigFile(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}

			return run(cmd.Context(), opts, stdin, stdout, stderr)
		},
	}

	flags := rootCmd.Flags()
	opts.chrome.RegisterFlags(flags)
	opts.perf.RegisterFlags(flags)
	opts.log.RegisterFlags(flags)

	flags.BoolVar(&opts.wait, "wait", false,
		"wait for confirmation after the renderer is found, before recording")
	flags.StringVar(&opts.configFile, "config", "",
		"YAML file with flag values")
	flags.DurationVar(&opts.settle, "settle", time.Second,
		"delay after chrome starts before looking for the renderer")
	flags.DurationVar(&opts.locateTimeout, "locate-timeout", time.Second,
		"how long to look for the renderer")

	for _, register := range []func(*cobra.Command) error{
		opts.chrome.RegisterCompletions,
		opts.perf.RegisterCompletions,
		opts.log.RegisterCompletions,
		registerCompletions,
	} {
		err := register(rootCmd)
		if err != nil {
			fmt.Fprintf(stderr, "register completions: %v\n", err)
		}
	}

	rootCmd.AddCommand(newVersionCmd(stdout), newConfigSchemaCmd(stdout))
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	return rootCmd
}

func registerCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc("config",
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
		})
	if err != nil {
		return fmt.Errorf("registering config completion: %w", err)
	}

	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{"settle", "locate-timeout"} {
		err := cmd.RegisterFlagCompletionFunc(flag, noFileComp)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	return nil
}

func applyConfigFile(path string, flags *pflag.FlagSet) error {
	if path == "" {
		return nil
	}

	f, err := config.Load(path)
	if err != nil {
		return err
	}

	return f.Apply(flags)
}

// run resolves every setting before starting any process, then runs one
// session.
func run(ctx context.Context, opts *options, stdin io.Reader, stdout, stderr io.Writer) error {
	logger, err := opts.log.NewLogger(stderr)
	if err != nil {
		return err
	}

	launcher, err := opts.chrome.NewLauncher()
	if err != nil {
		return err
	}

	recorder, err := opts.perf.NewRecorder()
	if err != nil {
		return err
	}

	recorder.Stdout = stdout
	recorder.Stderr = stderr

	logger.Debug("resolved configuration",
		slog.String("chrome", launcher.Binary()),
		slog.String("perf", recorder.Binary()),
		slog.String("dir", recorder.Dir()),
	)

	locator := renderer.NewLocator(renderer.NewProcTable(),
		renderer.WithTimeout(opts.locateTimeout),
		renderer.WithLogger(logger),
	)

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithOutput(stdout),
		session.WithSettle(opts.settle),
	}

	if opts.wait {
		sessionOpts = append(sessionOpts, session.WithPrompter(prompt.New(stdin, stdout)))
	}

	err = session.New(launcher, recorder, locator, sessionOpts...).Run(ctx)
	if errors.Is(err, session.ErrInterrupted) {
		logger.Info("session interrupted")
	}

	return err
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(stdout, version.Info())

			return err
		},
	}
}

func newConfigSchemaCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "config-schema",
		Short: "Print the JSON Schema of the --config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			schema, err := config.Schema()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}

			_, err = fmt.Fprintf(stdout, "%s\n", out)

			return err
		},
	}
}
