package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alessio/shellescape"

	"go.jacobcolvin.com/chromeperf/childproc"
	"go.jacobcolvin.com/chromeperf/chrome"
	"go.jacobcolvin.com/chromeperf/log"
	"go.jacobcolvin.com/chromeperf/perf"
	"go.jacobcolvin.com/chromeperf/prompt"
	"go.jacobcolvin.com/chromeperf/renderer"
)

// ErrInterrupted indicates the session was stopped by the operator. It is
// not a failure: the children were shut down gracefully.
var ErrInterrupted = errors.New("interrupted")

const defaultSettle = time.Second

// Session is one profiling run.
//
// Create instances with [New].
type Session struct {
	launcher *chrome.Launcher
	recorder *perf.Recorder
	locator  *renderer.Locator
	prompter prompt.Prompter
	logger   *slog.Logger
	banner   *log.Banner
	out      io.Writer
	settle   time.Duration
}

// Option configures a [Session].
type Option func(*Session)

// WithPrompter makes the session ask for confirmation through p after the
// renderer is found and before recording starts.
func WithPrompter(p prompt.Prompter) Option {
	return func(s *Session) {
		s.prompter = p
	}
}

// WithLogger sets the logger diagnostics are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithOutput sets where banners, commands and results are printed, and
// where the browser's stdout goes. Defaults to [os.Stdout].
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithSettle sets how long to wait after launching the browser before
// looking for its renderer. Defaults to one second.
func WithSettle(d time.Duration) Option {
	return func(s *Session) {
		s.settle = d
	}
}

// New creates a [Session].
func New(launcher *chrome.Launcher, recorder *perf.Recorder, locator *renderer.Locator, opts ...Option) *Session {
	s := &Session{
		launcher: launcher,
		recorder: recorder,
		locator:  locator,
		logger:   slog.New(slog.DiscardHandler),
		out:      os.Stdout,
		settle:   defaultSettle,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.banner = log.NewBanner(s.out)

	return s
}

// Run executes the session. When the recorder has an output directory, Run
// works inside it and restores the previous working directory before
// returning, whatever the outcome.
func (s *Session) Run(ctx context.Context) (err error) {
	if dir := s.recorder.Dir(); dir != "" {
		restore, chdirErr := enterDir(dir)
		if chdirErr != nil {
			return chdirErr
		}

		defer func() {
			err = errors.Join(err, restore())
		}()
	}

	if ctx.Err() != nil {
		return ErrInterrupted
	}

	s.banner.Section("LAUNCHING CHROME")
	fmt.Fprintf(s.out, "chrome command: %s\n", shellescape.QuoteCommand(s.launcher.Args()))

	browser, err := s.launcher.Start(s.out)
	if err != nil {
		s.banner.Error("Could not launch chrome")

		return err
	}

	s.logger.Info("browser started", slog.Int("pid", browser.Pid()))

	if !sleep(ctx, s.settle) {
		return s.interrupt(browser)
	}

	fmt.Fprintf(s.out, "Chrome's main pid: %d\n", browser.Pid())

	pid, err := s.locator.Poll(ctx, int32(browser.Pid()))
	if ctx.Err() != nil {
		return s.interrupt(browser)
	}

	if err != nil {
		s.banner.Error("Could not retrieve chrome render pid")
		s.stopBrowser(browser)

		return err
	}

	fmt.Fprintf(s.out, "Render pid found: %d\n", pid)

	if s.prompter != nil {
		ok, promptErr := s.prompter.Confirm(ctx, "Press Enter to start profiling.")
		if ctx.Err() != nil || (promptErr == nil && !ok) {
			return s.interrupt(browser)
		}

		if promptErr != nil {
			s.stopBrowser(browser)

			return promptErr
		}
	}

	err = s.record(ctx, browser, pid)
	if err != nil {
		return err
	}

	return s.postProcess(ctx)
}

// record runs perf record against pid until it exits or ctx is canceled.
func (s *Session) record(ctx context.Context, browser *childproc.Process, pid int32) error {
	s.banner.Section("RUNNING PERF RECORD")
	fmt.Fprintf(s.out, "linux perf command: %s\n", shellescape.QuoteCommand(s.recorder.RecordArgs(pid)))
	fmt.Fprint(s.out, ">> Press CTRL + c to stop recording or close Chrome <<\n")
	fmt.Fprintf(s.out, ">> CTRL + c skips symbol injection; close Chrome to get %s <<\n\n", perf.JittedFile)

	err := s.recorder.Start(pid)
	if err != nil {
		s.banner.Error("Perf record failed")
		s.stopBrowser(browser)

		return err
	}

	s.logger.Info("perf record started", slog.Int("target", int(pid)))

	select {
	case <-ctx.Done():
		return s.interrupt(browser)
	case <-s.recorder.Done():
	}

	err = s.recorder.Wait()
	if err != nil {
		s.banner.Error("Perf record failed")
		s.stopBrowser(browser)

		return err
	}

	return nil
}

// postProcess injects JIT symbols and prints the analysis commands.
func (s *Session) postProcess(ctx context.Context) error {
	s.banner.Section("POST PROCESSING: Injecting JS symbols")
	fmt.Fprintf(s.out, "Perf inject cmd: %s\n", shellescape.QuoteCommand(s.recorder.InjectArgs()))
	fmt.Fprintln(s.out, "This step might take a few moments depending on the report size")

	err := s.recorder.Inject(ctx)
	if ctx.Err() != nil {
		return ErrInterrupted
	}

	if err != nil {
		s.banner.Error("Perf inject failed")

		return err
	}

	result, err := s.recorder.ResultPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, "Injecting success.")
	fmt.Fprintf(s.out, "Results in: %s\n", result)

	s.banner.Section("ANALYSIS")
	fmt.Fprintln(s.out, "linux-perf cmds:")

	for _, cmd := range s.recorder.AnalysisCommands(result) {
		fmt.Fprintln(s.out, cmd)
	}

	fmt.Fprintln(s.out)

	return nil
}

// interrupt shuts down the browser and then the profiler, if it was
// started, waiting for both.
func (s *Session) interrupt(browser *childproc.Process) error {
	s.logger.Info("interrupted, stopping children")
	s.stopBrowser(browser)

	if !s.recorder.Started() {
		return ErrInterrupted
	}

	err := s.recorder.Stop()
	if err != nil {
		s.logger.Warn("perf record did not stop cleanly", slog.Any("err", err))
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "the output directory"
	}

	fmt.Fprintf(s.out, "\nRecording interrupted: %s was kept but %s was not written.\n",
		perf.DataFile, perf.JittedFile)
	fmt.Fprintf(s.out, "To inject JS symbols, run in %s:\n%s\n",
		wd, shellescape.QuoteCommand(s.recorder.InjectArgs()))

	return ErrInterrupted
}

func (s *Session) stopBrowser(browser *childproc.Process) {
	err := browser.Stop()
	if err != nil {
		s.logger.Warn("browser did not stop cleanly", slog.Int("pid", browser.Pid()), slog.Any("err", err))

		return
	}

	s.logger.Debug("browser stopped", slog.Int("pid", browser.Pid()))
}

// enterDir changes the working directory to dir and returns a function
// restoring the previous one.
func enterDir(dir string) (func() error, error) {
	orig, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	err = os.Chdir(dir)
	if err != nil {
		return nil, fmt.Errorf("enter %s: %w", dir, err)
	}

	return func() error {
		err := os.Chdir(orig)
		if err != nil {
			return fmt.Errorf("restore working directory %s: %w", orig, err)
		}

		return nil
	}, nil
}

// sleep waits for d and reports whether it did so without ctx being
// canceled.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
