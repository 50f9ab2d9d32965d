package perf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/alessio/shellescape"

	"go.jacobcolvin.com/chromeperf/childproc"
)

// Capture file names, relative to the output directory.
const (
	DataFile   = "perf.data"
	JittedFile = "perf.data.jitted"
)

var (
	// ErrRecordFailed indicates perf record could not start or exited with a
	// non-zero status.
	ErrRecordFailed = errors.New("perf record failed")
	// ErrInjectFailed indicates perf inject failed.
	ErrInjectFailed = errors.New("perf inject failed")
	// ErrNotStarted indicates the recording has not been started.
	ErrNotStarted = errors.New("perf record not started")
)

// Recorder controls one perf recording and its post-processing.
//
// Call [Recorder.Start] to attach to a process, [Recorder.Wait] for the
// recording to end, then [Recorder.Inject] to merge JIT symbols.
//
// Create instances with [Config.NewRecorder].
type Recorder struct {
	// Stdout and Stderr receive perf's output. They default to the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer

	proc *childproc.Process

	binary  string
	dir     string
	freq    string
	options []string
}

// Binary returns the resolved perf executable.
func (r *Recorder) Binary() string {
	return r.binary
}

// Dir returns the absolute output directory, or "" for the working
// directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// RecordArgs returns the perf record command line attaching to pid,
// binary first.
func (r *Recorder) RecordArgs(pid int32) []string {
	args := []string{
		r.binary,
		"record",
		"--freq=" + r.freq,
		"--clockid=mono",
		"-p", strconv.Itoa(int(pid)),
	}

	return append(args, r.options...)
}

// Start launches perf record attached to pid, in its own process group so
// that it is only stopped when chromeperf decides to. perf's stdin is a
// pipe held open for the lifetime of the recording.
func (r *Recorder) Start(pid int32) error {
	args := r.RecordArgs(pid)

	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // perf command comes from CLI flags.
	cmd.Dir = r.dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	// perf must not read the operator's terminal. The pipe stays open until
	// perf exits, and exec.Cmd.Wait closes it.
	_, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %w", ErrRecordFailed, err)
	}

	proc, err := childproc.Start(cmd)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRecordFailed, err)
	}

	r.proc = proc

	return nil
}

// Started reports whether [Recorder.Start] succeeded.
func (r *Recorder) Started() bool {
	return r.proc != nil
}

// Done returns a channel closed when perf record exits. It is nil before
// [Recorder.Start], so selecting on it blocks.
func (r *Recorder) Done() <-chan struct{} {
	if r.proc == nil {
		return nil
	}

	return r.proc.Done()
}

// Wait blocks until perf record exits. A non-zero exit is reported as
// [ErrRecordFailed].
func (r *Recorder) Wait() error {
	if r.proc == nil {
		return ErrNotStarted
	}

	err := r.proc.Wait()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRecordFailed, err)
	}

	return nil
}

// Stop interrupts perf record, which then finalizes the capture, and waits
// for it to exit. Stopping a recording that was never started does nothing.
func (r *Recorder) Stop() error {
	if r.proc == nil {
		return nil
	}

	err := r.proc.Stop()
	if err != nil {
		return fmt.Errorf("stop perf record: %w", err)
	}

	return nil
}

// InjectArgs returns the perf inject command line, binary first.
func (r *Recorder) InjectArgs() []string {
	return []string{
		r.binary,
		"inject",
		"--jit",
		"--input=" + DataFile,
		"--output=" + JittedFile,
	}
}

// Inject runs perf inject --jit over the finished capture, writing
// [JittedFile] next to [DataFile]. It must only be called after the
// recording has exited, so that perf has flushed [DataFile].
func (r *Recorder) Inject(ctx context.Context) error {
	args := r.InjectArgs()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // perf command comes from CLI flags.
	cmd.Dir = r.dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInjectFailed, err)
	}

	return nil
}

// ResultPath returns the absolute path of [JittedFile].
func (r *Recorder) ResultPath() (string, error) {
	dir := r.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}

		dir = wd
	}

	return filepath.Join(dir, JittedFile), nil
}

// AnalysisCommands returns the perf commands an operator can run on result:
// a full report, a report without children aggregation, and an annotate
// template for a single symbol.
func (r *Recorder) AnalysisCommands(result string) []string {
	return []string{
		shellescape.QuoteCommand([]string{r.binary, "report", "-i", result}),
		shellescape.QuoteCommand([]string{r.binary, "report", "--no-children", "-i", result}),
		shellescape.QuoteCommand([]string{r.binary, "annotate", "-i", result, "--symbol=SYMBOL_NAME"}),
	}
}
