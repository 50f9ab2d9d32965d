package session_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/chromeperf/chrome"
	"go.jacobcolvin.com/chromeperf/perf"
	"go.jacobcolvin.com/chromeperf/renderer"
	"go.jacobcolvin.com/chromeperf/session"
)

// These tests change the working directory, so none of them run in
// parallel.

const rendererPID = 4242

// fakeChrome prints its pid and then idles until interrupted. Both fakes
// append their name to stop-order when interrupted.
const fakeChrome = `#!/bin/sh
trap 'kill $! 2>/dev/null; echo chrome >> stop-order; exit 0' INT
echo "chrome-pid=$$"
sleep 30 &
wait
`

const (
	recordOK = `record) echo "$@" > perf.data ;;`
	// recordBlocks writes the capture only after the trap is installed, so
	// its presence means the recording is interruptible.
	recordBlocks = `record)
  trap 'kill $! 2>/dev/null; echo finalized >> perf.data; echo perf >> stop-order; exit 0' INT
  echo "pid=$$" > perf.data
  sleep 30 &
  wait ;;`
	recordFails = `record) echo "cannot attach" >&2; exit 1 ;;`
	injectOK    = `inject) cp perf.data perf.data.jitted ;;`
	injectFails = `inject) exit 3 ;;`
)

// syncBuffer is written concurrently by the session and by child stdout
// copiers.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// tree reports one renderer under any parent when found is true.
type tree struct {
	found bool
}

var (
	withRenderer    = tree{found: true}
	withoutRenderer = tree{found: false}
)

func (t tree) Children(_ context.Context, pid int32) ([]int32, error) {
	if !t.found || pid == rendererPID {
		return nil, nil
	}

	return []int32{rendererPID}, nil
}

func (t tree) Info(_ context.Context, pid int32) (renderer.Info, error) {
	return renderer.Info{
		PID:     pid,
		Args:    []string{"chromium", "--type=renderer"},
		CPUTime: 1,
	}, nil
}

// stuckTree blocks every lookup until the context is canceled, reporting
// on entered once the first lookup starts.
type stuckTree struct {
	entered chan struct{}
	once    sync.Once
}

func newStuckTree() *stuckTree {
	return &stuckTree{entered: make(chan struct{})}
}

func (t *stuckTree) Children(ctx context.Context, _ int32) ([]int32, error) {
	t.once.Do(func() { close(t.entered) })
	<-ctx.Done()

	return nil, ctx.Err()
}

func (t *stuckTree) Info(ctx context.Context, _ int32) (renderer.Info, error) {
	<-ctx.Done()

	return renderer.Info{}, ctx.Err()
}

type fakePrompter struct {
	ok bool
}

func (p fakePrompter) Confirm(context.Context, string) (bool, error) {
	return p.ok, nil
}

// waitingPrompter waits for an answer that never comes.
type waitingPrompter struct {
	entered chan struct{}
}

func (p waitingPrompter) Confirm(ctx context.Context, _ string) (bool, error) {
	close(p.entered)
	<-ctx.Done()

	return false, ctx.Err()
}

type fixture struct {
	out *syncBuffer
	dir string
	bin string
	s   *session.Session
}

func writeScript(t *testing.T, path, body string) string {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))

	return path
}

func newFixture(t *testing.T, record, inject string, table renderer.Table, opts ...session.Option) *fixture {
	t.Helper()

	bin := t.TempDir()
	dir := filepath.Join(t.TempDir(), "reports")

	chromeCfg := chrome.NewConfig()
	chromeCfg.Binary = writeScript(t, filepath.Join(bin, "chrome"), fakeChrome)
	chromeCfg.URL = "https://example.com"

	launcher, err := chromeCfg.NewLauncher()
	require.NoError(t, err)

	perfScript := "#!/bin/sh\ntouch perf-ran\ncase \"$1\" in\n" + record + "\n" + inject + "\nesac\n"

	perfCfg := perf.NewConfig()
	perfCfg.Binary = writeScript(t, filepath.Join(bin, "perf"), perfScript)
	perfCfg.Dir = dir

	rec, err := perfCfg.NewRecorder()
	require.NoError(t, err)

	out := &syncBuffer{}
	rec.Stdout = out
	rec.Stderr = out

	locator := renderer.NewLocator(table,
		renderer.WithTimeout(100*time.Millisecond),
		renderer.WithInterval(5*time.Millisecond),
	)

	opts = append([]session.Option{
		session.WithOutput(out),
		session.WithSettle(10 * time.Millisecond),
	}, opts...)

	// Successful runs leave the browser running, as a real session does.
	t.Cleanup(func() {
		m := chromePIDRe.FindStringSubmatch(out.String())
		if len(m) == 2 {
			pid, err := strconv.Atoi(m[1])
			if err == nil {
				_ = syscall.Kill(-pid, syscall.SIGKILL)
			}
		}
	})

	return &fixture{
		out: out,
		dir: dir,
		bin: bin,
		s:   session.New(launcher, rec, locator, opts...),
	}
}

var chromePIDRe = regexp.MustCompile(`chrome-pid=(\d+)`)

// requireReaped asserts the fake browser printed its pid and no longer
// exists.
func requireReaped(t *testing.T, out string) {
	t.Helper()

	m := chromePIDRe.FindStringSubmatch(out)
	require.Len(t, m, 2, "browser pid not printed")

	pid, err := strconv.Atoi(m[1])
	require.NoError(t, err)

	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)
}

func requireWorkdir(t *testing.T) func() {
	t.Helper()

	orig, err := os.Getwd()
	require.NoError(t, err)

	return func() {
		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, orig, wd, "working directory not restored")
	}
}

func TestSession_Run_Success(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	f := newFixture(t, recordOK, injectOK, withRenderer)

	require.NoError(t, f.s.Run(t.Context()))
	check()

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name() != "perf-ran" {
			names = append(names, e.Name())
		}
	}

	assert.ElementsMatch(t, []string{perf.DataFile, perf.JittedFile}, names)

	data, err := os.ReadFile(filepath.Join(f.dir, perf.DataFile))
	require.NoError(t, err)
	assert.Equal(t, "record --freq=max --clockid=mono -p 4242\n", string(data))

	out := f.out.String()
	jitted := filepath.Join(f.dir, perf.JittedFile)

	for _, want := range []string{
		"LAUNCHING CHROME",
		"chrome command: " + filepath.Join(f.bin, "chrome") + " --no-sandbox",
		"Render pid found: 4242",
		"RUNNING PERF RECORD",
		"POST PROCESSING: Injecting JS symbols",
		"Injecting success.",
		"Results in: " + jitted,
		"ANALYSIS",
		"report -i " + jitted,
		"report --no-children -i " + jitted,
		"annotate -i " + jitted + " --symbol=SYMBOL_NAME",
	} {
		assert.Contains(t, out, want)
	}

	assert.NotContains(t, out, "ERROR:")
}

func TestSession_Run_RendererNotFound(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	f := newFixture(t, recordOK, injectOK, withoutRenderer)

	err := f.s.Run(t.Context())
	require.ErrorIs(t, err, renderer.ErrRendererNotFound)
	check()

	out := f.out.String()
	assert.Contains(t, out, "ERROR: Could not retrieve chrome render pid")
	assert.NotContains(t, out, "RUNNING PERF RECORD")
	assert.NoFileExists(t, filepath.Join(f.dir, "perf-ran"))
	requireReaped(t, out)
}

func TestSession_Run_RecordFails(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	f := newFixture(t, recordFails, injectOK, withRenderer)

	err := f.s.Run(t.Context())
	require.ErrorIs(t, err, perf.ErrRecordFailed)
	check()

	out := f.out.String()
	assert.Contains(t, out, "ERROR: Perf record failed")
	assert.NotContains(t, out, "POST PROCESSING")
	assert.NoFileExists(t, filepath.Join(f.dir, perf.JittedFile))
	requireReaped(t, out)
}

func TestSession_Run_InjectFails(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	f := newFixture(t, recordOK, injectFails, withRenderer)

	err := f.s.Run(t.Context())
	require.ErrorIs(t, err, perf.ErrInjectFailed)
	check()

	out := f.out.String()
	assert.Contains(t, out, "ERROR: Perf inject failed")
	assert.NotContains(t, out, "ANALYSIS")
}

// runAndInterrupt runs the session, cancels it once ready returns, and
// returns the session's error.
func runAndInterrupt(t *testing.T, f *fixture, ready func() bool) error {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	errc := make(chan error, 1)

	go func() {
		errc <- f.s.Run(ctx)
	}()

	require.Eventually(t, ready, 10*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-errc:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("session did not stop after interrupt")
	}

	return nil
}

// blockedIn reports whether the fake browser has set up its interrupt trap
// and the session has reached the step that closes ch.
func blockedIn(f *fixture, ch <-chan struct{}) func() bool {
	return func() bool {
		if !strings.Contains(f.out.String(), "chrome-pid=") {
			return false
		}

		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
}

func TestSession_Run_InterruptWhileRecording(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	f := newFixture(t, recordBlocks, injectOK, withRenderer)

	err := runAndInterrupt(t, f, func() bool {
		_, err := os.Stat(filepath.Join(f.dir, perf.DataFile))
		return err == nil
	})
	require.ErrorIs(t, err, session.ErrInterrupted)
	check()

	data, err := os.ReadFile(filepath.Join(f.dir, perf.DataFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "finalized", "perf record was not waited on")

	order, err := os.ReadFile(filepath.Join(f.dir, "stop-order"))
	require.NoError(t, err)
	assert.Equal(t, "chrome\nperf\n", string(order), "browser stops before perf")

	out := f.out.String()
	assert.NoFileExists(t, filepath.Join(f.dir, perf.JittedFile))
	assert.NotContains(t, out, "POST PROCESSING")
	assert.Contains(t, out, "perf.data.jitted was not written")
	assert.Contains(t, out, "inject --jit --input=perf.data --output=perf.data.jitted")
	requireReaped(t, out)
}

func TestSession_Run_InterruptWhileLocating(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	table := newStuckTree()
	f := newFixture(t, recordOK, injectOK, table)

	err := runAndInterrupt(t, f, blockedIn(f, table.entered))
	require.ErrorIs(t, err, session.ErrInterrupted)
	require.NotErrorIs(t, err, renderer.ErrRendererNotFound)
	check()

	out := f.out.String()
	assert.NotContains(t, out, "ERROR:")
	assert.NotContains(t, out, "RUNNING PERF RECORD")
	assert.NoFileExists(t, filepath.Join(f.dir, "perf-ran"))

	order, err := os.ReadFile(filepath.Join(f.dir, "stop-order"))
	require.NoError(t, err)
	assert.Equal(t, "chrome\n", string(order))
	requireReaped(t, out)
}

func TestSession_Run_InterruptWhileWaiting(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	entered := make(chan struct{})
	f := newFixture(t, recordOK, injectOK, withRenderer,
		session.WithPrompter(waitingPrompter{entered: entered}))

	err := runAndInterrupt(t, f, blockedIn(f, entered))
	require.ErrorIs(t, err, session.ErrInterrupted)
	check()

	out := f.out.String()
	assert.Contains(t, out, "Render pid found: 4242")
	assert.NotContains(t, out, "RUNNING PERF RECORD")
	assert.NoFileExists(t, filepath.Join(f.dir, "perf-ran"))

	order, err := os.ReadFile(filepath.Join(f.dir, "stop-order"))
	require.NoError(t, err)
	assert.Equal(t, "chrome\n", string(order))
	requireReaped(t, out)
}

func TestSession_Run_Canceled(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	check := requireWorkdir(t)
	f := newFixture(t, recordOK, injectOK, withRenderer)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := f.s.Run(ctx)
	require.ErrorIs(t, err, session.ErrInterrupted)
	check()

	assert.NotContains(t, f.out.String(), "LAUNCHING CHROME")
}

func TestSession_Run_Wait(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	tcs := map[string]struct {
		wantErr error
		ok      bool
	}{
		"confirmed": {
			ok: true,
		},
		"declined": {
			ok:      false,
			wantErr: session.ErrInterrupted,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			check := requireWorkdir(t)
			f := newFixture(t, recordOK, injectOK, withRenderer,
				session.WithPrompter(fakePrompter{ok: tc.ok}))

			err := f.s.Run(t.Context())
			check()

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.NoFileExists(t, filepath.Join(f.dir, "perf-ran"))
				requireReaped(t, f.out.String())

				return
			}

			require.NoError(t, err)
			assert.FileExists(t, filepath.Join(f.dir, perf.JittedFile))
		})
	}
}

func TestSession_Run_MissingDir(t *testing.T) { //nolint:paralleltest // Changes the working directory.
	f := newFixture(t, recordOK, injectOK, withRenderer)
	require.NoError(t, os.RemoveAll(f.dir))

	err := f.s.Run(t.Context())
	require.ErrorContains(t, err, f.dir)
	assert.NotErrorIs(t, err, session.ErrInterrupted)
}
