package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRendererNotFound indicates no renderer appeared below the browser within
// the polling window.
var ErrRendererNotFound = errors.New("renderer process not found")

const (
	defaultTimeout  = time.Second
	defaultInterval = 10 * time.Millisecond
)

// Locator searches a [Table] for the renderer process of a browser.
//
// Create instances with [NewLocator].
type Locator struct {
	table    Table
	logger   *slog.Logger
	timeout  time.Duration
	interval time.Duration
}

// Option configures a [Locator].
type Option func(*Locator)

// WithTimeout sets how long [Locator.Poll] keeps scanning. Defaults to one
// second.
func WithTimeout(d time.Duration) Option {
	return func(l *Locator) {
		l.timeout = d
	}
}

// WithInterval sets the pause between scans in [Locator.Poll].
func WithInterval(d time.Duration) Option {
	return func(l *Locator) {
		l.interval = d
	}
}

// WithLogger sets the logger scan details are written to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		l.logger = logger
	}
}

// NewLocator creates a [Locator] reading from table.
func NewLocator(table Table, opts ...Option) *Locator {
	l := &Locator{
		table:    table,
		logger:   slog.New(slog.DiscardHandler),
		timeout:  defaultTimeout,
		interval: defaultInterval,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// candidate is the best renderer seen so far in one scan.
type candidate struct {
	pid     int32
	cpuTime float64
	found   bool
}

// Find scans the children of parent once and returns the renderer with the
// most CPU time. Zygote children are descended into, and a renderer found
// below one replaces the current candidate. Extension hosts are never
// returned. The boolean result is false when no renderer exists yet.
func (l *Locator) Find(ctx context.Context, parent int32) (int32, bool, error) {
	best, err := l.scan(ctx, parent, candidate{cpuTime: -1})
	if err != nil {
		return 0, false, err
	}

	return best.pid, best.found, nil
}

func (l *Locator) scan(ctx context.Context, parent int32, best candidate) (candidate, error) {
	children, err := l.table.Children(ctx, parent)
	if err != nil {
		return best, err
	}

	for _, pid := range children {
		info, err := l.table.Info(ctx, pid)
		if err != nil {
			l.logger.Debug("skipping process", slog.Int("pid", int(pid)), slog.Any("err", err))

			continue
		}

		role := info.Role()

		l.logger.Debug("inspected process",
			slog.Int("pid", int(pid)),
			slog.Int("ppid", int(parent)),
			slog.String("role", role.String()),
			slog.Float64("cpu", info.CPUTime),
		)

		switch role {
		case RoleSandboxHelper:
			nested, err := l.scan(ctx, pid, candidate{cpuTime: best.cpuTime})
			if err != nil {
				return best, err
			}

			if nested.found {
				best = nested
			}

		case RoleRenderer:
			if info.CPUTime > best.cpuTime {
				best = candidate{pid: pid, cpuTime: info.CPUTime, found: true}
			}

		case RoleExtension, RoleOther:
		}
	}

	return best, nil
}

// Poll repeats [Locator.Find] until a renderer appears or the timeout
// elapses, in which case it returns [ErrRendererNotFound]. Errors reading the
// process table are retried until the timeout, since the tree is still being
// built while the browser starts.
func (l *Locator) Poll(ctx context.Context, parent int32) (int32, error) {
	deadline := time.Now().Add(l.timeout)

	var lastErr error

	for {
		pid, ok, err := l.Find(ctx, parent)
		if err == nil && ok {
			return pid, nil
		}

		if err != nil {
			lastErr = err
		}

		if !time.Now().Before(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(l.interval):
		}
	}

	if lastErr != nil {
		return 0, fmt.Errorf("%w below pid %d after %s: %w", ErrRendererNotFound, parent, l.timeout, lastErr)
	}

	return 0, fmt.Errorf("%w below pid %d after %s", ErrRendererNotFound, parent, l.timeout)
}
