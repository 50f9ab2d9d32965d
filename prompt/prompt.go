// Package prompt asks the operator to acknowledge before profiling starts.
//
// On a terminal the question is shown with a small Bubble Tea program, so
// the operator can confirm with enter or abort with q, esc or ctrl+c.
// Otherwise a line is read from the input.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Prompter asks a yes/no question. Confirm returns false when the operator
// declines, when input ends, or when ctx is canceled; in the last case the
// context error is returned too.
type Prompter interface {
	Confirm(ctx context.Context, msg string) (bool, error)
}

// New returns a [Prompter] reading from in and writing to out. A terminal
// input gets [TUI]; anything else gets [Line].
func New(in io.Reader, out io.Writer) Prompter {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return NewTUI(in, out)
	}

	return NewLine(in, out)
}

// Line confirms by reading one line of input.
//
// Create instances with [NewLine].
type Line struct {
	in  io.Reader
	out io.Writer
}

// NewLine creates a [Line] prompter.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: in, out: out}
}

// Confirm prints msg and waits for a line. Any line, including an empty one,
// confirms; end of input declines.
func (l *Line) Confirm(ctx context.Context, msg string) (bool, error) {
	fmt.Fprintf(l.out, "\n%s", msg)

	lines := make(chan error, 1)

	go func() {
		_, err := bufio.NewReader(l.in).ReadString('\n')
		lines <- err
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(l.out)

		return false, ctx.Err()

	case err := <-lines:
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(l.out)

			return false, nil
		}

		if err != nil {
			return false, fmt.Errorf("read confirmation: %w", err)
		}

		return true, nil
	}
}
