package childproc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// ErrStart indicates a child process could not be started.
var ErrStart = errors.New("start process")

// Process is a started child process.
//
// Create instances with [Start].
type Process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// Start starts cmd in a new process group and begins reaping it in the
// background.
func Start(cmd *exec.Cmd) (*Process, error) {
	cmd.SysProcAttr = newProcessGroup()

	err := cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStart, cmd.Path, err)
	}

	p := &Process{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

// Pid returns the process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done returns a channel that is closed once the process has exited and been
// reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits and returns its exit error, as
// [exec.Cmd.Wait] would. It may be called any number of times.
func (p *Process) Wait() error {
	<-p.done

	return p.waitErr
}

// Interrupt sends SIGINT to the process. Interrupting a process that has
// already exited is not an error.
func (p *Process) Interrupt() error {
	err := p.cmd.Process.Signal(os.Interrupt)
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("interrupt pid %d: %w", p.Pid(), err)
	}

	return nil
}

// Stop interrupts the process and waits for it to exit. The returned error
// is nil when the process exited cleanly or because of the interrupt.
func (p *Process) Stop() error {
	err := p.Interrupt()
	if err != nil {
		return err
	}

	err = p.Wait()
	if err != nil && !Interrupted(err) {
		return err
	}

	return nil
}

// Interrupted reports whether err is the wait error of a process that was
// terminated by SIGINT.
func Interrupted(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}

	ws, ok := exitErr.Sys().(syscall.WaitStatus)

	return ok && ws.Signaled() && ws.Signal() == syscall.SIGINT
}
