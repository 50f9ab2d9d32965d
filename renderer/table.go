package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrProcessTable indicates the process table could not be read.
var ErrProcessTable = errors.New("read process table")

// Info is the metadata the locator needs about one process.
type Info struct {
	// Args is the command line, as reported by the operating system.
	Args []string
	// CPUTime is the user plus system CPU time consumed, in seconds.
	CPUTime float64
	PID     int32
	PPID    int32
}

// Role classifies the process from its command line.
func (i Info) Role() Role {
	return Classify(i.Args)
}

// Table is a queryable view of the process tree.
type Table interface {
	// Children returns the ids of the immediate children of pid.
	Children(ctx context.Context, pid int32) ([]int32, error)
	// Info returns metadata for pid. It fails if the process is gone.
	Info(ctx context.Context, pid int32) (Info, error)
}

// ProcTable is a [Table] backed by the live operating system process table.
//
// Create instances with [NewProcTable].
type ProcTable struct{}

// NewProcTable creates a [ProcTable].
func NewProcTable() *ProcTable {
	return &ProcTable{}
}

// Children returns the ids of all live processes whose parent is pid.
func (t *ProcTable) Children(ctx context.Context, pid int32) ([]int32, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessTable, err)
	}

	var children []int32

	for _, p := range procs {
		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			// Exited since the listing.
			continue
		}

		if ppid == pid {
			children = append(children, p.Pid)
		}
	}

	return children, nil
}

// Info returns the command line and consumed CPU time of pid.
func (t *ProcTable) Info(ctx context.Context, pid int32) (Info, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return Info{}, fmt.Errorf("%w: pid %d: %w", ErrProcessTable, pid, err)
	}

	args, err := p.CmdlineSliceWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("%w: pid %d cmdline: %w", ErrProcessTable, pid, err)
	}

	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("%w: pid %d cpu times: %w", ErrProcessTable, pid, err)
	}

	ppid, err := p.PpidWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("%w: pid %d ppid: %w", ErrProcessTable, pid, err)
	}

	return Info{
		PID:     pid,
		PPID:    ppid,
		Args:    args,
		CPUTime: times.User + times.System,
	}, nil
}
