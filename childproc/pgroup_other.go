//go:build !unix

package childproc

import "syscall"

func newProcessGroup() *syscall.SysProcAttr {
	return nil
}
