// Package childproc supervises the external programs chromeperf drives.
//
// Each [Process] runs in its own process group, so an interrupt typed at the
// terminal reaches only chromeperf. chromeperf then decides which children to
// interrupt and in which order. A background goroutine reaps the child;
// [Process.Done] lets callers select on its exit alongside a context.
package childproc
