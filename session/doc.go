// Package session runs one chromeperf profiling session from browser launch
// to the final report.
//
// The steps run strictly in order: launch the browser, find its renderer,
// optionally wait for the operator, record the renderer with perf, inject
// JIT symbols, and print the analysis commands. A failure at any step stops
// the children already running and ends the session with an error.
// Canceling the context (chromeperf cancels it on SIGINT and SIGTERM) stops
// the browser, then the profiler if it was started, waiting for each to
// exit so that perf finalizes its capture, and ends with [ErrInterrupted]
// without post-processing.
package session
