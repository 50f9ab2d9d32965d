// Package perf drives Linux perf for a chromeperf session.
//
// It records samples from one process with perf record, merges V8 JIT
// symbols into the capture with perf inject --jit, and prints the report
// commands an operator runs next. The capture files use fixed names,
// [DataFile] and [JittedFile], in the working directory.
//
// Typical usage creates a [Config], registers flags, then creates a
// [Recorder] that wraps the profiler lifecycle:
//
//	cfg := perf.NewConfig()
//	cfg.RegisterFlags(rootCmd.Flags())
//	cfg.RegisterCompletions(rootCmd)
//
//	rec, err := cfg.NewRecorder()
//	err = rec.Start(rendererPID)
//	err = rec.Wait()
//	err = rec.Inject(ctx)
//
// Users can then pass options through, as in
// --perf-options=--call-graph=dwarf,-e,cycles.
package perf
