// Package chrome builds and launches the Chromium command line used for
// profiling.
//
// The browser runs sandboxless and incognito with first-run UI, the default
// browser check and certificate errors disabled, and V8 configured so perf
// can read JIT code and see interpreted frames on the native stack. See
// [BaseFlags] and [BaseJSFlags].
//
// Typical usage registers flags on a command, then resolves a [Launcher]:
//
//	cfg := chrome.NewConfig()
//	cfg.RegisterFlags(rootCmd.Flags())
//
//	launcher, err := cfg.NewLauncher()
//	browser, err := launcher.Start(os.Stdout)
package chrome
