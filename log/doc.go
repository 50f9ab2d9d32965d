// Package log provides structured logging handler construction for use with
// [log/slog], plus the console banners chromeperf prints between phases.
//
// It supports multiple output formats ([FormatJSON], [FormatLogfmt], and
// [FormatText]) and severity levels ([LevelError], [LevelWarn], [LevelInfo],
// and [LevelDebug]). [FormatText] is rendered by [charm.land/log/v2]; the
// other formats use the standard library handlers. Use [NewHandler] to create
// a handler directly, or use [Config] with CLI flag integration via
// [github.com/spf13/pflag] and shell completion support via
// [github.com/spf13/cobra].
//
// Typical usage creates a [Config], registers flags, then builds a logger
// at startup:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.Flags())
//	cfg.RegisterCompletions(rootCmd)
//
//	logger, err := cfg.NewLogger(os.Stderr)
//
// A [Banner] prints section headers and the highlighted error notice:
//
//	b := log.NewBanner(os.Stdout)
//	b.Section("LAUNCHING CHROME")
//	b.Error("Perf record failed")
package log
