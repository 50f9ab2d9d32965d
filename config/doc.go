// Package config loads chromeperf settings from a YAML file.
//
// A config file holds the same settings as the command line, keyed by flag
// name:
//
//	url: https://example.com
//	perf-dir: ./reports
//	js-flags: [--no-opt]
//	settle: 2s
//
// [File.Apply] copies the file's values onto a [*pflag.FlagSet], skipping
// flags already set on the command line, so flags always win over the file.
// Unknown keys are rejected. [Schema] describes the file as a JSON Schema,
// which editors can use for completion and validation.
package config
