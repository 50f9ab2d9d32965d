package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/pflag"
)

var (
	// ErrReadConfig indicates the config file could not be read.
	ErrReadConfig = errors.New("read config")
	// ErrInvalidConfig indicates the config file is not valid.
	ErrInvalidConfig = errors.New("invalid config")
)

// File is the content of a config file. Keys match the flag names; a
// missing key leaves the flag at its default.
type File struct {
	Wait          *bool    `json:"wait,omitempty"           jsonschema:"block for confirmation before recording starts" yaml:"wait,omitempty"`
	URL           string   `json:"url,omitempty"            jsonschema:"URL to visit when chrome starts"                yaml:"url,omitempty"`
	Chrome        string   `json:"chrome,omitempty"         jsonschema:"path to the chrome binary"                      yaml:"chrome,omitempty"`
	Perf          string   `json:"perf,omitempty"           jsonschema:"path to the perf binary"                        yaml:"perf,omitempty"`
	PerfDir       string   `json:"perf-dir,omitempty"       jsonschema:"directory the reports are saved to"             yaml:"perf-dir,omitempty"`
	Freq          string   `json:"freq,omitempty"           jsonschema:"perf record sampling frequency"                 yaml:"freq,omitempty"`
	Settle        string   `json:"settle,omitempty"         jsonschema:"delay after chrome starts, as a Go duration"    yaml:"settle,omitempty"`
	LocateTimeout string   `json:"locate-timeout,omitempty" jsonschema:"how long to look for the renderer"              yaml:"locate-timeout,omitempty"`
	LogLevel      string   `json:"log-level,omitempty"      jsonschema:"log level"                                      yaml:"log-level,omitempty"`
	LogFormat     string   `json:"log-format,omitempty"     jsonschema:"log format"                                     yaml:"log-format,omitempty"`
	PerfOptions   []string `json:"perf-options,omitempty"   jsonschema:"additional perf record options"                 yaml:"perf-options,omitempty"`
	ChromeOptions []string `json:"chrome-options,omitempty" jsonschema:"additional chrome options"                      yaml:"chrome-options,omitempty"`
	JSFlags       []string `json:"js-flags,omitempty"       jsonschema:"additional V8 flags"                            yaml:"js-flags,omitempty"`
}

// Load reads and parses the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	return Parse(data)
}

// Parse parses config file content. Unknown keys are an error.
func Parse(data []byte) (*File, error) {
	f := &File{}

	err := yaml.UnmarshalWithOptions(data, f, yaml.DisallowUnknownField())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return f, nil
}

// Apply sets each flag in flags that has a value in f and was not set on
// the command line. Keys whose flag is not registered in flags are ignored.
// List values replace the flag's list as given, so an entry may contain
// commas.
func (f *File) Apply(flags *pflag.FlagSet) error {
	values := map[string]string{
		"url":            f.URL,
		"chrome":         f.Chrome,
		"perf":           f.Perf,
		"perf-dir":       f.PerfDir,
		"freq":           f.Freq,
		"settle":         f.Settle,
		"locate-timeout": f.LocateTimeout,
		"log-level":      f.LogLevel,
		"log-format":     f.LogFormat,
	}

	if f.Wait != nil {
		values["wait"] = strconv.FormatBool(*f.Wait)
	}

	lists := map[string][]string{
		"perf-options":   f.PerfOptions,
		"chrome-options": f.ChromeOptions,
		"js-flags":       f.JSFlags,
	}

	var errs []error

	for name, value := range values {
		flag := flags.Lookup(name)
		if value == "" || flag == nil || flag.Changed {
			continue
		}

		err := flags.Set(name, value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	for name, list := range lists {
		flag := flags.Lookup(name)
		if len(list) == 0 || flag == nil || flag.Changed {
			continue
		}

		err := replaceList(flag, list)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

// replaceList sets a list flag to list without splitting the entries again.
func replaceList(flag *pflag.Flag, list []string) error {
	sv, ok := flag.Value.(pflag.SliceValue)
	if !ok {
		return fmt.Errorf("flag takes a single value, got %d", len(list))
	}

	err := sv.Replace(list)
	if err != nil {
		return err //nolint:wrapcheck // Caller adds the flag name.
	}

	flag.Changed = true

	return nil
}

// Schema returns the JSON Schema of [File].
func Schema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[File](nil)
	if err != nil {
		return nil, fmt.Errorf("infer config schema: %w", err)
	}

	schema.Title = "chromeperf config"

	return schema, nil
}
