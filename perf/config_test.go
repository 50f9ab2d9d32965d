package perf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/chromeperf/perf"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	c := perf.NewConfig()

	assert.Empty(t, c.Binary)
	assert.Empty(t, c.Dir)
	assert.Empty(t, c.Freq)
	assert.Empty(t, c.Options)
}

func TestConfig_RegisterFlags(t *testing.T) {
	t.Parallel()

	c := perf.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)

	c.RegisterFlags(flags)

	for _, name := range []string{"perf", "perf-dir", "freq", "perf-options"} {
		flag := flags.Lookup(name)
		require.NotNil(t, flag, "flag %s should be registered", name)
	}
}

func TestConfig_RegisterFlags_Parsing(t *testing.T) {
	t.Parallel()

	c := perf.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)

	c.RegisterFlags(flags)

	err := flags.Parse([]string{
		"--perf=/usr/local/bin/perf",
		"--perf-dir=/tmp/out",
		"--freq=999",
		"--perf-options=--call-graph=dwarf,-e,cycles",
	})
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/perf", c.Binary)
	assert.Equal(t, "/tmp/out", c.Dir)
	assert.Equal(t, "999", c.Freq)
	assert.Equal(t, []string{"--call-graph=dwarf", "-e", "cycles"}, c.Options)
}

func TestConfig_RegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	c := perf.NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)

	c.RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{}))

	assert.Equal(t, "max", c.Freq)
	assert.Empty(t, c.Binary)
	assert.Empty(t, c.Dir)
}

func TestConfig_RegisterCompletions(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		flag          string
		wantValues    []string
		wantDirective cobra.ShellCompDirective
	}{
		"perf-dir completions": {
			flag:          "perf-dir",
			wantDirective: cobra.ShellCompDirectiveFilterDirs,
		},
		"freq completions": {
			flag:          "freq",
			wantValues:    []string{"max"},
			wantDirective: cobra.ShellCompDirectiveNoFileComp,
		},
		"perf-options completions": {
			flag:          "perf-options",
			wantDirective: cobra.ShellCompDirectiveNoFileComp,
		},
	}

	cfg := perf.NewConfig()

	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cfg.RegisterCompletions(cmd))

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			completionFn, ok := cmd.GetFlagCompletionFunc(tc.flag)
			require.True(t, ok)

			values, directive := completionFn(cmd, nil, "")
			assert.Equal(t, tc.wantDirective, directive)
			assert.Equal(t, tc.wantValues, values)
		})
	}
}

func TestConfig_NewRecorder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	binary := filepath.Join(dir, "perf")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tcs := map[string]struct {
		cfg        perf.Config
		wantBinary string
		wantDir    string
		wantErr    error
	}{
		"defaults": {
			cfg:        perf.Config{},
			wantBinary: "perf",
		},
		"explicit binary": {
			cfg:        perf.Config{Binary: binary},
			wantBinary: binary,
		},
		"missing binary": {
			cfg:     perf.Config{Binary: filepath.Join(dir, "missing")},
			wantErr: perf.ErrBinaryNotFound,
		},
		"existing directory": {
			cfg:        perf.Config{Dir: dir},
			wantBinary: "perf",
			wantDir:    dir,
		},
		"directory created with parents": {
			cfg:        perf.Config{Dir: filepath.Join(dir, "a", "b", "c")},
			wantBinary: "perf",
			wantDir:    filepath.Join(dir, "a", "b", "c"),
		},
		"directory is a file": {
			cfg:     perf.Config{Dir: file},
			wantErr: perf.ErrNotDirectory,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec, err := tc.cfg.NewRecorder()
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantBinary, rec.Binary())
			assert.Equal(t, tc.wantDir, rec.Dir())

			if tc.wantDir != "" {
				assert.DirExists(t, tc.wantDir)
			}
		})
	}
}

func TestResolveDir_ParentIsFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := perf.ResolveDir(filepath.Join(file, "sub"))
	require.Error(t, err)
}
