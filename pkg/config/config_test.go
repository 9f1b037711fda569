package config

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/semcmp/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	op := cfg.Operation("a", "b")
	op.ID = "x"
	assert.NoError(t, op.Validate())
	assert.Equal(t, models.LeafBinary, op.LeafMethod)
	assert.Equal(t, int64(256*1024*1024), op.MaxMemory)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"Workers", func(c *Config) { c.Resources.MaxWorkers = 0 }, "resources.max_workers"},
		{"Descriptors", func(c *Config) { c.Resources.MaxDescriptors = 1 }, "resources.max_descriptors"},
		{"Buffer", func(c *Config) { c.Resources.BufferSize = 10 }, "resources.buffer_size"},
		{"Memory", func(c *Config) { c.Resources.MaxMemory = 1024 }, "resources.max_memory"},
		{"Bandwidth", func(c *Config) { c.Resources.BandwidthLimit = -1 }, "resources.bandwidth_limit"},
		{"Policy", func(c *Config) { c.Resources.BudgetPolicy = "wait" }, "resources.budget_policy"},
		{"LeafMethod", func(c *Config) { c.Compare.LeafMethod = "crc32" }, "compare.leaf_method"},
		{"Depth", func(c *Config) { c.Compare.MaxDepth = -1 }, "compare.max_depth"},
		{"Failures", func(c *Config) { c.Compare.MaxFailures = -1 }, "compare.max_failures"},
		{"OutputFormat", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"LogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			var vErr *models.ValidationError
			require.ErrorAs(t, cfg.Validate(), &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestOperationCopiesSlices(t *testing.T) {
	cfg := Default()
	cfg.Ignore = []string{"*.log"}
	op := cfg.Operation("a", "b")
	op.IgnorePatterns[0] = "changed"
	assert.Equal(t, "*.log", cfg.Ignore[0])
}

func TestOperationCarriesBuildOptions(t *testing.T) {
	cfg := Default()
	cfg.Compare.BuriedPaths = true
	cfg.Compare.BuildNormalizers = true
	cfg.Compare.ExitASAP = true

	op := cfg.Operation("a", "b")
	assert.True(t, op.BuriedPaths)
	assert.True(t, op.BuildNormalizers)
	assert.True(t, op.ExitASAP)
}

func TestWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Compare.BlotDates = true
	cfg.Compare.IgnoreElfSections = []string{".note.gnu.build-id"}
	cfg.Compare.ExitASAP = true
	cfg.Resources.MaxDescriptors = 8
	cfg.Ignore = []string{"*.tmp", ".git/"}
	cfg.IgnoreFiles = []string{"build.ignore"}
	require.NoError(t, Write(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# semcmp configuration"))

	loaded, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cfg, loaded)

	t.Run("NoTemporaryFilesLeft", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "config.yaml", entries[0].Name())
	})

	t.Run("PartialFileKeepsDefaults", func(t *testing.T) {
		loaded, err := Decode(strings.NewReader("compare:\n  leaf_method: xxhash\n"))
		require.NoError(t, err)
		assert.Equal(t, models.LeafXXHash, loaded.Compare.LeafMethod)
		assert.Equal(t, Default().Resources, loaded.Resources)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		loaded, err := Decode(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, Default(), loaded)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := Decode(strings.NewReader("resources:\n  max_worker: 2\n"))
		assert.ErrorContains(t, err, "max_worker")
	})

	t.Run("Invalid", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("resources:\n  max_workers: 0\n"), 0644))
		_, found, err := Load(bad)
		assert.True(t, found)
		var vErr *models.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.ErrorContains(t, err, bad)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Decode(strings.NewReader("compare: [\n"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("MissingExplicit", func(t *testing.T) {
		_, _, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("WriteRejectsInvalid", func(t *testing.T) {
		cfg := Default()
		cfg.Output.Format = "xml"
		assert.Error(t, Write(cfg, filepath.Join(dir, "x.yaml")))
		assert.NoFileExists(t, filepath.Join(dir, "x.yaml"))
	})

	t.Run("Encode", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, Default()))
		assert.Contains(t, buf.String(), "\n  leaf_method: binary\n")
	})
}

func TestResolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv(EnvConfig, "")

	t.Run("Default", func(t *testing.T) {
		path, explicit, err := Resolve("")
		require.NoError(t, err)
		assert.False(t, explicit)
		assert.Equal(t, filepath.Join(home, ".config", "semcmp", "config.yaml"), path)

		cfg, found, err := Load("")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("XDG", func(t *testing.T) {
		xdg := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdg)
		path, _, err := Resolve("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(xdg, "semcmp", "config.yaml"), path)
	})

	t.Run("Environment", func(t *testing.T) {
		env := filepath.Join(t.TempDir(), "env.yaml")
		t.Setenv(EnvConfig, env)

		path, explicit, err := Resolve("")
		require.NoError(t, err)
		assert.True(t, explicit)
		assert.Equal(t, env, path)

		_, _, err = Load("")
		assert.ErrorContains(t, err, "failed to read config file")

		path, _, err = Resolve("flag.yaml")
		require.NoError(t, err)
		assert.Equal(t, "flag.yaml", path)
	})
}

func TestIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Run("NoFiles", func(t *testing.T) {
		cfg := Default()
		cfg.Ignore = []string{"*.o"}
		patterns, err := cfg.IgnorePatterns()
		require.NoError(t, err)
		assert.Equal(t, []string{"*.o"}, patterns)
	})

	require.NoError(t, os.WriteFile(DefaultIgnoreFile, []byte("# build outputs\n*.log\n\n  tmp/  \n"), 0644))

	t.Run("DefaultFile", func(t *testing.T) {
		cfg := Default()
		cfg.Ignore = []string{"*.o"}
		patterns, err := cfg.IgnorePatterns()
		require.NoError(t, err)
		assert.Equal(t, []string{"*.o", "*.log", "tmp/"}, patterns)
	})

	t.Run("ConfiguredFilesReplaceDefault", func(t *testing.T) {
		other := filepath.Join(dir, "other")
		require.NoError(t, os.WriteFile(other, []byte("*.a\n"), 0644))

		cfg := Default()
		cfg.IgnoreFiles = []string{other}
		patterns, err := cfg.IgnorePatterns()
		require.NoError(t, err)
		assert.Equal(t, []string{"*.a"}, patterns)
	})

	t.Run("ConfiguredFileMissing", func(t *testing.T) {
		cfg := Default()
		cfg.IgnoreFiles = []string{filepath.Join(dir, "missing")}
		_, err := cfg.IgnorePatterns()
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}
