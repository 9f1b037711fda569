package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/semcmp/internal/testutil"
	"github.com/sdejongh/semcmp/pkg/config"
	"github.com/sdejongh/semcmp/pkg/output"
)

func init() {
	color.NoColor = true
}

// execute runs the command line with an isolated home directory
func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("SEMCMP_CONFIG", "")

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCompareCommand(t *testing.T) {
	h := testutil.NewTestHelper(t)
	h.CreateBoth("same.txt", []byte("hello\n"))
	h.CreateBoth("pkg.tar", testutil.Tar(t, testutil.File{Name: "a", Content: []byte("a")}))

	t.Run("Equal", func(t *testing.T) {
		code, stdout, _ := execute(t, "compare", h.LeftDir, h.RightDir)
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout, "Status: equal")
	})

	h.CreateLeftFile("only-left.txt", []byte("x\n"))

	t.Run("Unequal", func(t *testing.T) {
		code, stdout, _ := execute(t, "compare", h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)
		assert.Contains(t, stdout, "only-left.txt")
		assert.Contains(t, stdout, "missing-on-right")
	})

	t.Run("JSON", func(t *testing.T) {
		code, stdout, _ := execute(t, "compare", "-o", "json", h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)

		var data output.JSONReportData
		require.NoError(t, json.Unmarshal([]byte(stdout), &data))
		assert.Equal(t, "unequal", data.Status)
		assert.Equal(t, 1, data.ExitCode)
		assert.NotEmpty(t, data.ID)
	})

	t.Run("IgnoreMakesEqual", func(t *testing.T) {
		code, _, _ := execute(t, "compare", "--ignore", "only-*", h.LeftDir, h.RightDir)
		assert.Equal(t, 0, code)
	})

	t.Run("Quiet", func(t *testing.T) {
		code, stdout, stderr := execute(t, "compare", "-q", h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)
		assert.Empty(t, stdout)
		assert.Empty(t, stderr)
	})

	t.Run("ReportFile", func(t *testing.T) {
		path := filepath.Join(h.TempDir(), "report.json")
		code, _, _ := execute(t, "compare", "--report", path, h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		var data output.JSONReportData
		require.NoError(t, json.Unmarshal(content, &data))
		assert.Equal(t, "unequal", data.Status)
	})

	t.Run("LogFile", func(t *testing.T) {
		path := filepath.Join(h.TempDir(), "logs", "semcmp.log")
		code, _, _ := execute(t, "compare", "--log-file", path, "--log-level", "warn", h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "only-left.txt")
		assert.NotContains(t, string(content), "comparison started")
	})

	t.Run("Verbose", func(t *testing.T) {
		code, _, stderr := execute(t, "compare", "-v", h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "difference")
	})

	t.Run("MissingRoot", func(t *testing.T) {
		code, stdout, _ := execute(t, "compare", filepath.Join(h.TempDir(), "nope"), h.RightDir)
		assert.Equal(t, 2, code)
		assert.Contains(t, stdout, "failed to access left root")
	})

	t.Run("BudgetFlags", func(t *testing.T) {
		code, _, _ := execute(t, "compare", "--max-descriptors", "2", "--max-memory", "1M", "--parallel", "1",
			"--budget-policy", "fail", "--bandwidth", "100M", h.LeftDir, h.LeftDir)
		assert.Equal(t, 0, code)
	})

	t.Run("ExitASAP", func(t *testing.T) {
		code, stdout, _ := execute(t, "compare", "-e", "--parallel", "1", h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)
		assert.Contains(t, stdout, "Status: unequal")
	})

	t.Run("IgnoreFile", func(t *testing.T) {
		path := filepath.Join(h.TempDir(), "patterns")
		require.NoError(t, os.WriteFile(path, []byte("# generated outputs\n\n  only-*  \n"), 0644))

		code, _, _ := execute(t, "compare", "-i", path, h.LeftDir, h.RightDir)
		assert.Equal(t, 0, code)

		code, _, stderr := execute(t, "compare", "-i", filepath.Join(h.TempDir(), "nope"), h.LeftDir, h.RightDir)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr, "ignore file")
	})

	t.Run("DefaultIgnoreFile", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultIgnoreFile), []byte("only-left.txt\n"), 0644))
		t.Chdir(dir)

		code, _, _ := execute(t, "compare", h.LeftDir, h.RightDir)
		assert.Equal(t, 0, code)
	})

	t.Run("InvalidFlags", func(t *testing.T) {
		for _, args := range [][]string{
			{"compare", h.LeftDir},
			{"compare", "--max-memory", "lots", h.LeftDir, h.RightDir},
			{"compare", "--leaf-method", "crc", h.LeftDir, h.RightDir},
			{"compare", "--max-descriptors", "1", h.LeftDir, h.RightDir},
			{"compare", "--ignore", "[bad", h.LeftDir, h.RightDir},
		} {
			code, _, _ := execute(t, args...)
			assert.Equal(t, 2, code, "%v", args)
		}
	})
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semcmp", "config.yaml")

	code, stdout, stderr := execute(t, "--config", path, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, path)
	assert.FileExists(t, path)

	code, _, stderr = execute(t, "--config", path, "config", "init")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = execute(t, "--config", path, "config", "init", "--force")
	assert.Equal(t, 0, code)

	code, stdout, _ = execute(t, "--config", path, "config", "show")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "leaf_method: binary")
	assert.Contains(t, stdout, "max_descriptors: 64")
	assert.Contains(t, stdout, "exit_asap: false")

	t.Run("EnvironmentPath", func(t *testing.T) {
		t.Setenv("SEMCMP_CONFIG", path)
		var stdout, stderr bytes.Buffer
		code := Execute(context.Background(), []string{"config", "validate"}, &stdout, &stderr)
		assert.Equal(t, 0, code, stderr.String())
		assert.Contains(t, stdout.String(), path)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		typo := filepath.Join(t.TempDir(), "typo.yaml")
		require.NoError(t, os.WriteFile(typo, []byte("compare:\n  leaf_metod: md5\n"), 0644))
		code, _, stderr := execute(t, "config", "validate", typo)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr, "leaf_metod")
	})

	code, stdout, _ = execute(t, "config", "validate", path)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Configuration is valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("output:\n  format: xml\n"), 0644))
	code, _, stderr = execute(t, "config", "validate", bad)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "output.format")

	t.Run("ConfigDrivesCompare", func(t *testing.T) {
		h := testutil.NewTestHelper(t)
		h.CreateLeftFile("a.txt", []byte("x \n"))
		h.CreateRightFile("a.txt", []byte("x\n"))

		code, _, _ := execute(t, "--config", path, "compare", h.LeftDir, h.RightDir)
		assert.Equal(t, 1, code)

		cfgPath := filepath.Join(h.TempDir(), "trailing.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("compare:\n  ignore_trailing_space: true\n"), 0644))
		code, _, _ = execute(t, "--config", cfgPath, "compare", h.LeftDir, h.RightDir)
		assert.Equal(t, 0, code)
	})
}

func TestBuildFileFlags(t *testing.T) {
	h := testutil.NewTestHelper(t)
	h.CreateLeftFile("Makefile", []byte("# Makefile.in generated by automake 1.16.5 from Makefile.am.\n"+
		"MODVERSION = 1\nprefix = "+h.LeftDir+"\n"))
	h.CreateRightFile("Makefile", []byte("# Makefile.in generated by automake 1.16.5 from Makefile.am.\n"+
		"MODVERSION = 2\nprefix = "+h.RightDir+"\n"))

	code, _, _ := execute(t, "compare", h.LeftDir, h.RightDir)
	assert.Equal(t, 1, code)

	code, _, _ = execute(t, "compare", "--build-normalizers", h.LeftDir, h.RightDir)
	assert.Equal(t, 1, code)

	code, stdout, _ := execute(t, "compare", "--build-normalizers", "--buried-paths", h.LeftDir, h.RightDir)
	assert.Equal(t, 0, code, stdout)
}

func TestVersionCommand(t *testing.T) {
	b := CurrentBuild()

	code, stdout, _ := execute(t, "version", "--short")
	assert.Equal(t, 0, code)
	assert.Equal(t, b.Version+"\n", stdout)

	_, stdout, _ = execute(t, "version")
	assert.Contains(t, stdout, "semcmp "+b.Version)
	assert.Contains(t, stdout, b.Platform)

	t.Run("LdflagsWin", func(t *testing.T) {
		defer func(v, c, d string) { Version, Commit, BuildDate = v, c, d }(Version, Commit, BuildDate)
		Version, Commit, BuildDate = "v1.2.3", "0123456789abcdef", "2026-01-02"

		b := CurrentBuild()
		assert.Equal(t, "v1.2.3", b.Version)
		assert.Equal(t, "0123456789ab", b.Commit)
		assert.Equal(t, "2026-01-02", b.Date)
	})

	t.Run("Defaults", func(t *testing.T) {
		b := CurrentBuild()
		assert.NotEmpty(t, b.Version)
		assert.NotEmpty(t, b.Commit)
		assert.NotEmpty(t, b.Date)
	})
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"", 0},
		{"0", 0},
		{"4096", 4096},
		{"64k", 64 * 1024},
		{"64M", 64 * 1024 * 1024},
		{"256MiB", 256 * 1024 * 1024},
		{"1G", 1 << 30},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseSize("lots")
	assert.Error(t, err)
}

func TestReportFormat(t *testing.T) {
	assert.Equal(t, "json", reportFormat("out/report.JSON"))
	assert.Equal(t, "human", reportFormat("report.txt"))
	assert.Equal(t, "human", reportFormat("report"))
}
