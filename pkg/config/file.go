package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable read when no --config is given
const EnvConfig = "SEMCMP_CONFIG"

const fileHeader = "# semcmp configuration. Command-line flags override these values.\n"

// Path returns the default configuration location, semcmp/config.yaml
// under the user configuration directory ($XDG_CONFIG_HOME, or ~/.config
// on Linux)
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "semcmp", "config.yaml"), nil
}

// Resolve returns the file Load reads for path: path itself, else
// $SEMCMP_CONFIG, else Path(). explicit is false only for Path().
func Resolve(path string) (resolved string, explicit bool, err error) {
	if path != "" {
		return path, true, nil
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env, true, nil
	}
	resolved, err = Path()
	return resolved, false, err
}

// Load reads the configuration named by path as Resolve does. A missing
// file at the default location yields Default(); a file that was named
// explicitly must exist. found reports whether a file was read.
func Load(path string) (cfg *Config, found bool, err error) {
	path, explicit, err := Resolve(path)
	if err != nil {
		return nil, false, err
	}

	f, err := os.Open(path)
	switch {
	case err != nil && !explicit && errors.Is(err, fs.ErrNotExist):
		return Default(), false, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	cfg, err = Decode(f)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, true, nil
}

// Decode parses a YAML document over Default() and validates the result.
// Unknown keys are rejected. An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Encode writes cfg as YAML with two-space indentation
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

// Write validates cfg and stores it at path behind a header comment. The
// file is replaced by rename, so readers never see a partial file.
func Write(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.WriteString(tmp, fileHeader)
	if err == nil {
		err = Encode(tmp, cfg)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
