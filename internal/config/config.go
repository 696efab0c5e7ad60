// Package config locates and loads splittable.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the project configuration file looked up from the working
// directory upwards.
const FileName = "splittable.toml"

// DefaultResolverCommand prints browserify's dependency rows as JSON.
var DefaultResolverCommand = []string{"browserify", "--deps"}

// Config is the decoded splittable.toml.
type Config struct {
	Build    BuildConfig    `toml:"build"`
	Resolver ResolverConfig `toml:"resolver"`
	Compiler CompilerConfig `toml:"compiler"`
}

// BuildConfig is the [build] table: where bundles go and the default entries.
type BuildConfig struct {
	WriteTo string   `toml:"write_to"`
	Entries []string `toml:"entries"` // used when no entry is given on the command line
}

// ResolverConfig is the [resolver] table. Command gets the entry paths
// appended and must print browserify --deps rows.
type ResolverConfig struct {
	Command []string `toml:"command"`
}

// CompilerConfig is the [compiler] table. Flags are bare option names; an
// empty value removes a default flag.
type CompilerConfig struct {
	Command []string          `toml:"command"`
	Flags   map[string]string `toml:"flags"`
}

// Project is a loaded configuration together with where it came from.
type Project struct {
	Path   string // empty when no file was found
	Root   string
	Config Config
}

// Find walks up from startDir to locate splittable.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the configuration for startDir. Without a file
// the project root is startDir itself and defaults apply.
func Discover(startDir string) (*Project, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return nil, err
		}
		return &Project{Root: root, Config: Defaults()}, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Project{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// Defaults returns the configuration used when no file sets a value.
func Defaults() Config {
	return Config{
		Build:    BuildConfig{WriteTo: "out/"},
		Resolver: ResolverConfig{Command: append([]string(nil), DefaultResolverCommand...)},
	}
}

// Load decodes path over Defaults. Unknown keys and keys present with empty
// values are errors.
func Load(path string) (Config, error) {
	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("build", "write_to") && strings.TrimSpace(cfg.Build.WriteTo) == "" {
		return Config{}, fmt.Errorf("%s: [build].write_to must not be empty", path)
	}
	if meta.IsDefined("resolver", "command") && len(cfg.Resolver.Command) == 0 {
		return Config{}, fmt.Errorf("%s: [resolver].command must not be empty", path)
	}
	if meta.IsDefined("compiler", "command") && len(cfg.Compiler.Command) == 0 {
		return Config{}, fmt.Errorf("%s: [compiler].command must not be empty", path)
	}
	for name := range cfg.Compiler.Flags {
		if name == "" || strings.HasPrefix(name, "-") {
			return Config{}, fmt.Errorf("%s: [compiler.flags] key %q must be a bare flag name", path, name)
		}
	}
	return cfg, nil
}

// Abs resolves p against the project root.
func (p *Project) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}
