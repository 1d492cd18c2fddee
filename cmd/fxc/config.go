package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gogpu/fxc"
	"github.com/gogpu/fxc/compiler"
	"github.com/gogpu/fxc/hlsl"
	"github.com/gogpu/fxc/preprocess"
)

// Config is the fxc.json file structure. All fields are optional.
// Relative include directories are resolved against the config file's
// directory.
type Config struct {
	IncludeDirs []string `json:"includeDirs,omitempty"`

	// Defines are NAME or NAME=VALUE macros.
	Defines []string `json:"defines,omitempty"`

	// Level is the default feature level, as "10.1" or a profile name.
	Level string `json:"level,omitempty"`

	// Compiler is the path of the fxc executable.
	Compiler string `json:"compiler,omitempty"`

	// Flags are shader flag names such as "Debug" or "SkipOptimization".
	Flags []string `json:"flags,omitempty"`

	WarnCompileErrors *bool `json:"warnCompileErrors,omitempty"`

	dir string
}

// ConfigFileNames are searched for, in order, in each directory.
var ConfigFileNames = []string{
	"fxc.json",
	".fxcrc.json",
}

// LoadConfig searches for a config file starting from startDir and
// walking up to the root. It returns nil when no file is found.
func LoadConfig(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadConfigFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadConfigFile loads configuration from a specific file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

// CLIOptions holds the command line settings that override the config
// file. Nil and empty values mean "not given".
type CLIOptions struct {
	IncludeDirs       []string
	Defines           []string
	Level             string
	Compiler          string
	EffectName        string
	Debug             bool
	SkipOptimization  bool
	WarnCompileErrors *bool
}

// Options merges the config file, which may be nil, with CLI settings.
// CLI include directories and defines are appended after the config
// file's; scalar CLI settings replace the config file's.
func (c *Config) Options(cli CLIOptions) (fxc.Options, error) {
	opts := fxc.DefaultOptions()
	if c == nil {
		c = &Config{}
	}

	for _, dir := range c.IncludeDirs {
		if !filepath.IsAbs(dir) && c.dir != "" {
			dir = filepath.Join(c.dir, dir)
		}
		opts.IncludeDirs = append(opts.IncludeDirs, dir)
	}
	opts.IncludeDirs = append(opts.IncludeDirs, cli.IncludeDirs...)

	for _, d := range append(append([]string(nil), c.Defines...), cli.Defines...) {
		m, err := preprocess.ParseMacro(d)
		if err != nil {
			return opts, err
		}
		opts.Macros = append(opts.Macros, m)
	}

	level := c.Level
	if cli.Level != "" {
		level = cli.Level
	}
	if level != "" {
		l, err := parseLevel(level)
		if err != nil {
			return opts, err
		}
		opts.DefaultLevel = l
	}

	path := c.Compiler
	if cli.Compiler != "" {
		path = cli.Compiler
	}
	opts.Compiler = &hlsl.ExecCompiler{Path: path}

	for _, name := range c.Flags {
		f, ok := hlsl.ShaderFlagByName(name)
		if !ok {
			return opts, fmt.Errorf("unknown shader flag %q", name)
		}
		opts.ShaderFlags |= f
	}
	if cli.Debug {
		opts.ShaderFlags |= hlsl.FlagDebug
	}
	if cli.SkipOptimization {
		opts.ShaderFlags |= hlsl.FlagSkipOptimization
	}

	warn := c.WarnCompileErrors
	if cli.WarnCompileErrors != nil {
		warn = cli.WarnCompileErrors
	}
	if warn != nil && *warn {
		opts.CompileErrors = compiler.CompileErrorsAsWarnings
	}

	opts.EffectName = cli.EffectName
	return opts, nil
}

// parseLevel accepts a numeric level ("10.1") or a profile ("fx_5_0").
func parseLevel(s string) (hlsl.FeatureLevel, error) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if l, ok := compiler.LevelFromNumber(v); ok {
			return l, nil
		}
	} else if _, l, ok := compiler.ParseProfile(s); ok {
		return l, nil
	}
	return hlsl.LevelUnset, fmt.Errorf("invalid feature level %q", s)
}
