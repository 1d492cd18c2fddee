// Command fxc compiles toolkit effect files.
//
// Usage:
//
//	fxc [options] <input.fx>
//
// Examples:
//
//	fxc -o basic.fxo basic.fx            # Compile to an effect archive
//	fxc -I shaders -D SHADOWS=1 scene.fx # Include path and macro
//	fxc -E scene.fx                      # Print preprocessed source
//	fxc -dump scene.fx                   # Print the compiled effect data
//	fxc -o scene.fxo -deps scene.d -incremental scene.fx
//
// Settings are also read from an fxc.json file found in the input file's
// directory or one of its parents. Command line flags take precedence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/gogpu/fxc"
	"github.com/gogpu/fxc/depfile"
	"github.com/gogpu/fxc/effect"
)

const fxcVersion = "0.1.0-dev"

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// boolFlag records whether a bool flag was given at all.
type boolFlag struct{ v *bool }

func (b *boolFlag) IsBoolFlag() bool { return true }
func (b *boolFlag) String() string {
	if b.v == nil {
		return "false"
	}
	return fmt.Sprint(*b.v)
}
func (b *boolFlag) Set(s string) error {
	v := s == "true" || s == "1"
	if !v && s != "false" && s != "0" {
		return fmt.Errorf("invalid boolean %q", s)
	}
	b.v = &v
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fxc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cli         CLIOptions
		includes    stringList
		defines     stringList
		warnErrors  boolFlag
		output      = fs.String("o", "", "output archive file (default: stdout)")
		depsPath    = fs.String("deps", "", "write a dependency file")
		incremental = fs.Bool("incremental", false, "skip compiling when -o and -deps are up to date")
		preprocess  = fs.Bool("E", false, "print preprocessed source and exit")
		dump        = fs.Bool("dump", false, "print compiled effect data")
		configPath  = fs.String("config", "", "config file (default: search for fxc.json)")
		verbose     = fs.Bool("v", false, "log progress to stderr")
		version     = fs.Bool("version", false, "print version")
	)
	fs.Var(&includes, "I", "add an include directory (repeatable)")
	fs.Var(&defines, "D", "define a macro NAME[=VALUE] (repeatable)")
	fs.Var(&warnErrors, "warn-compile-errors", "report shader compile errors as warnings")
	fs.StringVar(&cli.Level, "level", "", "default feature level, e.g. 10.1 or fx_5_0")
	fs.StringVar(&cli.EffectName, "name", "", "effect name (default: input base name)")
	fs.StringVar(&cli.Compiler, "compiler", "", "fxc executable (default: fxc in PATH)")
	fs.BoolVar(&cli.Debug, "debug", false, "compile shaders with debug info")
	fs.BoolVar(&cli.SkipOptimization, "Od", false, "disable shader optimizations")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *version {
		fmt.Fprintf(stdout, "fxc version %s\n", fxcVersion)
		return 0
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: no input file specified")
		usage(fs)
		return 1
	}
	inputPath := fs.Arg(0)
	cli.IncludeDirs = includes
	cli.Defines = defines
	cli.WarnCompileErrors = warnErrors.v

	if *verbose {
		fxc.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer fxc.SetLogger(nil)
	}

	cfg, err := loadConfig(*configPath, inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading config: %v\n", err)
		return 1
	}
	opts, err := cfg.Options(cli)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	source, err := fxc.ReadSource(inputPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading file: %v\n", err)
		return 1
	}

	if *preprocess {
		text, _, err := fxc.Preprocess(ctx, source, inputPath, opts)
		if err != nil {
			fmt.Fprintf(stderr, "Preprocess error: %v\n", err)
			return 1
		}
		io.WriteString(stdout, text)
		return 0
	}

	key := depfile.CacheKey(source, opts.Macros, opts.ShaderFlags)
	if *incremental && upToDate(*output, *depsPath, key) {
		fmt.Fprintf(stderr, "%s is up to date\n", *output)
		return 0
	}

	res, err := fxc.CompileWithOptions(ctx, source, inputPath, opts)
	if res != nil && len(res.Diagnostics) > 0 {
		fmt.Fprintln(stderr, res.Diagnostics.FormatAll())
	}
	if err != nil {
		fmt.Fprintf(stderr, "Compilation failed: %v\n", err)
		return 1
	}

	if *dump {
		fmt.Fprintln(stdout, res.Data.Dump())
	}

	if *depsPath != "" {
		files, err := depfile.FromFiles(res.Dependencies)
		if err == nil {
			err = (&depfile.Record{Key: key, Files: files}).Save(*depsPath)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error writing dependency file: %v\n", err)
			return 1
		}
	}

	switch {
	case *output != "":
		if err := fxc.WriteArchive(*output, res.Data); err != nil {
			fmt.Fprintf(stderr, "Error writing output: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "Compiled %s to %s (%d shaders)\n", inputPath, *output, len(res.Data.Shaders))
	case !*dump:
		if err := effect.Write(stdout, res.Data); err != nil {
			fmt.Fprintf(stderr, "Error writing output: %v\n", err)
			return 1
		}
	}
	return 0
}

func loadConfig(path, inputPath string) (*Config, error) {
	if path != "" {
		return LoadConfigFile(path)
	}
	dir, err := filepath.Abs(filepath.Dir(inputPath))
	if err != nil {
		return nil, err
	}
	cfg, _, err := LoadConfig(dir)
	return cfg, err
}

// upToDate reports whether the output exists and the dependency file
// records the same cache key and unchanged inputs.
func upToDate(output, depsPath, key string) bool {
	if output == "" || depsPath == "" {
		return false
	}
	if _, err := os.Stat(output); err != nil {
		return false
	}
	rec, err := depfile.Load(depsPath)
	if err != nil {
		return false
	}
	_, stale := rec.Stale(key)
	return !stale
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "Usage: fxc [options] <input.fx>\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  fxc -o basic.fxo basic.fx             Compile to file\n")
	fmt.Fprintf(w, "  fxc -I shaders -D SHADOWS=1 scene.fx  Include path and macro\n")
	fmt.Fprintf(w, "  fxc -E scene.fx                       Print preprocessed source\n")
}
