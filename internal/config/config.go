package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jacoelho/jpq/internal/cache"
	"github.com/jacoelho/jpq/internal/document"
	"github.com/jacoelho/jpq/internal/exit"
	"github.com/jacoelho/jpq/internal/path"
)

var (
	ErrNoArguments     = errors.New("no arguments provided")
	ErrNoPaths         = errors.New("no path expression specified")
	ErrEmptyPath       = errors.New("path expression cannot be empty")
	ErrConflictingMode = errors.New("--root and --paths cannot be combined")
	ErrInvalidOutput   = errors.New("output format must be json, yaml or ndjson")
	ErrInvalidCache    = errors.New("cache size must be positive")
)

// Config represents the complete configuration for the jpq tool.
type Config struct {
	Paths []string
	Files []string // empty means standard input
	Debug bool

	// Evaluation
	Root        bool // print one pruned document holding every match
	PathList    bool // print matched paths instead of values
	DefaultNull bool
	AlwaysList  bool
	Suppress    bool
	Require     bool

	// Input and output
	Input     document.Format
	Output    document.Format
	Compact   bool
	FailEmpty bool

	RateLimit float64 // documents per second (0 = unlimited)
	CacheSize int
}

// Options returns the evaluation flags selected on the command line.
func (c *Config) Options() path.Option {
	var opts path.Option
	for _, f := range []struct {
		set bool
		opt path.Option
	}{
		{c.DefaultNull, path.DefaultPathLeafToNull},
		{c.AlwaysList, path.AlwaysReturnList},
		{c.PathList, path.AsPathList},
		{c.Suppress, path.SuppressExceptions},
		{c.Require, path.RequireProperties},
	} {
		if f.set {
			opts |= f.opt
		}
	}
	return opts
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.Paths) == 0 {
		return ErrNoPaths
	}
	if c.Root && c.PathList {
		return ErrConflictingMode
	}
	if c.Output == document.FormatAuto {
		return ErrInvalidOutput
	}
	if c.CacheSize <= 0 {
		return ErrInvalidCache
	}

	for _, file := range c.Files {
		if file == "-" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("input file %s not found: %w", file, err)
		}
	}

	return nil
}

// pathsFlag implements flag.Value for parsing multiple --path flags.
type pathsFlag []string

func (p *pathsFlag) String() string {
	return strings.Join(*p, ",")
}

func (p *pathsFlag) Set(value string) error {
	if strings.TrimSpace(value) == "" {
		return ErrEmptyPath
	}
	*p = append(*p, value)
	return nil
}

// formatFlag implements flag.Value for --input and --output.
type formatFlag struct {
	format *document.Format
}

func (f formatFlag) String() string {
	if f.format == nil {
		return ""
	}
	return string(*f.format)
}

func (f formatFlag) Set(value string) error {
	format, err := document.ParseFormat(value)
	if err != nil {
		return err
	}
	*f.format = format
	return nil
}

// Parse parses command-line arguments and returns a validated Config.
// If parsing fails or help is requested, returns nil config and exit result.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Errorf("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)

	// Suppress the default usage output since we handle it ourselves
	fs.Usage = func() {}
	// Suppress error output since we handle it ourselves
	fs.SetOutput(io.Discard)

	cfg := &Config{
		Input:  document.FormatAuto,
		Output: document.FormatJSON,
	}
	var paths pathsFlag

	fs.Var(&paths, "path", "Path expression (can be used multiple times)")
	fs.BoolVar(&cfg.Root, "root", false, "Print one document pruned to the matched branches")
	fs.BoolVar(&cfg.PathList, "paths", false, "Print matched paths instead of values")
	fs.BoolVar(&cfg.DefaultNull, "default-null", false, "Missing leaf properties evaluate to null")
	fs.BoolVar(&cfg.AlwaysList, "always-list", false, "Always print a list, even for definite paths")
	fs.BoolVar(&cfg.Suppress, "suppress", false, "Treat missing paths as no match instead of an error")
	fs.BoolVar(&cfg.Require, "require", false, "Fail when a property is missing, even behind wildcards")
	fs.Var(formatFlag{&cfg.Input}, "input", "Input format: json, yaml, ndjson or auto")
	fs.Var(formatFlag{&cfg.Output}, "output", "Output format: json, yaml or ndjson")
	fs.BoolVar(&cfg.Compact, "compact", false, "Print JSON on a single line")
	fs.BoolVar(&cfg.FailEmpty, "fail-empty", false, "Exit with code 2 when nothing matched")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", 0, "Documents per second (0 for unlimited)")
	fs.IntVar(&cfg.CacheSize, "cache-size", cache.DefaultCapacity, "Compiled expressions kept in memory")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Errorf("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	// Without --path the first positional argument is the expression
	rest := fs.Args()
	if len(paths) == 0 && len(rest) > 0 {
		paths = append(paths, rest[0])
		rest = rest[1:]
	}
	cfg.Paths = paths
	if len(rest) > 0 {
		cfg.Files = rest
	}

	if err := cfg.Validate(); err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}

	return cfg, nil
}

// Usage returns a usage string for the CLI tool.
func Usage() string {
	return `jpq - query JSON and YAML documents with path expressions

Usage: jpq [options] <path> [file1] [file2] ...
       jpq [options] --path <path> [--path <path>] [file1] ...

Options:
  --path EXPR          Path expression (can be used multiple times)
  --root               Print one document pruned to the matched branches
  --paths              Print matched paths instead of values
  --default-null       Missing leaf properties evaluate to null
  --always-list        Always print a list, even for definite paths
  --suppress           Treat missing paths as no match instead of an error
  --require            Fail when a property is missing, even behind wildcards
  --input FORMAT       Input format: json, yaml, ndjson or auto (default: auto)
  --output FORMAT      Output format: json, yaml or ndjson (default: json)
  --compact            Print JSON on a single line
  --fail-empty         Exit with code 2 when nothing matched
  --rate-limit N       Documents per second (0 for unlimited)
  --cache-size N       Compiled expressions kept in memory (default: 256)
  --debug              Enable debug logging
  -h, --help           Show this help message

Examples:
  jpq '$.store.book[*].author' store.json
  jpq '$..book[?(@.price < 10)].title' store.yaml
  jpq --root --path '$.store.bicycle' --path '$.store.book[0]' store.json
  jpq --paths '$..isbn' store.json
  cat events.ndjson | jpq --input ndjson --rate-limit 100 '$.user.id'`
}
