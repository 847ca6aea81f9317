package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jacoelho/jpq/internal/config"
	"github.com/jacoelho/jpq/internal/document"
	"github.com/jacoelho/jpq/internal/exit"
	"github.com/jacoelho/jpq/internal/jsonpath"
	"github.com/jacoelho/jpq/internal/path"
	"github.com/jacoelho/jpq/internal/provider"
	"github.com/jacoelho/jpq/internal/ratelimit"
)

const stdinName = "-"

// Runner evaluates the configured paths against every input document.
type Runner struct {
	config      *config.Config
	engine      *jsonpath.Engine
	rateLimiter *ratelimit.Limiter
	log         *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// New creates a new Runner with the provided configuration.
// If creation fails, returns nil runner and exit result.
func New(cfg *config.Config, log *slog.Logger) (*Runner, *exit.Result) {
	engine := jsonpath.New(path.Config{
		Provider: provider.Native{},
		Options:  cfg.Options(),
		Logger:   log,
	}, jsonpath.WithCacheSize(cfg.CacheSize))

	// compile up front so syntax errors fail before any input is read
	for _, expr := range cfg.Paths {
		if _, err := engine.Compile(expr); err != nil {
			return nil, exit.Errorf("Error: %v\n", err)
		}
	}

	return &Runner{
		config:      cfg,
		engine:      engine,
		rateLimiter: ratelimit.New(cfg.RateLimit),
		log:         log,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}, nil
}

// Run evaluates every input and returns the process exit code.
func (r *Runner) Run(ctx context.Context) int {
	sources := r.config.Files
	if len(sources) == 0 {
		sources = []string{stdinName}
	}

	matched := false
	for _, name := range sources {
		found, err := r.runSource(ctx, name)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintf(r.stderr, "\nInterrupted while reading %s\n", name)
				return exit.CodeError
			}
			fmt.Fprintf(r.stderr, "Error: %s: %v\n", name, err)
			return exit.CodeError
		}
		matched = matched || found
	}

	if r.config.FailEmpty && !matched {
		res := exit.NoMatch("no match\n")
		res.Output = r.stderr
		res.Print()
		return res.ExitCode
	}
	return exit.CodeSuccess
}

func (r *Runner) runSource(ctx context.Context, name string) (bool, error) {
	in := r.stdin
	if name != stdinName {
		f, err := os.Open(name)
		if err != nil {
			return false, err
		}
		defer f.Close()
		in = f
	}

	format := document.Detect(r.config.Input, name)
	r.log.Debug("reading input", "source", name, "format", format)

	matched := false
	n := 0
	for doc, err := range document.Stream(in, format) {
		if err != nil {
			return matched, err
		}
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return matched, err
		}
		n++

		found, err := r.evaluate(doc)
		if err != nil {
			return matched, fmt.Errorf("document %d: %w", n, err)
		}
		matched = matched || found
	}

	r.log.Debug("input done", "source", name, "documents", n)
	return matched, nil
}

// evaluate writes the results for one document and reports whether
// anything matched.
func (r *Runner) evaluate(doc any) (bool, error) {
	if r.config.Root {
		out, err := r.engine.ReadRoot(doc, r.config.Paths)
		if err != nil {
			return false, err
		}
		return !isEmpty(out), r.write(out)
	}

	matched := false
	for _, expr := range r.config.Paths {
		ctx, err := r.engine.Query(doc, expr)
		if err != nil {
			return matched, err
		}
		v, err := ctx.Value()
		if err != nil {
			return matched, err
		}
		matched = matched || len(ctx.Results()) > 0
		if err := r.write(v); err != nil {
			return matched, err
		}
	}
	return matched, nil
}

func (r *Runner) write(v any) error {
	return document.Encode(r.stdout, v, r.config.Output, !r.config.Compact)
}

func isEmpty(v any) bool {
	p := provider.Native{}
	if p.IsMap(v) || p.IsArray(v) {
		return p.Len(v) == 0
	}
	return v == nil
}
