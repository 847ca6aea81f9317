package path

import (
	"io"
	"log/slog"
	"strings"

	"github.com/jacoelho/jpq/internal/provider"
)

// Option is a set of independent evaluation flags.
type Option uint8

const (
	// DefaultPathLeafToNull makes a missing leaf property yield null.
	DefaultPathLeafToNull Option = 1 << iota
	// AlwaysReturnList wraps definite single-value reads in a list.
	AlwaysReturnList
	// AsPathList renders results as path strings instead of values.
	AsPathList
	// SuppressExceptions downgrades absence errors to silent skips.
	SuppressExceptions
	// RequireProperties makes absence on a definite path always fail.
	RequireProperties
)

var optionNames = []struct {
	opt  Option
	name string
}{
	{DefaultPathLeafToNull, "DEFAULT_PATH_LEAF_TO_NULL"},
	{AlwaysReturnList, "ALWAYS_RETURN_LIST"},
	{AsPathList, "AS_PATH_LIST"},
	{SuppressExceptions, "SUPPRESS_EXCEPTIONS"},
	{RequireProperties, "REQUIRE_PROPERTIES"},
}

// Has reports whether every flag in o2 is set in o.
func (o Option) Has(o2 Option) bool {
	return o&o2 == o2
}

func (o Option) String() string {
	var names []string
	for _, entry := range optionNames {
		if o.Has(entry.opt) {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}

// Config is the explicit configuration threaded into every evaluation.
// The zero value uses the Native provider, no options and a discarding logger.
type Config struct {
	Provider provider.Provider
	Options  Option
	// ComputeRoot enables root reconstruction.
	ComputeRoot bool
	Logger      *slog.Logger
}

// AddOptions returns a copy of c with opts added.
func (c Config) AddOptions(opts ...Option) Config {
	for _, o := range opts {
		c.Options |= o
	}
	return c
}

// WithComputeRoot returns a copy of c with root reconstruction switched on or off.
func (c Config) WithComputeRoot(enabled bool) Config {
	c.ComputeRoot = enabled
	return c
}

func (c Config) withDefaults() Config {
	if c.Provider == nil {
		c.Provider = provider.Native{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}
