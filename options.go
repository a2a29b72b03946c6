package wf

import (
	"github.com/sirupsen/logrus"
)

// Config holds Compile's knobs, assembled from a chain of Options exactly
// as the teacher's FindOpt/buildFindOpts builds a *options.FindOptionsBuilder
// — the live-query-specific payload is gone, replaced with the compile-time
// knobs this package's Lifecycle (finish/finalize/crush) actually needs.
type Config struct {
	// pruneUnusedFields toggles the finish pass's deleteUnusedFields step.
	pruneUnusedFields bool
	// namePrefix is the synthetic-name prefix set by WithNamePrefix. It is
	// stored here only: neither crush nor Merge reads it.
	namePrefix string
	log        *logrus.Logger
	cache      Cache
}

// Option is a functional option for Compile.
type Option func(*Config)

// WithFieldPruning toggles the finish pass's unused-field deletion. It
// defaults to enabled; pass false only for debugging a plan shape before
// pruning.
func WithFieldPruning(enabled bool) Option {
	return func(c *Config) { c.pruneUnusedFields = enabled }
}

// WithNamePrefix records a prefix for synthetic field or variable names on
// the Config. crush mints no synthetic names, and Merge uses its own fixed
// prefixes ("_ga", "_gb", "_p"), so the value does not change Compile's
// output.
func WithNamePrefix(prefix string) Option {
	return func(c *Config) { c.namePrefix = prefix }
}

// WithLogger attaches a logger that receives observational tracing of
// crush decisions. Compile is silent without one. Merge traces through
// MergeWithLog's own logger argument, and the smart constructors log
// nothing.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Config) { c.log = log }
}

// WithCache attaches a Cache used to memoize crush results keyed by
// structural hash (see cache.go). Compile runs uncached without one.
func WithCache(cache Cache) Option {
	return func(c *Config) { c.cache = cache }
}

// buildConfig applies a chain of Options over the default Config.
func buildConfig(opts []Option) *Config {
	c := &Config{
		pruneUnusedFields: true,
		namePrefix:        "_wf",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
