package dtd

import (
	"fmt"
	"log/slog"
)

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved() int {
	if !o.set {
		return 0
	}
	return o.value
}

// Options configures a Validator. The zero value is valid and equivalent to
// NewOptions.
type Options struct {
	resolver           Resolver
	logger             *slog.Logger
	skipExternal       bool
	maxDepth           intOption
	maxEntityExpansion intOption
}

type resolvedOptions struct {
	resolver     Resolver
	logger       *slog.Logger
	loadExternal bool
	limits       xmlParseLimits
}

// NewOptions returns a default, valid options value.
func NewOptions() Options {
	return Options{}
}

// Validate validates option values.
func (o Options) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithResolver sets the resolver used for external subsets and external
// entities. Without one, each Validate method picks a resolver matching its
// input.
func (o Options) WithResolver(r Resolver) Options {
	o.resolver = r
	return o
}

// WithLoadExternal controls whether external DTD subsets and external
// entities are loaded (default true).
func (o Options) WithLoadExternal(value bool) Options {
	o.skipExternal = !value
	return o
}

// WithMaxDepth sets the element nesting limit (0 uses default).
func (o Options) WithMaxDepth(value int) Options {
	o.maxDepth = intOption{value: value, set: true}
	return o
}

// WithMaxEntityExpansion caps the bytes produced by entity expansion (0 uses default).
func (o Options) WithMaxEntityExpansion(value int) Options {
	o.maxEntityExpansion = intOption{value: value, set: true}
	return o
}

// WithLogger sets the logger for load diagnostics. A nil logger discards them.
func (o Options) WithLogger(logger *slog.Logger) Options {
	o.logger = logger
	return o
}

func (o Options) withDefaults() (resolvedOptions, error) {
	limits, err := resolveXMLParseLimits(o.maxDepth.resolved(), o.maxEntityExpansion.resolved())
	if err != nil {
		return resolvedOptions{}, fmt.Errorf("xml limits: %w", err)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return resolvedOptions{
		resolver:     o.resolver,
		logger:       logger,
		loadExternal: !o.skipExternal,
		limits:       limits,
	}, nil
}
