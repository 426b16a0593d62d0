package importer

// Options controls one import pass.
type Options struct {
	// DryRun computes every row's outcome without mutating storage.
	DryRun bool

	// RaiseOnError reports the whole operation as failed when any row or
	// the dataset produced an error. Errors are collected, not fail-fast:
	// every row is still attempted first. Commit callers typically set
	// this; preview callers leave it off to always render a full report.
	RaiseOnError bool
}

// Option is a function that configures import Options.
type Option func(*Options)

// Defaults returns the default import options: a committing pass that
// collects errors without escalating them.
func Defaults() *Options {
	return &Options{
		DryRun:       false,
		RaiseOnError: false,
	}
}

// Apply applies the given options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDryRun computes outcomes without writing to storage.
func WithDryRun(enabled bool) Option {
	return func(o *Options) {
		o.DryRun = enabled
	}
}

// WithRaiseOnError escalates row errors to an operation-level failure
// after all rows have been attempted.
func WithRaiseOnError(enabled bool) Option {
	return func(o *Options) {
		o.RaiseOnError = enabled
	}
}
