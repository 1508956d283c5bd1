package winselect

import "time"

// selectorOptions holds the resolved configuration for a new Selector.
type selectorOptions struct {
	maxSelectableFDs int
	logger           Logger
	now              func() time.Time
}

// Option configures a Selector at Open time.
type Option interface {
	apply(*selectorOptions)
}

type optionFunc func(*selectorOptions)

func (f optionFunc) apply(o *selectorOptions) { f(o) }

// WithMaxSelectableFDs overrides the negotiated per-helper ceiling
// (MAX_SELECTABLE_FDS, 1024 by default). Exposed so the fan-out boundary
// (spec.md "Fan-out equivalence") can be exercised in tests without
// registering thousands of real file descriptors.
func WithMaxSelectableFDs(n int) Option {
	return optionFunc(func(o *selectorOptions) {
		if n > 0 {
			o.maxSelectableFDs = n
		}
	})
}

// WithLogger overrides the package-level default Logger for one Selector.
func WithLogger(logger Logger) Option {
	return optionFunc(func(o *selectorOptions) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithPollTimeoutClock injects the time source used to bound Select's native poll
// timeout. Exposed for deterministic timeout tests; production callers
// never need it.
func WithPollTimeoutClock(now func() time.Time) Option {
	return optionFunc(func(o *selectorOptions) {
		if now != nil {
			o.now = now
		}
	})
}

func resolveOptions(opts []Option) *selectorOptions {
	cfg := &selectorOptions{
		maxSelectableFDs: MaxSelectableFDs,
		logger:           defaultLogger(),
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(cfg)
	}
	return cfg
}
