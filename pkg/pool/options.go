package pool

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultExpandBy is the growth step used when a caller passes expandBy <= 0.
const DefaultExpandBy = 1

// Option configures a pool at construction time.
type Option func(*options)

type options struct {
	name     string
	maxSize  int
	observer Observer
	parent   Parent
	logger   *zerolog.Logger
}

func buildOptions(opts []Option) options {
	o := options{name: "pool", observer: noopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l := log.With().Str("pool", o.name).Logger()
		o.logger = &l
	}

	return o
}

// WithName labels the pool in logs, metrics and stats.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMaxSize caps the number of slots. Growth past the cap fails with
// errorcodes.ErrAllocationFailure. Zero means no cap.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithObserver reports pool activity to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithParent sets the custom parent from construction on, so the slots
// created by Initialize are attached too.
func WithParent(parent Parent) Option {
	return func(o *options) {
		o.parent = parent
	}
}

// WithLogger replaces the default logger derived from the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}
