package mosaic

import (
	"go.uber.org/zap"
)

type options struct {
	logger  *zap.Logger
	metrics *Metrics
	poll    *PollOptions
}

// Option configures connectors.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records query metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPollOptions overrides the poll bounds of remote statements.
func WithPollOptions(p PollOptions) Option {
	return func(o *options) {
		o.poll = &p
	}
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}
