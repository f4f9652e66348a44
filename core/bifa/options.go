package bifa

import (
	"io"
	"log/slog"

	"bifa-core/model"
)

// Option configures an Algorithm.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics MetricsCollector
	mctx    *model.Context
}

func defaultOptions() options {
	return options{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: NoopMetricsCollector{},
	}
}

// WithLogger sets the logger for skip warnings and run summaries.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithContext hands c to every Score call.
func WithContext(c *model.Context) Option {
	return func(o *options) { o.mctx = c }
}
