package datastore

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/jhaiduce/cylc-flow/emit"
	"github.com/jhaiduce/cylc-flow/metrics"
)

// Option configures a Manager at construction time, following the
// functional-options shape this corpus uses for its engine constructors,
// here as `func(*Manager) error`.
type Option func(*Manager) error

// WithEmitter wires a lifecycle event sink. The default is a no-op emitter.
func WithEmitter(emitter emit.Emitter) Option {
	return func(m *Manager) error {
		if emitter != nil {
			m.emitter = emitter
		}
		return nil
	}
}

// WithMetrics wires Prometheus instrumentation. The default records nothing.
func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Manager) error {
		m.metrics = metrics
		return nil
	}
}

// WithTracer wires an OpenTelemetry tracer used to span each iteration
// phase. The default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) error {
		if tracer != nil {
			m.tracer = tracer
		}
		return nil
	}
}

// WithClock substitutes a deterministic Clock, used by tests. The default
// is RealClock.
func WithClock(clock Clock) Option {
	return func(m *Manager) error {
		if clock != nil {
			m.clock = clock
		}
		return nil
	}
}

// WithMaxFamilyDepth bounds family-rollup ascent recursion against a
// cyclic first_parent chain in externally supplied configuration. 0 (the
// default) leaves it unbounded.
func WithMaxFamilyDepth(n int) Option {
	return func(m *Manager) error {
		m.maxFamilyDepth = n
		return nil
	}
}
